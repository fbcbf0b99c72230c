// Package app is the tool-app runtime: it synthesizes the app's schema from
// its registered tools and serves the resulting service over gRPC so the
// platform runtime can call back into the app.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"reflect"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/porcini-dev/porcini/internal/manifest"
	"github.com/porcini-dev/porcini/internal/shared/stringutils"
	"github.com/porcini-dev/porcini/internal/toproto"
	"github.com/porcini-dev/porcini/internal/tools"
)

// App is one runnable tool app: a manifest, a tool registry and the schema
// synthesized from it.
type App struct {
	man    *manifest.Manifest
	tools  *tools.Registry
	schema *toproto.Registry
	svc    *toproto.ServiceSpec
	fd     protoreflect.FileDescriptor
	logger *slog.Logger
}

// New synthesizes the schema for reg's tools and wires them into a runnable
// app. The service is named after the manifest's app name.
func New(man *manifest.Manifest, reg *tools.Registry, logger *slog.Logger) (*App, error) {
	if err := man.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	svcName := serviceName(man.Name)
	schema, svc, err := reg.Synthesize(packageName(man.Name), svcName)
	if err != nil {
		return nil, fmt.Errorf("synthesize app %s: %w", man.Name, err)
	}
	fd, err := schema.FileDescriptor("app.proto")
	if err != nil {
		return nil, fmt.Errorf("link app %s: %w", man.Name, err)
	}

	return &App{
		man:    man,
		tools:  reg,
		schema: schema,
		svc:    svc,
		fd:     fd,
		logger: logger,
	}, nil
}

// Manifest returns the app's manifest.
func (a *App) Manifest() *manifest.Manifest { return a.man }

// Schema renders the app's schema as proto3 text.
func (a *App) Schema() (string, error) {
	return toproto.RenderFile(a.schema)
}

// Descriptor returns the linked file descriptor for the app's schema.
func (a *App) Descriptor() protoreflect.FileDescriptor { return a.fd }

// Service returns the synthesized service spec.
func (a *App) Service() *toproto.ServiceSpec { return a.svc }

// Run serves the app on lis until ctx is cancelled, then drains in-flight
// calls with a graceful stop.
func (a *App) Run(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.UnknownServiceHandler(a.handle))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("app serving", "app", a.man.Name, "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("app stopping", "app", a.man.Name)
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// handle is the single dynamic entry point for every method of the
// synthesized service. It decodes the request against the method's input
// descriptor, calls the tool and encodes the result into the response's
// result field.
func (a *App) handle(_ any, stream grpc.ServerStream) error {
	full, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method in stream")
	}
	toolName := methodName(full)

	tool := a.tools.Get(toolName)
	if tool == nil {
		return status.Errorf(codes.Unimplemented, "unknown tool %s", toolName)
	}
	md := a.fd.Services().ByName(protoreflect.Name(a.svc.Name)).Methods().ByName(protoreflect.Name(toolName))
	if md == nil {
		return status.Errorf(codes.Unimplemented, "no descriptor for %s", toolName)
	}

	req := dynamicpb.NewMessage(md.Input())
	if err := stream.RecvMsg(req); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	args := decodeMessage(req)

	a.logger.Debug("tool call", "tool", toolName)
	result, err := tool.Call(stream.Context(), args)
	if err != nil {
		a.logger.Warn("tool failed", "tool", toolName, "error", err)
		return status.Errorf(codes.Internal, "tool %s: %v", toolName, err)
	}

	resultField := md.Output().Fields().ByName("result")
	if tool.Streaming() {
		return a.sendStream(stream, md, resultField, result)
	}

	resp := dynamicpb.NewMessage(md.Output())
	if err := encodeField(resp, resultField, result); err != nil {
		return status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return stream.SendMsg(resp)
}

// sendStream drains a streaming tool result, sending one response message per
// element. Both stream shapes are walked reflectively: receive channels with
// Recv, iterator functions by calling them with a collecting yield.
func (a *App) sendStream(stream grpc.ServerStream, md protoreflect.MethodDescriptor, resultField protoreflect.FieldDescriptor, result any) error {
	send := func(elem any) error {
		resp := dynamicpb.NewMessage(md.Output())
		if err := encodeField(resp, resultField, elem); err != nil {
			return status.Errorf(codes.Internal, "encode stream element: %v", err)
		}
		return stream.SendMsg(resp)
	}

	rv := reflect.ValueOf(result)
	switch rv.Kind() {
	case reflect.Chan:
		for {
			elem, ok := rv.Recv()
			if !ok {
				return nil
			}
			if err := send(elem.Interface()); err != nil {
				return err
			}
		}

	case reflect.Func:
		var sendErr error
		yield := reflect.MakeFunc(rv.Type().In(0), func(in []reflect.Value) []reflect.Value {
			if err := send(in[0].Interface()); err != nil {
				sendErr = err
				return []reflect.Value{reflect.ValueOf(false)}
			}
			return []reflect.Value{reflect.ValueOf(true)}
		})
		rv.Call([]reflect.Value{yield})
		return sendErr

	default:
		return status.Errorf(codes.Internal, "streaming tool returned %T", result)
	}
}

// serviceName derives the exported service name from the app name.
func serviceName(appName string) string {
	parts := strings.FieldsFunc(appName, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "App"
	}
	return b.String()
}

// packageName derives the schema package from the app name.
func packageName(appName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(appName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "app"
	}
	return name
}

// methodName extracts the bare method from a /pkg.Service/method path.
func methodName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

// structFieldName mirrors the analyzer's field naming: json tag first, then
// snake_case.
func structFieldName(f reflect.StructField) string {
	return stringutils.FieldName(f.Name, f.Tag.Get("json"))
}
