// Package tools holds the developer-facing tool model: functions registered
// under a name with presentation metadata, analyzable into a schema and
// callable with decoded request payloads.
package tools

import (
	"context"
	"fmt"
	"reflect"

	"github.com/porcini-dev/porcini/internal/shared/stringutils"
	"github.com/porcini-dev/porcini/internal/toproto"
)

// Option customizes a tool at registration time.
type Option func(*Tool)

// WithDescription sets the human-readable description shown to the platform.
func WithDescription(desc string) Option {
	return func(t *Tool) { t.description = desc }
}

// WithIcon sets the SF Symbols icon name displayed next to the tool.
func WithIcon(icon string) Option {
	return func(t *Tool) { t.icon = icon }
}

// WithArgNames names the parameters of a plain function, in declaration
// order. Functions taking an args struct do not need it.
func WithArgNames(names ...string) Option {
	return func(t *Tool) { t.argNames = names }
}

// WithArgDoc documents one named argument.
func WithArgDoc(arg, doc string) Option {
	return func(t *Tool) {
		if t.argDocs == nil {
			t.argDocs = make(map[string]string)
		}
		t.argDocs[arg] = doc
	}
}

// Tool is one registered app capability: a Go function plus the metadata the
// platform renders for it. Build one with New; the zero value is not usable.
type Tool struct {
	name        string
	description string
	icon        string
	fn          reflect.Value
	spec        toproto.FunctionSpec

	argNames []string
	argDocs  map[string]string

	takesCtx  bool
	structArg reflect.Type // non-nil when the function takes one args struct
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

// New analyzes fn and wraps it as a named tool. The function must follow the
// convertible shapes: an optional leading context.Context, either one args
// struct or plain parameters named via WithArgNames, and one result plus an
// optional trailing error.
func New(name string, fn any, opts ...Option) (*Tool, error) {
	t := &Tool{name: name}
	for _, opt := range opts {
		opt(t)
	}

	analyzeOpts := []toproto.AnalyzeOption{toproto.WithDoc(t.description)}
	if len(t.argNames) > 0 {
		analyzeOpts = append(analyzeOpts, toproto.WithArgNames(t.argNames...))
	}
	for arg, doc := range t.argDocs {
		analyzeOpts = append(analyzeOpts, toproto.WithArgDoc(arg, doc))
	}

	spec, err := toproto.Analyze(name, fn, analyzeOpts...)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	t.spec = spec
	t.fn = reflect.ValueOf(fn)

	ft := t.fn.Type()
	if ft.NumIn() > 0 && ft.In(0) == ctxType {
		t.takesCtx = true
	}
	params := ft.NumIn()
	if t.takesCtx {
		params--
	}
	if len(t.argNames) == 0 && params == 1 {
		pt := ft.In(ft.NumIn() - 1)
		if pt.Kind() == reflect.Pointer {
			pt = pt.Elem()
		}
		if pt.Kind() == reflect.Struct {
			t.structArg = pt
		}
	}
	return t, nil
}

// Name returns the tool's registered name.
func (t *Tool) Name() string { return t.name }

// Description returns the tool's description.
func (t *Tool) Description() string { return t.description }

// Icon returns the tool's icon name, which may be empty.
func (t *Tool) Icon() string { return t.icon }

// Spec returns the analyzed function shape.
func (t *Tool) Spec() toproto.FunctionSpec { return t.spec }

// Streaming reports whether the tool produces a result stream.
func (t *Tool) Streaming() bool { return t.spec.Streaming }

// Call invokes the tool function with named arguments decoded from a request
// payload. Missing arguments take their zero value. The returned value is the
// function's result; for streaming tools it is the live channel or iterator.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	in, err := t.bindArgs(ctx, args)
	if err != nil {
		return nil, err
	}

	out := t.fn.Call(in)

	ft := t.fn.Type()
	if ft.Out(ft.NumOut()-1) == errType {
		last := out[len(out)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func (t *Tool) bindArgs(ctx context.Context, args map[string]any) ([]reflect.Value, error) {
	ft := t.fn.Type()
	in := make([]reflect.Value, 0, ft.NumIn())
	next := 0
	if t.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
		next = 1
	}

	if t.structArg != nil {
		pt := ft.In(next)
		sv, err := t.populateStruct(args)
		if err != nil {
			return nil, err
		}
		if pt.Kind() == reflect.Pointer {
			ptr := reflect.New(t.structArg)
			ptr.Elem().Set(sv)
			in = append(in, ptr)
		} else {
			in = append(in, sv)
		}
		return in, nil
	}

	for i, arg := range t.spec.Args {
		pt := ft.In(next + i)
		v, ok := args[arg.Name]
		if !ok || v == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		cv, err := convertValue(v, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: tool %s argument %s: %v", ErrBadArgument, t.name, arg.Name, err)
		}
		in = append(in, cv)
	}
	return in, nil
}

func (t *Tool) populateStruct(args map[string]any) (reflect.Value, error) {
	sv := reflect.New(t.structArg).Elem()
	for i := 0; i < t.structArg.NumField(); i++ {
		f := t.structArg.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldArgName(f)
		if name == "" {
			continue
		}
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		cv, err := convertValue(v, f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: tool %s argument %s: %v", ErrBadArgument, t.name, name, err)
		}
		sv.Field(i).Set(cv)
	}
	return sv, nil
}

// fieldArgName mirrors the analyzer's naming rule: json tag first, then the
// snake_case field name; json:"-" hides the field.
func fieldArgName(f reflect.StructField) string {
	return stringutils.FieldName(f.Name, f.Tag.Get("json"))
}

// convertValue adapts a decoded payload value to the parameter type. Numeric
// widths convert when the value fits; slices and maps convert elementwise.
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		ev, err := convertValue(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(ev)
		return ptr, nil

	case reflect.Slice:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
		}
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := convertValue(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case reflect.Map:
		if rv.Kind() != reflect.Map {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
		}
		out := reflect.MakeMapWithSize(t, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			kv, err := convertValue(iter.Key().Interface(), t.Key())
			if err != nil {
				return reflect.Value{}, err
			}
			vv, err := convertValue(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(kv, vv)
		}
		return out, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return rv.Convert(t), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}
