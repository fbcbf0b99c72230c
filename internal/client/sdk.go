package client

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/porcini-dev/porcini/internal/toproto"
)

// The runtime exposes a small fixed SDK service next to the app's own
// schema. Its descriptor is synthesized here so the client needs no
// generated stubs for it either.

var (
	sdkOnce   sync.Once
	sdkUpdate protoreflect.MethodDescriptor
	sdkErr    error
)

func sdkToolUpdate() (protoreflect.MethodDescriptor, error) {
	sdkOnce.Do(func() {
		reg := toproto.NewRegistry("porcini.sdk")

		req := &toproto.MessageSpec{Name: "ToolUpdateRequest"}
		if sdkErr = req.AddField(toproto.FieldSpec{
			Name: "friendly_description",
			Type: toproto.TypeRef{Kind: toproto.KindString},
		}); sdkErr != nil {
			return
		}
		resp := &toproto.MessageSpec{Name: "ToolUpdateResponse"}
		if sdkErr = resp.AddField(toproto.FieldSpec{
			Name: "ok",
			Type: toproto.TypeRef{Kind: toproto.KindBool},
		}); sdkErr != nil {
			return
		}
		if sdkErr = reg.RegisterMessages(req, resp); sdkErr != nil {
			return
		}

		svc := &toproto.ServiceSpec{Name: "Sdk"}
		if sdkErr = svc.AddMethod(toproto.MethodSpec{
			Name:       "ToolUpdate",
			InputType:  "ToolUpdateRequest",
			OutputType: "ToolUpdateResponse",
		}); sdkErr != nil {
			return
		}
		if sdkErr = reg.RegisterService(svc); sdkErr != nil {
			return
		}

		var fd protoreflect.FileDescriptor
		fd, sdkErr = reg.FileDescriptor("porcini_sdk.proto")
		if sdkErr != nil {
			return
		}
		sdkUpdate = fd.Services().ByName("Sdk").Methods().ByName("ToolUpdate")
	})
	return sdkUpdate, sdkErr
}

// ToolUpdate sends a progress message for the currently running tool call,
// shown to the user while the tool works.
func (c *Client) ToolUpdate(ctx context.Context, message string) error {
	md, err := sdkToolUpdate()
	if err != nil {
		return fmt.Errorf("sdk descriptor: %w", err)
	}
	req := dynamicpb.NewMessage(md.Input())
	req.Set(md.Input().Fields().ByName("friendly_description"), protoreflect.ValueOfString(message))
	_, err = c.Invoke(ctx, md, req)
	return err
}
