package toproto

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// FileDescriptorProto lowers the registry to a descriptor file proto, the
// form consumed by the protobuf runtime and the platform's schema compiler.
// Field options are a render-time artifact and are not carried over.
func (r *Registry) FileDescriptorProto(filename string) (*descriptorpb.FileDescriptorProto, error) {
	qual := newQualifier(r)

	fdp := &descriptorpb.FileDescriptorProto{
		Name:   proto.String(filename),
		Syntax: proto.String("proto3"),
	}
	if r.Package() != "" {
		fdp.Package = proto.String(r.Package())
	}

	for _, m := range r.Messages() {
		dp, err := qual.messageProto(m)
		if err != nil {
			return nil, err
		}
		fdp.MessageType = append(fdp.MessageType, dp)
	}
	for _, e := range r.Enums() {
		fdp.EnumType = append(fdp.EnumType, enumProto(e))
	}
	for _, s := range r.Services() {
		sp, err := qual.serviceProto(s)
		if err != nil {
			return nil, err
		}
		fdp.Service = append(fdp.Service, sp)
	}
	return fdp, nil
}

// FileDescriptor lowers and links the registry into a live file descriptor,
// from which dynamic messages and full method names can be built.
func (r *Registry) FileDescriptor(filename string) (protoreflect.FileDescriptor, error) {
	fdp, err := r.FileDescriptorProto(filename)
	if err != nil {
		return nil, err
	}
	fd, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		return nil, fmt.Errorf("linking %s: %w", filename, err)
	}
	return fd, nil
}

// qualifier maps the registry's simple type names to the fully qualified
// dotted names field descriptors require.
type qualifier struct {
	names map[string]string
}

func newQualifier(r *Registry) *qualifier {
	q := &qualifier{names: make(map[string]string)}
	prefix := "."
	if r.Package() != "" {
		prefix = "." + r.Package() + "."
	}
	for _, m := range r.Messages() {
		q.collect(m, prefix)
	}
	for _, e := range r.Enums() {
		q.names[e.Name] = prefix + e.Name
	}
	return q
}

func (q *qualifier) collect(m *MessageSpec, prefix string) {
	full := prefix + m.Name
	q.names[m.Name] = full
	for _, e := range m.Enums {
		q.names[e.Name] = full + "." + e.Name
	}
	for _, nested := range m.Messages {
		q.collect(nested, full+".")
	}
}

func (q *qualifier) resolve(owner, field, name string) (string, error) {
	full, ok := q.names[name]
	if !ok {
		return "", fmt.Errorf("%w: field %s.%s references %s", ErrUnresolvedReference, owner, field, name)
	}
	return full, nil
}

var protoTypes = map[FieldKind]descriptorpb.FieldDescriptorProto_Type{
	KindString:  descriptorpb.FieldDescriptorProto_TYPE_STRING,
	KindInt32:   descriptorpb.FieldDescriptorProto_TYPE_INT32,
	KindInt64:   descriptorpb.FieldDescriptorProto_TYPE_INT64,
	KindUint32:  descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	KindUint64:  descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	KindFloat:   descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	KindDouble:  descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	KindBool:    descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	KindBytes:   descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	KindMessage: descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
	KindEnum:    descriptorpb.FieldDescriptorProto_TYPE_ENUM,
}

func (q *qualifier) messageProto(m *MessageSpec) (*descriptorpb.DescriptorProto, error) {
	dp := &descriptorpb.DescriptorProto{Name: proto.String(m.Name)}

	for _, e := range m.Enums {
		dp.EnumType = append(dp.EnumType, enumProto(e))
	}
	for _, nested := range m.Messages {
		np, err := q.messageProto(nested)
		if err != nil {
			return nil, err
		}
		dp.NestedType = append(dp.NestedType, np)
	}

	fields := make([]FieldSpec, len(m.Fields))
	copy(fields, m.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Number < fields[j].Number })

	for _, f := range fields {
		pt, ok := protoTypes[f.Type.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: field %s.%s has no type", ErrUnresolvedReference, m.Name, f.Name)
		}
		label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
		if f.Label == LabelRepeated {
			label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
		}
		fp := &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(f.Name),
			Number: proto.Int32(f.Number),
			Label:  label.Enum(),
			Type:   pt.Enum(),
		}
		if f.Type.Kind == KindMessage || f.Type.Kind == KindEnum {
			full, err := q.resolve(m.Name, f.Name, f.Type.Name)
			if err != nil {
				return nil, err
			}
			fp.TypeName = proto.String(full)
		}
		dp.Field = append(dp.Field, fp)
	}
	return dp, nil
}

func enumProto(e *EnumSpec) *descriptorpb.EnumDescriptorProto {
	ep := &descriptorpb.EnumDescriptorProto{Name: proto.String(e.Name)}
	for _, v := range e.Values {
		ep.Value = append(ep.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v.Name),
			Number: proto.Int32(v.Number),
		})
	}
	return ep
}

func (q *qualifier) serviceProto(s *ServiceSpec) (*descriptorpb.ServiceDescriptorProto, error) {
	sp := &descriptorpb.ServiceDescriptorProto{Name: proto.String(s.Name)}
	for _, m := range s.Methods {
		input, err := q.resolve(s.Name, m.Name, m.InputType)
		if err != nil {
			return nil, err
		}
		output, err := q.resolve(s.Name, m.Name, m.OutputType)
		if err != nil {
			return nil, err
		}
		mp := &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.Name),
			InputType:  proto.String(input),
			OutputType: proto.String(output),
		}
		if m.ClientStreaming {
			mp.ClientStreaming = proto.Bool(true)
		}
		if m.ServerStreaming {
			mp.ServerStreaming = proto.Bool(true)
		}
		sp.Method = append(sp.Method, mp)
	}
	return sp, nil
}
