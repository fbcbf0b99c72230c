package app

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// decodeMessage flattens a dynamic request message into the named argument
// map tools are called with. Nested messages become nested maps.
func decodeMessage(msg protoreflect.Message) map[string]any {
	out := make(map[string]any)
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		out[string(fd.Name())] = decodeValue(fd, v)
		return true
	})
	return out
}

func decodeValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	if fd.IsList() {
		list := v.List()
		out := make([]any, 0, list.Len())
		for i := 0; i < list.Len(); i++ {
			out = append(out, decodeSingular(fd, list.Get(i)))
		}
		return out
	}
	return decodeSingular(fd, v)
}

func decodeSingular(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.MessageKind:
		return decodeMessage(v.Message())
	case protoreflect.EnumKind:
		return int32(v.Enum())
	default:
		return v.Interface()
	}
}

// encodeField assigns a Go value produced by a tool to one field of a dynamic
// message, converting element by element for lists and recursing for nested
// messages.
func encodeField(msg *dynamicpb.Message, fd protoreflect.FieldDescriptor, v any) error {
	if v == nil {
		return nil
	}
	if fd.IsList() {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("field %s is repeated, got %T", fd.Name(), v)
		}
		list := msg.Mutable(fd).List()
		for i := 0; i < rv.Len(); i++ {
			pv, err := encodeSingular(fd, rv.Index(i).Interface())
			if err != nil {
				return err
			}
			list.Append(pv)
		}
		return nil
	}
	pv, err := encodeSingular(fd, v)
	if err != nil {
		return err
	}
	msg.Set(fd, pv)
	return nil
}

func encodeSingular(fd protoreflect.FieldDescriptor, v any) (protoreflect.Value, error) {
	rv := reflect.ValueOf(v)
	switch fd.Kind() {
	case protoreflect.StringKind:
		if rv.Kind() == reflect.String {
			return protoreflect.ValueOfString(rv.String()), nil
		}
	case protoreflect.BoolKind:
		if rv.Kind() == reflect.Bool {
			return protoreflect.ValueOfBool(rv.Bool()), nil
		}
	case protoreflect.BytesKind:
		if b, ok := v.([]byte); ok {
			return protoreflect.ValueOfBytes(b), nil
		}
	case protoreflect.Int32Kind:
		if rv.CanInt() {
			return protoreflect.ValueOfInt32(int32(rv.Int())), nil
		}
	case protoreflect.Int64Kind:
		if rv.CanInt() {
			return protoreflect.ValueOfInt64(rv.Int()), nil
		}
		if rv.CanUint() {
			return protoreflect.ValueOfInt64(int64(rv.Uint())), nil
		}
	case protoreflect.Uint32Kind:
		if rv.CanUint() {
			return protoreflect.ValueOfUint32(uint32(rv.Uint())), nil
		}
	case protoreflect.Uint64Kind:
		if rv.CanUint() {
			return protoreflect.ValueOfUint64(rv.Uint()), nil
		}
	case protoreflect.FloatKind:
		if rv.CanFloat() {
			return protoreflect.ValueOfFloat32(float32(rv.Float())), nil
		}
	case protoreflect.DoubleKind:
		if rv.CanFloat() {
			return protoreflect.ValueOfFloat64(rv.Float()), nil
		}
	case protoreflect.EnumKind:
		if rv.CanInt() {
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(rv.Int())), nil
		}
	case protoreflect.MessageKind:
		return encodeMessageValue(fd, v)
	}
	return protoreflect.Value{}, fmt.Errorf("cannot encode %T into %s field %s", v, fd.Kind(), fd.Name())
}

func encodeMessageValue(fd protoreflect.FieldDescriptor, v any) (protoreflect.Value, error) {
	nested := dynamicpb.NewMessage(fd.Message())
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return protoreflect.ValueOfMessage(nested), nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return protoreflect.Value{}, fmt.Errorf("cannot encode %T as message %s", v, fd.Message().FullName())
	}

	fields := fd.Message().Fields()
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := structFieldName(sf)
		if name == "" {
			continue
		}
		nfd := fields.ByName(protoreflect.Name(name))
		if nfd == nil {
			continue
		}
		if err := encodeField(nested, nfd, rv.Field(i).Interface()); err != nil {
			return protoreflect.Value{}, err
		}
	}
	return protoreflect.ValueOfMessage(nested), nil
}
