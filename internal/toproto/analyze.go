package toproto

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/porcini-dev/porcini/internal/shared/stringutils"
)

// Arg is one analyzed parameter: its schema name, its Go type and an
// optional description.
type Arg struct {
	Name string
	Type reflect.Type
	Doc  string
}

// FunctionSpec is the analyzed shape of one function: ordered typed args,
// the result type and the streaming classification. It is the transient
// input to the Converter.
type FunctionSpec struct {
	Name      string
	Args      []Arg
	Return    reflect.Type
	Doc       string
	Streaming bool
}

// ServiceFunctions groups the analyzed methods of one receiver type.
type ServiceFunctions struct {
	Name      string
	Doc       string
	Functions []FunctionSpec
}

// AnalyzeOption customizes a single Analyze call.
type AnalyzeOption func(*analyzeConfig)

type analyzeConfig struct {
	doc      string
	argNames []string
	argDocs  map[string]string
}

// WithDoc sets the function description carried into the synthesized method.
func WithDoc(doc string) AnalyzeOption {
	return func(c *analyzeConfig) { c.doc = doc }
}

// WithArgNames names the parameters of a plain (non args-struct) function,
// in declaration order. Without it, multi-parameter functions fail analysis:
// Go reflection cannot recover parameter names.
func WithArgNames(names ...string) AnalyzeOption {
	return func(c *analyzeConfig) { c.argNames = names }
}

// WithArgDoc attaches a description to one named argument.
func WithArgDoc(arg, doc string) AnalyzeOption {
	return func(c *analyzeConfig) {
		if c.argDocs == nil {
			c.argDocs = make(map[string]string)
		}
		c.argDocs[arg] = doc
	}
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Analyze inspects a function value and produces its FunctionSpec.
//
// A leading context.Context parameter and a trailing error result are
// protocol plumbing and never become schema fields. Arguments come either
// from a single args-struct parameter (each exported field is one argument,
// named by its json tag or the snake_case field name, described by its desc
// tag) or from plain parameters named via WithArgNames. Functions whose
// parameters or result carry no concrete type fail with ErrMissingAnnotation.
//
// A result of type <-chan T or iter.Seq[T] classifies the function as
// streaming, with T as the element type.
func Analyze(name string, fn any, opts ...AnalyzeOption) (FunctionSpec, error) {
	if fn == nil {
		return FunctionSpec{}, fmt.Errorf("%w: nil function %s", ErrUnsupportedType, name)
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return FunctionSpec{}, fmt.Errorf("%w: %s is %s, not a function", ErrUnsupportedType, name, t.Kind())
	}
	cfg := analyzeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return analyzeFunc(name, t, cfg)
}

// AnalyzeService enumerates the exported methods of recv and analyzes each.
// Methods that fail analysis are skipped with a warning rather than failing
// the whole service, so receivers may mix convertible and plain methods.
// name overrides the receiver's type name when non-empty.
func AnalyzeService(recv any, name string) (ServiceFunctions, error) {
	if recv == nil {
		return ServiceFunctions{}, fmt.Errorf("%w: nil service receiver", ErrUnsupportedType)
	}
	v := reflect.ValueOf(recv)
	t := v.Type()

	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return ServiceFunctions{}, fmt.Errorf("%w: service receiver must be a struct, got %s", ErrUnsupportedType, base.Kind())
	}
	if name == "" {
		name = base.Name()
	}
	if err := ValidateName(name); err != nil {
		return ServiceFunctions{}, err
	}

	svc := ServiceFunctions{Name: name}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		spec, err := analyzeFunc(m.Name, v.Method(i).Type(), analyzeConfig{})
		if err != nil {
			slog.Warn("skipping method during service analysis",
				"service", name, "method", m.Name, "error", err)
			continue
		}
		svc.Functions = append(svc.Functions, spec)
	}
	return svc, nil
}

func analyzeFunc(name string, t reflect.Type, cfg analyzeConfig) (FunctionSpec, error) {
	if err := ValidateName(name); err != nil {
		return FunctionSpec{}, err
	}

	in := make([]reflect.Type, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in = append(in, t.In(i))
	}
	if len(in) > 0 && in[0] == ctxType {
		in = in[1:]
	}

	args, err := analyzeArgs(name, in, cfg)
	if err != nil {
		return FunctionSpec{}, err
	}

	ret, streaming, err := analyzeReturn(name, t)
	if err != nil {
		return FunctionSpec{}, err
	}

	return FunctionSpec{
		Name:      name,
		Args:      args,
		Return:    ret,
		Doc:       cfg.doc,
		Streaming: streaming,
	}, nil
}

func analyzeArgs(name string, in []reflect.Type, cfg analyzeConfig) ([]Arg, error) {
	switch {
	case len(in) == 0:
		return nil, nil

	case len(cfg.argNames) > 0:
		if len(cfg.argNames) != len(in) {
			return nil, fmt.Errorf("%w: %s has %d parameters but %d names were given",
				ErrMissingAnnotation, name, len(in), len(cfg.argNames))
		}
		args := make([]Arg, 0, len(in))
		for i, t := range in {
			if err := checkConcrete(name, cfg.argNames[i], t); err != nil {
				return nil, err
			}
			args = append(args, Arg{
				Name: cfg.argNames[i],
				Type: t,
				Doc:  cfg.argDocs[cfg.argNames[i]],
			})
		}
		return args, nil

	case len(in) == 1 && in[0].Kind() == reflect.Struct:
		return structArgs(name, in[0], cfg)

	case len(in) == 1 && in[0].Kind() == reflect.Pointer && in[0].Elem().Kind() == reflect.Struct:
		return structArgs(name, in[0].Elem(), cfg)

	default:
		return nil, fmt.Errorf("%w: %s has unnamed parameters; use an args struct or WithArgNames",
			ErrMissingAnnotation, name)
	}
}

func structArgs(name string, t reflect.Type, cfg analyzeConfig) ([]Arg, error) {
	var args []Arg
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		argName := stringutils.FieldName(f.Name, f.Tag.Get("json"))
		if argName == "" {
			continue
		}
		if err := checkConcrete(name, argName, f.Type); err != nil {
			return nil, err
		}
		doc := f.Tag.Get("desc")
		if doc == "" {
			doc = cfg.argDocs[argName]
		}
		args = append(args, Arg{Name: argName, Type: f.Type, Doc: doc})
	}
	return args, nil
}

func analyzeReturn(name string, t reflect.Type) (reflect.Type, bool, error) {
	out := make([]reflect.Type, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		out = append(out, t.Out(i))
	}
	if len(out) > 0 && out[len(out)-1] == errType {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, false, fmt.Errorf("%w: %s has no result type", ErrMissingAnnotation, name)
	}
	if len(out) > 1 {
		return nil, false, fmt.Errorf("%w: %s has %d results; at most one value and one error",
			ErrUnsupportedAnnotation, name, len(out))
	}

	ret := out[0]
	streaming := false
	if elem, ok := streamElem(ret); ok {
		ret = elem
		streaming = true
	}
	if err := checkConcrete(name, "result", ret); err != nil {
		return nil, false, err
	}
	return ret, streaming, nil
}

// streamElem recognizes the two streaming result shapes: receive channels
// and iter.Seq push iterators (func(yield func(T) bool)).
func streamElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Chan && t.ChanDir() != reflect.SendDir {
		return t.Elem(), true
	}
	if t.Kind() == reflect.Func && t.NumIn() == 1 && t.NumOut() == 0 {
		yield := t.In(0)
		if yield.Kind() == reflect.Func && yield.NumIn() == 1 &&
			yield.NumOut() == 1 && yield.Out(0).Kind() == reflect.Bool {
			return yield.In(0), true
		}
	}
	return nil, false
}

// checkConcrete rejects interface-typed values: they carry no schema type,
// the Go analog of a missing annotation.
func checkConcrete(fn, arg string, t reflect.Type) error {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Map {
		if t.Kind() == reflect.Map && t.Key().Kind() == reflect.Interface {
			return fmt.Errorf("%w: %s: argument %s has interface-typed map key", ErrMissingAnnotation, fn, arg)
		}
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("%w: %s: argument %s has interface type", ErrMissingAnnotation, fn, arg)
	}
	return nil
}
