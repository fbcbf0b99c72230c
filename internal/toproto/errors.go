package toproto

import "errors"

// Sentinel errors for the converter. Callers match with errors.Is; the
// wrapped message always carries the offending name or type.
var (
	// ErrMissingAnnotation is returned when a parameter or return value has
	// no usable concrete type (interface-typed values, or plain parameters
	// registered without names).
	ErrMissingAnnotation = errors.New("missing type annotation")

	// ErrUnsupportedType is returned when a Go type has no schema mapping.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnsupportedAnnotation is returned for compound type shapes the
	// converter cannot express (e.g. nested repeated fields).
	ErrUnsupportedAnnotation = errors.New("unsupported type annotation")

	// ErrInvalidMapKey is returned for map parameters keyed by anything
	// other than string.
	ErrInvalidMapKey = errors.New("map keys must be strings")

	// ErrDuplicateName is returned when registering a message or service
	// name that is already present. The registry is left unchanged.
	ErrDuplicateName = errors.New("name already registered")

	// ErrUnresolvedReference is returned at render or build time when a
	// field or method references a name absent from the registry.
	ErrUnresolvedReference = errors.New("unresolved type reference")

	// ErrInvalidEnumValue is returned when assigning a name or number that
	// is not present in the enum's value table.
	ErrInvalidEnumValue = errors.New("invalid enum value")

	// ErrRequiredField is returned when a required field is set to nil.
	ErrRequiredField = errors.New("required field cannot be unset")

	// ErrInvalidValue is returned when an assigned value cannot be coerced
	// to the field's kind (e.g. a scalar assigned to a repeated field).
	ErrInvalidValue = errors.New("invalid value for field")

	// ErrInvalidName is returned for identifiers that are not valid schema
	// names (bad characters or reserved words).
	ErrInvalidName = errors.New("invalid identifier")

	// ErrUnknownField is returned by message accessors for field names not
	// present in the message descriptor.
	ErrUnknownField = errors.New("unknown field")
)
