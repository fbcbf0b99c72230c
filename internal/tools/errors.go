package tools

import "errors"

var (
	// ErrUnknownTool is returned when a dispatch names a tool never registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrDuplicateTool is returned when two tools claim the same name.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrBadArgument is returned when a call payload cannot be bound to the
	// tool function's parameters.
	ErrBadArgument = errors.New("bad argument")
)
