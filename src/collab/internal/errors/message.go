package errors

import "fmt"

// UnknownMessageTypeError indicates that a relay message carries a tag this tab does not handle.
type UnknownMessageTypeError struct {
	Type string
}

// Error is an implementation of the error interface.
func (n *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", n.Type)
}

// UpdateByteError indicates that an update payload carried a value that is not a byte.
type UpdateByteError struct {
	Index int
	Value int
}

// Error is an implementation of the error interface.
func (n *UpdateByteError) Error() string {
	return fmt.Sprintf("update value %d at index %d is outside the byte range", n.Value, n.Index)
}

