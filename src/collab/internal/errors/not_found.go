package errors

import (
	stderr "errors"
	"fmt"
)

// NoteNotFoundError indicates that no session has been materialized for a note.
type NoteNotFoundError struct {
	NoteID string
}

// Error is an implementation of the error interface.
func (n *NoteNotFoundError) Error() string {
	return fmt.Sprintf("note %q has no local session", n.NoteID)
}

// NotFoundNoteID returns the note id and true if NoteNotFoundError is part of the
// error chain.
func NotFoundNoteID(e error) (_ string, ok bool) {
	var nf *NoteNotFoundError
	if !stderr.As(e, &nf) {
		return "", false
	}
	return nf.NoteID, true
}
