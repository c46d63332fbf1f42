package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// ChannelClosedError reports that a broadcast channel was used after it was closed.
	ChannelClosedError = New("broadcast channel is closed")
	// DocumentDestroyedError reports that a replicated document was used after it was destroyed.
	DocumentDestroyedError = New("document has been destroyed")
	// NoNoteIDOnWireError reports that a relay message is missing its note id.
	NoNoteIDOnWireError = New("noteId is required")
	// NoUserOnWireError reports that a presence or leave message is missing its user.
	NoUserOnWireError = New("user is required")
	// NoMessageOnWireError reports that the relay received an empty payload.
	NoMessageOnWireError = New("no message on wire")
)

// IsChannelClosed reports whether the error was caused by posting to a closed channel.
// This is the one transport fault that is expected during shutdown.
func IsChannelClosed(e error) bool {
	return stderr.Is(e, ChannelClosedError)
}

// IsBadMessage reports whether the error is a malformed message from a peer tab.
func IsBadMessage(e error) bool {
	var ub *UpdateByteError
	var ut *UnknownMessageTypeError
	return stderr.Is(e, NoNoteIDOnWireError) ||
		stderr.Is(e, NoUserOnWireError) ||
		stderr.Is(e, NoMessageOnWireError) ||
		stderr.As(e, &ub) ||
		stderr.As(e, &ut)
}
