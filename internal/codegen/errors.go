package codegen

import "fmt"

// GenerationError reports a block that could not be turned into code. The
// walk stops at the failing root; text generated for earlier roots is still
// returned alongside the error.
type GenerationError struct {
	BlockID string
	Type    string
	Reason  string
	Err     error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("cannot generate block %q of type %q: %s", e.BlockID, e.Type, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }
