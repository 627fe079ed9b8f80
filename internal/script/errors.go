package script

import "fmt"

// SyntaxError is a program text that is not part of the language.
type SyntaxError struct {
	Pos     Pos
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (%s)", e.Message, e.Pos)
}

// Responder is implemented by host function errors that carry the remote
// response which caused them.
type Responder interface {
	Response() any
}

// RuntimeError is raised while a program runs.
type RuntimeError struct {
	Message string
	// Response is the payload of the failed remote call, if any.
	Response any
	// Trace lists the active calls, innermost first, in the usual
	// "    at name (line:col)" form.
	Trace string
	Pos   Pos
	Err   error
}

func (e *RuntimeError) Error() string { return e.Message }

func (e *RuntimeError) Unwrap() error { return e.Err }
