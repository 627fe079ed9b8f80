// Package script implements the small statement language that generated
// programs are written in, and an interpreter for it.
//
// A program is the body of one asynchronous function: a sequence of
// expression statements, const/let/var declarations, assignments to plain
// names and return statements. Expressions cover literals, object and
// array literals, member access, calls, await, unary and binary operators
// and the conditional operator. There are no loops, no function
// definitions and no way to reach the host other than the Bindings passed
// to Run, so every program terminates and touches only what it was given.
//
// Values are go-cty values. Host functions are cty functions; an error
// they return becomes a *RuntimeError, and when that error implements
// Responder its payload is kept as the error's Response.
package script
