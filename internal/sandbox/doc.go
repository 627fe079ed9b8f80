// Package sandbox runs generated programs with an explicit set of injected
// collaborators and captures everything they print into an ordered,
// tagged execution log.
//
// Nothing process-wide is touched: the `console` a program sees is a
// namespace bound to the Log passed to that one Execute call.
package sandbox
