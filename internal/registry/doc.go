// Package registry is the Block Definition Registry.
//
// It holds one name-keyed mapping of block definitions for an editor
// session. Definitions are registered at startup from the built-in set and
// from definition files; registering a name twice keeps the later entry.
// Once the loading phase ends with Seal, the mapping is read-only.
//
// Malformed definitions are rejected one at a time. A bad entry is logged
// and skipped, and loading continues with the rest.
package registry
