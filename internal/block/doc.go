// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package block provides the Go representation of the visual editor's
// building blocks.
//
// # Core Concepts
//
//   - Type: the reusable definition of a block. It declares which input
//     slots the block exposes (value or statement), which literal fields it
//     carries (text or number), and whether the block itself produces a
//     value or a statement. A Type is immutable once registered.
//
//   - Instance: one placed block. It references a Type by name, holds the
//     concrete field values the user typed, and points at the child
//     Instances plugged into its input slots and at the next statement in
//     its stack. The editor owns the graph; generators only read it.
//
// Why separate Type and Instance?
//
// A block type is declared once and placed many times. Every
// question about defaults ("what does an empty NAME slot mean?") is answered
// by the Type, so a generator never has to hard-code it, and a missing Type
// for an Instance is detected in one place.
//
// Definitions are read from two sources: HCL files (`block "name" {}`) and
// the editor's JSON array format. Both parsers report malformed entries as
// diagnostics and keep going, so one broken definition never hides the rest.
package block
