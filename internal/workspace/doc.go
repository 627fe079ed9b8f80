// Package workspace reads block graphs saved by the editor (Blockly JSON or
// HCL) into block instances, and snapshots them as flows for export.
package workspace
