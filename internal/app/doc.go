// Package app contains the core application logic. It wires the block
// registry, the code generator, the toolbox, the wallet and the run
// pipeline together, and dispatches the command chosen on the command
// line, decoupled from any specific entrypoint like a CLI or server.
package app
