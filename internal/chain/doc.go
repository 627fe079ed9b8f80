// Package chain is the blockchain collaborator injected into generated
// programs. It talks to an algod node through the Node interface and turns
// one run's state (signer, suggested parameters, the application created
// last) into the script bindings the stock blocks call.
package chain
