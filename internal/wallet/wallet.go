// Package wallet holds the account a run signs with. Only the connected
// signer and its public address leave the package; the key material does
// not.
package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
)

// ErrNotConnected is returned when an operation needs a connected account.
var ErrNotConnected = errors.New("wallet is not connected")

// Wallet is a single-account wallet. The zero value is disconnected.
type Wallet struct {
	mu      sync.RWMutex
	account *crypto.Account
}

// New returns a disconnected wallet.
func New() *Wallet { return &Wallet{} }

// Connect derives the account from a 25-word mnemonic.
func (w *Wallet) Connect(ctx context.Context, phrase string) error {
	sk, err := mnemonic.ToPrivateKey(phrase)
	if err != nil {
		return fmt.Errorf("invalid mnemonic: %w", err)
	}
	account, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return fmt.Errorf("failed to derive account: %w", err)
	}

	w.mu.Lock()
	w.account = &account
	w.mu.Unlock()

	ctxlog.FromContext(ctx).Info("Wallet connected.", "address", Short(account.Address.String()))
	return nil
}

// Disconnect forgets the account.
func (w *Wallet) Disconnect(ctx context.Context) {
	w.mu.Lock()
	was := w.account != nil
	w.account = nil
	w.mu.Unlock()

	if was {
		ctxlog.FromContext(ctx).Info("Wallet disconnected.")
	}
}

// Connected reports whether an account is connected.
func (w *Wallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.account != nil
}

// Address returns the connected address, or "".
func (w *Wallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.account == nil {
		return ""
	}
	return w.account.Address.String()
}

// ShortAddress returns the address as its first and last four characters,
// e.g. "ABCD...WXYZ".
func (w *Wallet) ShortAddress() string {
	return Short(w.Address())
}

// Short abbreviates an address for display.
func Short(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

// ActiveSigner returns the connected account as a signer.
func (w *Wallet) ActiveSigner() (chain.Signer, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.account == nil {
		return nil, ErrNotConnected
	}
	return &signer{address: w.account.Address, key: w.account.PrivateKey}, nil
}

// Balance returns the connected account's balance in microAlgos.
func (w *Wallet) Balance(ctx context.Context, node chain.Node) (uint64, error) {
	addr := w.Address()
	if addr == "" {
		return 0, ErrNotConnected
	}
	acct, err := node.AccountInformation(ctx, addr)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// signer keeps its own copy of the key so a later Disconnect does not
// affect a run already in flight.
type signer struct {
	address types.Address
	key     ed25519.PrivateKey
}

func (s *signer) Address() string { return s.address.String() }

func (s *signer) SignTransaction(tx types.Transaction) (string, []byte, error) {
	return crypto.SignTransaction(s.key, tx)
}
