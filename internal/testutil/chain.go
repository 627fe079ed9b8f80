package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/specialistvlad/algoflow/internal/chain"
)

// FakeNode is an in-memory chain.Node. Every submitted transaction is
// confirmed in the next round; application and asset ids are assigned from
// NextID.
type FakeNode struct {
	mu sync.Mutex

	Params   types.SuggestedParams
	Round    uint64
	NextID   uint64
	Accounts map[string]chain.Account
	Global   map[uint64]chain.State
	Local    map[string]chain.State // keyed by "address/appID"
	// Fail makes the named operation return a *chain.RequestError.
	Fail map[string]error

	Submitted [][]byte
	Compiled  []string
	Calls     []string
	pending   map[string]types.TxType
}

var _ chain.Node = (*FakeNode)(nil)

// NewFakeNode returns a node on round 1000 of "testnet-v1.0".
func NewFakeNode() *FakeNode {
	return &FakeNode{
		Params: types.SuggestedParams{
			Fee:             1000,
			MinFee:          1000,
			FlatFee:         true,
			FirstRoundValid: 1000,
			LastRoundValid:  2000,
			GenesisID:       "testnet-v1.0",
			GenesisHash:     make([]byte, 32),
		},
		Round:    1000,
		NextID:   100,
		Accounts: make(map[string]chain.Account),
		Global:   make(map[uint64]chain.State),
		Local:    make(map[string]chain.State),
		Fail:     make(map[string]error),
		pending:  make(map[string]types.TxType),
	}
}

// LocalKey is the Local map key of an account's state in an application.
func LocalKey(address string, appID uint64) string {
	return fmt.Sprintf("%s/%d", address, appID)
}

func (n *FakeNode) call(op string) error {
	n.Calls = append(n.Calls, op)
	if err, ok := n.Fail[op]; ok {
		return &chain.RequestError{Op: op, Err: err}
	}
	return nil
}

// CallCount returns how many times op was called.
func (n *FakeNode) CallCount(op string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, c := range n.Calls {
		if c == op {
			count++
		}
	}
	return count
}

func (n *FakeNode) SuggestedParams(context.Context) (types.SuggestedParams, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("getTransactionParams"); err != nil {
		return types.SuggestedParams{}, err
	}
	return n.Params, nil
}

func (n *FakeNode) Status(context.Context) (chain.Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("status"); err != nil {
		return chain.Status{}, err
	}
	return chain.Status{LastRound: n.Round}, nil
}

func (n *FakeNode) AccountInformation(_ context.Context, address string) (chain.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("accountInformation"); err != nil {
		return chain.Account{}, err
	}
	acct, ok := n.Accounts[address]
	if !ok {
		return chain.Account{Address: address}, nil
	}
	return acct, nil
}

func (n *FakeNode) ApplicationState(_ context.Context, id uint64) (chain.State, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("getApplicationByID"); err != nil {
		return nil, err
	}
	return n.Global[id], nil
}

func (n *FakeNode) LocalState(_ context.Context, address string, id uint64) (chain.State, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("accountApplicationInformation"); err != nil {
		return nil, err
	}
	return n.Local[LocalKey(address, id)], nil
}

func (n *FakeNode) Compile(_ context.Context, source string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("compile"); err != nil {
		return nil, err
	}
	n.Compiled = append(n.Compiled, source)
	return []byte{0x08, 0x81, 0x01}, nil
}

// Submit decodes the signed transaction so that its confirmation carries
// the id of a created application or asset.
func (n *FakeNode) Submit(_ context.Context, signed []byte) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("sendRawTransaction"); err != nil {
		return "", err
	}
	var stx types.SignedTxn
	if err := msgpack.Decode(signed, &stx); err != nil {
		return "", &chain.RequestError{Op: "sendRawTransaction", Err: err}
	}
	n.Submitted = append(n.Submitted, signed)
	txid := crypto.GetTxID(stx.Txn)
	if stx.Txn.Type != types.ApplicationCallTx || stx.Txn.ApplicationID == 0 {
		n.pending[txid] = stx.Txn.Type
	}
	return txid, nil
}

func (n *FakeNode) WaitForConfirmation(_ context.Context, txid string) (chain.Confirmation, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call("waitForConfirmation"); err != nil {
		return chain.Confirmation{}, err
	}
	n.Round++
	conf := chain.Confirmation{TxID: txid, Round: n.Round}
	switch n.pending[txid] {
	case types.ApplicationCallTx:
		conf.ApplicationID = n.NextID
		n.NextID++
	case types.AssetConfigTx:
		conf.AssetID = n.NextID
		n.NextID++
	}
	delete(n.pending, txid)
	return conf, nil
}

// FakeSigner signs with a freshly generated account.
type FakeSigner struct {
	Account crypto.Account

	mu     sync.Mutex
	Signed []types.Transaction
}

// NewFakeSigner generates a new account.
func NewFakeSigner() *FakeSigner {
	return &FakeSigner{Account: crypto.GenerateAccount()}
}

func (s *FakeSigner) Address() string { return s.Account.Address.String() }

func (s *FakeSigner) SignTransaction(tx types.Transaction) (string, []byte, error) {
	txid, signed, err := crypto.SignTransaction(s.Account.PrivateKey, tx)
	if err != nil {
		return "", nil, err
	}
	s.mu.Lock()
	s.Signed = append(s.Signed, tx)
	s.mu.Unlock()
	return txid, signed, nil
}
