package chain

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/zclconf/go-cty/cty"
)

// DefaultServer is the public TestNet algod endpoint.
const DefaultServer = "https://testnet-api.algonode.cloud"

// confirmationRounds is how many rounds WaitForConfirmation waits.
const confirmationRounds = 4

// Node is the subset of the algod API a run needs.
type Node interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	Status(ctx context.Context) (Status, error)
	AccountInformation(ctx context.Context, address string) (Account, error)
	// ApplicationState returns the global state of an application.
	ApplicationState(ctx context.Context, id uint64) (State, error)
	// LocalState returns the local state an account holds for an application.
	LocalState(ctx context.Context, address string, id uint64) (State, error)
	Compile(ctx context.Context, source string) ([]byte, error)
	Submit(ctx context.Context, signed []byte) (txid string, err error)
	WaitForConfirmation(ctx context.Context, txid string) (Confirmation, error)
}

// Status is the node's view of the chain.
type Status struct {
	LastRound uint64
}

// Account is the balance information of one address.
type Account struct {
	Address    string
	Amount     uint64
	MinBalance uint64
}

// State is decoded application key/value storage. Byte values are
// strings, integer values are numbers.
type State map[string]cty.Value

// Confirmation describes a committed transaction.
type Confirmation struct {
	TxID          string
	Round         uint64
	ApplicationID uint64
	AssetID       uint64
}

// AlgodNode is a Node backed by the algod REST API.
type AlgodNode struct {
	client *algod.Client
}

var _ Node = (*AlgodNode)(nil)

// Dial creates a client for the algod server. No request is made until
// the first call.
func Dial(server, token string) (*AlgodNode, error) {
	if server == "" {
		server = DefaultServer
	}
	client, err := algod.MakeClient(server, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create algod client for %s: %w", server, err)
	}
	return &AlgodNode{client: client}, nil
}

func (n *AlgodNode) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	sp, err := n.client.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, &RequestError{Op: "getTransactionParams", Err: err}
	}
	return sp, nil
}

func (n *AlgodNode) Status(ctx context.Context) (Status, error) {
	st, err := n.client.Status().Do(ctx)
	if err != nil {
		return Status{}, &RequestError{Op: "status", Err: err}
	}
	return Status{LastRound: st.LastRound}, nil
}

func (n *AlgodNode) AccountInformation(ctx context.Context, address string) (Account, error) {
	acct, err := n.client.AccountInformation(address).Do(ctx)
	if err != nil {
		return Account{}, &RequestError{Op: "accountInformation", Err: err}
	}
	return Account{Address: acct.Address, Amount: acct.Amount, MinBalance: acct.MinBalance}, nil
}

func (n *AlgodNode) ApplicationState(ctx context.Context, id uint64) (State, error) {
	app, err := n.client.GetApplicationByID(id).Do(ctx)
	if err != nil {
		return nil, &RequestError{Op: "getApplicationByID", Err: err}
	}
	return decodeState(app.Params.GlobalState)
}

func (n *AlgodNode) LocalState(ctx context.Context, address string, id uint64) (State, error) {
	resp, err := n.client.AccountApplicationInformation(address, id).Do(ctx)
	if err != nil {
		return nil, &RequestError{Op: "accountApplicationInformation", Err: err}
	}
	return decodeState(resp.AppLocalState.KeyValue)
}

func (n *AlgodNode) Compile(ctx context.Context, source string) ([]byte, error) {
	resp, err := n.client.TealCompile([]byte(source)).Do(ctx)
	if err != nil {
		return nil, &RequestError{Op: "compile", Err: err}
	}
	program, err := base64.StdEncoding.DecodeString(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode compiled program: %w", err)
	}
	return program, nil
}

func (n *AlgodNode) Submit(ctx context.Context, signed []byte) (string, error) {
	txid, err := n.client.SendRawTransaction(signed).Do(ctx)
	if err != nil {
		return "", &RequestError{Op: "sendRawTransaction", Err: err}
	}
	return txid, nil
}

func (n *AlgodNode) WaitForConfirmation(ctx context.Context, txid string) (Confirmation, error) {
	info, err := transaction.WaitForConfirmation(n.client, txid, confirmationRounds, ctx)
	if err != nil {
		return Confirmation{}, &RequestError{Op: "waitForConfirmation", Err: err}
	}
	return Confirmation{
		TxID:          txid,
		Round:         info.ConfirmedRound,
		ApplicationID: info.ApplicationIndex,
		AssetID:       info.AssetIndex,
	}, nil
}

// decodeState converts algod's base64 key/value list.
func decodeState(kvs []models.TealKeyValue) (State, error) {
	state := make(State, len(kvs))
	for _, kv := range kvs {
		key, err := base64.StdEncoding.DecodeString(kv.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid state key %q: %w", kv.Key, err)
		}
		state[string(key)], err = decodeTealValue(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for state key %q: %w", key, err)
		}
	}
	return state, nil
}

const tealTypeBytes = 1

func decodeTealValue(v models.TealValue) (cty.Value, error) {
	if v.Type != tealTypeBytes {
		return cty.NumberUIntVal(v.Uint), nil
	}
	raw, err := base64.StdEncoding.DecodeString(v.Bytes)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(string(raw)), nil
}
