package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Signer is the connected account a run signs with.
type Signer interface {
	Address() string
	SignTransaction(tx types.Transaction) (txid string, signed []byte, err error)
}

// Session is the chain state of one run.
type Session struct {
	node   Node
	signer Signer
	params types.SuggestedParams

	mu       sync.Mutex
	lastApp  uint64
	programs map[string][]byte
}

// NewSession fetches the suggested parameters every transaction of the run
// is built with. signer may be nil; actions that need to sign then fail
// with ErrNoSigner.
func NewSession(ctx context.Context, node Node, signer Signer) (*Session, error) {
	params, err := node.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Fetched suggested params.",
		"first_round", uint64(params.FirstRoundValid), "fee", uint64(params.Fee), "genesis_id", params.GenesisID)
	return &Session{
		node:     node,
		signer:   signer,
		params:   params,
		programs: make(map[string][]byte),
	}, nil
}

// Params returns the suggested parameters of the session.
func (s *Session) Params() types.SuggestedParams { return s.params }

// LastApplication returns the id of the application created last in this
// session, or 0.
func (s *Session) LastApplication() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastApp
}

// Bindings returns the collaborators a generated program may use: the
// algosdk helpers, the algodClient, the network params, and one function
// per stock block action. ctx bounds every node call made through them.
func (s *Session) Bindings(ctx context.Context) script.Bindings {
	return script.Bindings{
		"algosdk":     script.NamespaceOf(sdkNamespace()),
		"algodClient": script.NamespaceOf(s.clientNamespace(ctx)),
		"params":      script.ValueOf(paramsValue(s.params)),

		"createApplication": script.FuncOf(s.createApplication(ctx)),
		"callApplication":   script.FuncOf(s.callApplication(ctx)),
		"makePayment":       script.FuncOf(s.makePayment(ctx)),
		"configureAsset":    script.FuncOf(s.configureAsset(ctx)),
		"getGlobalState":    script.FuncOf(s.getGlobalState(ctx)),
		"getLocalState":     script.FuncOf(s.getLocalState(ctx)),
	}
}

func paramsValue(sp types.SuggestedParams) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"fee":         cty.NumberUIntVal(uint64(sp.Fee)),
		"minFee":      cty.NumberUIntVal(sp.MinFee),
		"flatFee":     cty.BoolVal(sp.FlatFee),
		"firstRound":  cty.NumberUIntVal(uint64(sp.FirstRoundValid)),
		"lastRound":   cty.NumberUIntVal(uint64(sp.LastRoundValid)),
		"genesisID":   cty.StringVal(sp.GenesisID),
		"genesisHash": cty.StringVal(base64.StdEncoding.EncodeToString(sp.GenesisHash)),
	})
}

// signer returns the connected signer and its decoded address.
func (s *Session) sender() (Signer, types.Address, error) {
	if s.signer == nil {
		return nil, types.Address{}, ErrNoSigner
	}
	addr, err := types.DecodeAddress(s.signer.Address())
	if err != nil {
		return nil, types.Address{}, fmt.Errorf("invalid signer address: %w", err)
	}
	return s.signer, addr, nil
}

// send signs tx, submits it and waits for it to be committed.
func (s *Session) send(ctx context.Context, signer Signer, tx types.Transaction) (Confirmation, error) {
	logger := ctxlog.FromContext(ctx)

	txid, signed, err := signer.SignTransaction(tx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	logger.Debug("Submitting transaction.", "txid", txid, "type", string(tx.Type))
	if _, err := s.node.Submit(ctx, signed); err != nil {
		return Confirmation{}, err
	}
	conf, err := s.node.WaitForConfirmation(ctx, txid)
	if err != nil {
		return Confirmation{}, err
	}
	if conf.TxID == "" {
		conf.TxID = txid
	}
	logger.Info("Transaction confirmed.", "txid", conf.TxID, "round", conf.Round)
	return conf, nil
}

// compile compiles source once per session.
func (s *Session) compile(ctx context.Context, source string) ([]byte, error) {
	s.mu.Lock()
	program, ok := s.programs[source]
	s.mu.Unlock()
	if ok {
		return program, nil
	}

	program, err := s.node.Compile(ctx, source)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.programs[source] = program
	s.mu.Unlock()
	return program, nil
}
