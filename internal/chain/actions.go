package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// approvalProgram stores name, details and pricing on create and records
// the method name of every later call.
const approvalProgram = `#pragma version 8
txn ApplicationID
int 0
==
bz handle_call
byte "name"
txna ApplicationArgs 0
app_global_put
byte "details"
txna ApplicationArgs 1
app_global_put
byte "pricing"
txna ApplicationArgs 2
btoi
app_global_put
int 1
return
handle_call:
byte "last_method"
txna ApplicationArgs 0
app_global_put
int 1
return
`

const clearProgram = `#pragma version 8
int 1
return
`

var appGlobalSchema = types.StateSchema{NumUint: 1, NumByteSlice: 3}

// undefined is what an action returns when it has no result.
var undefined = cty.NullVal(cty.DynamicPseudoType)

// action declares a host function with loosely typed positional parameters;
// arguments are converted by the implementation.
func action(desc string, params []string, impl func(args []cty.Value) (cty.Value, error)) function.Function {
	spec := &function.Spec{
		Description: desc,
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return impl(args)
		},
	}
	for _, name := range params {
		spec.Params = append(spec.Params, function.Parameter{
			Name:             name,
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		})
	}
	return function.New(spec)
}

func stringArg(args []cty.Value, i int, name string) (string, error) {
	v, err := convert.Convert(args[i], cty.String)
	if err != nil {
		return "", function.NewArgErrorf(i, "%s must be a string", name)
	}
	if v.IsNull() {
		return "", nil
	}
	return v.AsString(), nil
}

func uintArg(args []cty.Value, i int, name string) (uint64, error) {
	v, err := convert.Convert(args[i], cty.Number)
	if err != nil {
		return 0, function.NewArgErrorf(i, "%s must be a number", name)
	}
	if v.IsNull() {
		return 0, nil
	}
	f := v.AsBigFloat()
	if f.Sign() < 0 || !f.IsInt() {
		return 0, function.NewArgErrorf(i, "%s must be a non-negative integer", name)
	}
	n, acc := f.Uint64()
	if acc != big.Exact {
		return 0, function.NewArgErrorf(i, "%s is out of range", name)
	}
	return n, nil
}

func itob(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func txResult(conf Confirmation, extra map[string]cty.Value) cty.Value {
	attrs := map[string]cty.Value{
		"txId":           cty.StringVal(conf.TxID),
		"confirmedRound": cty.NumberUIntVal(conf.Round),
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}

func (s *Session) createApplication(ctx context.Context) function.Function {
	return action("Deploys an application storing a name, details and a price.",
		[]string{"name", "details", "pricing"},
		func(args []cty.Value) (cty.Value, error) {
			name, err := stringArg(args, 0, "name")
			if err != nil {
				return cty.NilVal, err
			}
			details, err := stringArg(args, 1, "details")
			if err != nil {
				return cty.NilVal, err
			}
			pricing, err := uintArg(args, 2, "pricing")
			if err != nil {
				return cty.NilVal, err
			}
			signer, sender, err := s.sender()
			if err != nil {
				return cty.NilVal, err
			}

			approval, err := s.compile(ctx, approvalProgram)
			if err != nil {
				return cty.NilVal, err
			}
			clearProg, err := s.compile(ctx, clearProgram)
			if err != nil {
				return cty.NilVal, err
			}
			appArgs := [][]byte{[]byte(name), []byte(details), itob(pricing)}
			tx, err := transaction.MakeApplicationCreateTx(false, approval, clearProg,
				appGlobalSchema, types.StateSchema{}, appArgs, nil, nil, nil,
				s.params, sender, nil, types.Digest{}, [32]byte{}, types.Address{})
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to build application create transaction: %w", err)
			}
			conf, err := s.send(ctx, signer, tx)
			if err != nil {
				return cty.NilVal, err
			}

			s.mu.Lock()
			s.lastApp = conf.ApplicationID
			s.mu.Unlock()
			return txResult(conf, map[string]cty.Value{"appId": cty.NumberUIntVal(conf.ApplicationID)}), nil
		})
}

func (s *Session) callApplication(ctx context.Context) function.Function {
	return action("Calls an application with a method name. Application 0 is the one created last.",
		[]string{"appId", "method"},
		func(args []cty.Value) (cty.Value, error) {
			appID, err := uintArg(args, 0, "appId")
			if err != nil {
				return cty.NilVal, err
			}
			method, err := stringArg(args, 1, "method")
			if err != nil {
				return cty.NilVal, err
			}
			if appID == 0 {
				if appID = s.LastApplication(); appID == 0 {
					return cty.NilVal, ErrNoApplication
				}
			}
			signer, sender, err := s.sender()
			if err != nil {
				return cty.NilVal, err
			}

			tx, err := transaction.MakeApplicationNoOpTx(appID, [][]byte{[]byte(method)}, nil, nil, nil,
				s.params, sender, nil, types.Digest{}, [32]byte{}, types.Address{})
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to build application call transaction: %w", err)
			}
			conf, err := s.send(ctx, signer, tx)
			if err != nil {
				return cty.NilVal, err
			}
			return txResult(conf, map[string]cty.Value{"appId": cty.NumberUIntVal(appID)}), nil
		})
}

func (s *Session) makePayment(ctx context.Context) function.Function {
	return action("Sends microAlgos from the connected account.",
		[]string{"receiver", "amount"},
		func(args []cty.Value) (cty.Value, error) {
			receiver, err := stringArg(args, 0, "receiver")
			if err != nil {
				return cty.NilVal, err
			}
			amount, err := uintArg(args, 1, "amount")
			if err != nil {
				return cty.NilVal, err
			}
			signer, sender, err := s.sender()
			if err != nil {
				return cty.NilVal, err
			}

			tx, err := transaction.MakePaymentTxn(sender.String(), receiver, amount, nil, "", s.params)
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to build payment transaction: %w", err)
			}
			conf, err := s.send(ctx, signer, tx)
			if err != nil {
				return cty.NilVal, err
			}
			return txResult(conf, map[string]cty.Value{
				"receiver": cty.StringVal(receiver),
				"amount":   cty.NumberUIntVal(amount),
			}), nil
		})
}

func (s *Session) configureAsset(ctx context.Context) function.Function {
	return action("Creates an asset managed by the connected account.",
		[]string{"assetName", "total", "decimals"},
		func(args []cty.Value) (cty.Value, error) {
			name, err := stringArg(args, 0, "assetName")
			if err != nil {
				return cty.NilVal, err
			}
			total, err := uintArg(args, 1, "total")
			if err != nil {
				return cty.NilVal, err
			}
			decimals, err := uintArg(args, 2, "decimals")
			if err != nil {
				return cty.NilVal, err
			}
			if decimals > 19 {
				return cty.NilVal, function.NewArgErrorf(2, "decimals must be at most 19")
			}
			signer, sender, err := s.sender()
			if err != nil {
				return cty.NilVal, err
			}

			manager := sender.String()
			tx, err := transaction.MakeAssetCreateTxn(manager, nil, s.params, total, uint32(decimals), false,
				manager, manager, "", "", unitName(name), name, "", "")
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to build asset create transaction: %w", err)
			}
			conf, err := s.send(ctx, signer, tx)
			if err != nil {
				return cty.NilVal, err
			}
			return txResult(conf, map[string]cty.Value{"assetId": cty.NumberUIntVal(conf.AssetID)}), nil
		})
}

// unitName derives the ticker from the first eight bytes of the name,
// never splitting a character.
func unitName(name string) string {
	if len(name) <= 8 {
		return name
	}
	end := 8
	for end > 0 && !utf8.RuneStart(name[end]) {
		end--
	}
	return name[:end]
}

func (s *Session) getGlobalState(ctx context.Context) function.Function {
	return action("Reads a global state key of the application created last.",
		[]string{"key"},
		func(args []cty.Value) (cty.Value, error) {
			key, err := stringArg(args, 0, "key")
			if err != nil {
				return cty.NilVal, err
			}
			appID := s.LastApplication()
			if appID == 0 {
				return cty.NilVal, ErrNoApplication
			}
			state, err := s.node.ApplicationState(ctx, appID)
			if err != nil {
				return cty.NilVal, err
			}
			return lookup(state, key), nil
		})
}

func (s *Session) getLocalState(ctx context.Context) function.Function {
	return action("Reads a local state key an account holds for the application created last.",
		[]string{"account", "key"},
		func(args []cty.Value) (cty.Value, error) {
			account, err := stringArg(args, 0, "account")
			if err != nil {
				return cty.NilVal, err
			}
			key, err := stringArg(args, 1, "key")
			if err != nil {
				return cty.NilVal, err
			}
			appID := s.LastApplication()
			if appID == 0 {
				return cty.NilVal, ErrNoApplication
			}
			state, err := s.node.LocalState(ctx, account, appID)
			if err != nil {
				return cty.NilVal, err
			}
			return lookup(state, key), nil
		})
}

func lookup(state State, key string) cty.Value {
	if v, ok := state[key]; ok {
		return v
	}
	return undefined
}
