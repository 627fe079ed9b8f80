package chain

import (
	"context"
	"math/big"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/specialistvlad/algoflow/internal/script"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

const microalgosPerAlgo = 1_000_000

func numberArg(args []cty.Value, i int, name string) (*big.Float, error) {
	v := args[i]
	if v.IsNull() || v.Type() != cty.Number {
		return nil, function.NewArgErrorf(i, "%s must be a number", name)
	}
	return v.AsBigFloat(), nil
}

// sdkNamespace holds the unit and address helpers of the algosdk binding.
func sdkNamespace() script.Namespace {
	return script.Namespace{
		"microalgosToAlgos": script.FuncOf(action("Converts microAlgos to Algos.", []string{"microalgos"},
			func(args []cty.Value) (cty.Value, error) {
				n, err := numberArg(args, 0, "microalgos")
				if err != nil {
					return cty.NilVal, err
				}
				return cty.NumberVal(new(big.Float).Quo(n, big.NewFloat(microalgosPerAlgo))), nil
			})),
		"algosToMicroalgos": script.FuncOf(action("Converts Algos to microAlgos, rounding to the nearest unit.", []string{"algos"},
			func(args []cty.Value) (cty.Value, error) {
				n, err := numberArg(args, 0, "algos")
				if err != nil {
					return cty.NilVal, err
				}
				scaled := new(big.Float).Mul(n, big.NewFloat(microalgosPerAlgo))
				scaled.Add(scaled, big.NewFloat(0.5))
				rounded, _ := scaled.Int(nil)
				return cty.NumberVal(new(big.Float).SetInt(rounded)), nil
			})),
		"isValidAddress": script.FuncOf(action("Reports whether a string is a valid account address.", []string{"address"},
			func(args []cty.Value) (cty.Value, error) {
				addr, err := stringArg(args, 0, "address")
				if err != nil {
					return cty.NilVal, err
				}
				_, err = types.DecodeAddress(addr)
				return cty.BoolVal(err == nil), nil
			})),
	}
}

// clientNamespace exposes read-only node queries as algodClient members.
func (s *Session) clientNamespace(ctx context.Context) script.Namespace {
	return script.Namespace{
		"status": script.FuncOf(action("Returns the node status.", nil,
			func([]cty.Value) (cty.Value, error) {
				st, err := s.node.Status(ctx)
				if err != nil {
					return cty.NilVal, err
				}
				return cty.ObjectVal(map[string]cty.Value{"lastRound": cty.NumberUIntVal(st.LastRound)}), nil
			})),
		"getTransactionParams": script.FuncOf(action("Returns fresh suggested transaction parameters.", nil,
			func([]cty.Value) (cty.Value, error) {
				sp, err := s.node.SuggestedParams(ctx)
				if err != nil {
					return cty.NilVal, err
				}
				return paramsValue(sp), nil
			})),
		"accountInformation": script.FuncOf(action("Returns the balance of an account.", []string{"address"},
			func(args []cty.Value) (cty.Value, error) {
				addr, err := stringArg(args, 0, "address")
				if err != nil {
					return cty.NilVal, err
				}
				acct, err := s.node.AccountInformation(ctx, addr)
				if err != nil {
					return cty.NilVal, err
				}
				return cty.ObjectVal(map[string]cty.Value{
					"address":    cty.StringVal(acct.Address),
					"amount":     cty.NumberUIntVal(acct.Amount),
					"minBalance": cty.NumberUIntVal(acct.MinBalance),
				}), nil
			})),
	}
}
