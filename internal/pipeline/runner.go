// Package pipeline runs a block graph end to end: generate the program,
// connect to the node, execute in the sandbox, and report every step in
// the execution log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/sandbox"
)

// ErrRunInFlight is returned when a run is requested while another one has
// not finished.
var ErrRunInFlight = errors.New("a run is already in progress")

// Dialer opens the node a run talks to.
type Dialer func(ctx context.Context) (chain.Node, error)

// SignerSource provides the account a run signs with.
type SignerSource interface {
	ActiveSigner() (chain.Signer, error)
}

// Runner executes runs one at a time. All fields except Wallet and
// Notifier are required.
type Runner struct {
	Generator *codegen.Generator
	Dial      Dialer
	Wallet    SignerSource
	Log       *sandbox.Log
	Notifier  Notifier

	inFlight atomic.Bool
}

// Result describes a finished run.
type Result struct {
	ID      string
	Program string
	Outcome sandbox.Outcome
}

// Busy reports whether a run is in progress.
func (r *Runner) Busy() bool { return r.inFlight.Load() }

// Run generates the program for roots and executes it. A failing run is
// not an error of Run: it is written to the log and reported in
// Result.Outcome. The error is only ErrRunInFlight.
func (r *Runner) Run(ctx context.Context, roots []*block.Instance) (Result, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrRunInFlight
	}
	defer r.inFlight.Store(false)

	res := Result{ID: uuid.NewString()}
	ctx = ctxlog.With(ctx, "run_id", res.ID)
	logger := ctxlog.FromContext(ctx)
	log := r.Log
	started := time.Now()

	log.Reset()
	log.Append(sandbox.TagInfo, "Starting smart contract deployment...")
	r.notify(ctx, Notification{
		Title:       "Running Contract",
		Description: "Your smart contract is being executed...",
		Duration:    3 * time.Second,
	})
	logger.Info("Run started.", "roots", len(roots))

	program, err := r.Generator.Generate(ctx, roots)
	res.Program = program
	if err != nil {
		return r.fail(ctx, res, err), nil
	}

	log.Append(sandbox.TagInfo, "Connecting to Algorand TestNet...")
	node, err := r.Dial(ctx)
	if err != nil {
		return r.fail(ctx, res, err), nil
	}

	var signer chain.Signer
	if r.Wallet != nil {
		if signer, err = r.Wallet.ActiveSigner(); err != nil {
			logger.Warn("Running without a connected wallet; signing actions will fail.", "error", err)
			signer = nil
		}
	}

	log.Append(sandbox.TagInfo, "Fetching transaction parameters...")
	session, err := chain.NewSession(ctx, node, signer)
	if err != nil {
		return r.fail(ctx, res, err), nil
	}
	params := session.Params()
	log.Appendf(sandbox.TagInfo, "Current round: %d", uint64(params.FirstRoundValid))
	log.Appendf(sandbox.TagInfo, "Fee: %d microAlgos", uint64(params.Fee))
	log.Appendf(sandbox.TagInfo, "Genesis ID: %s", params.GenesisID)
	log.Append(sandbox.TagInfo, "Executing contract deployment...")
	log.Append(sandbox.TagNone, sandbox.Separator)

	res.Outcome = sandbox.Execute(ctx, program, session.Bindings(ctx), log)
	if res.Outcome.Failed() {
		r.failed(ctx, res.Outcome.Err)
		return res, nil
	}

	if res.Outcome.Defined() {
		log.Appendf(sandbox.TagResult, "%s", sandbox.Render(res.Outcome.Result))
	}
	log.Append(sandbox.TagNone, sandbox.Separator)
	log.Append(sandbox.TagSuccess, "Contract deployment completed successfully!")
	r.notify(ctx, Notification{
		Title:       "Contract Execution Complete",
		Description: "Check terminal for output.",
		Duration:    3 * time.Second,
	})
	logger.Info("Run finished.", "duration", time.Since(started))
	return res, nil
}

// fail reports an error raised outside the sandbox the way the sandbox
// reports its own.
func (r *Runner) fail(ctx context.Context, res Result, err error) Result {
	sandbox.ReportFailure(r.Log, err)
	res.Outcome = sandbox.Outcome{Err: err}
	r.failed(ctx, err)
	return res
}

func (r *Runner) failed(ctx context.Context, err error) {
	ctxlog.FromContext(ctx).Error("Run failed.", "error", err)
	r.notify(ctx, Notification{
		Title:       "Contract Execution Failed",
		Description: message(err),
		Duration:    5 * time.Second,
		Destructive: true,
	})
}

func (r *Runner) notify(ctx context.Context, n Notification) {
	if r.Notifier != nil {
		r.Notifier.Notify(ctx, n)
	}
}

// message is the user-facing text of err.
func message(err error) string {
	var gen *codegen.GenerationError
	if errors.As(err, &gen) {
		return fmt.Sprintf("Block %s could not be generated: %s", gen.BlockID, gen.Reason)
	}
	return err.Error()
}
