package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sigweihq/rafflemint/pkg/chains"
	"github.com/sigweihq/rafflemint/pkg/pricing"
	"github.com/sigweihq/rafflemint/pkg/router"
	"github.com/sigweihq/rafflemint/pkg/session"
	"github.com/sigweihq/rafflemint/pkg/storage"
	"github.com/sigweihq/rafflemint/pkg/types"
)

// Stage is how far a mint attempt progressed
type Stage int

const (
	StageIdle Stage = iota
	StagePreconditionCheck
	StagePaymentSubmitted
	StagePaymentConfirmed
	StageIssuanceRequested
	StageSettled
)

var stageNames = [...]string{
	"idle",
	"precondition_check",
	"payment_submitted",
	"payment_confirmed",
	"issuance_requested",
	"settled",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Issuer requests ticket issuance once payment is confirmed
type Issuer interface {
	Mint(ctx context.Context, req *types.MintRequest, idempotencyKey string) (*types.MintResponse, error)
}

// Router presents a finished outcome to the user
type Router interface {
	Route(outcome router.Outcome)
}

// Outcome is the terminal result of one Mint call
type Outcome struct {
	AttemptID string
	// Stage is the last stage reached
	Stage    Stage
	Quote    *pricing.Instruction
	TxHash   string
	TokenIDs []uint64
	// Err is nil on success
	Err *MintError
}

// Success reports whether tickets were issued
func (o *Outcome) Success() bool {
	return o.Err == nil && o.Stage == StageSettled
}

// Message is the user-facing failure text, empty on success
func (o *Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Message()
}

func (o *Outcome) routed() router.Outcome {
	return router.Outcome{
		Success:  o.Success(),
		TokenIDs: o.TokenIDs,
		Message:  o.Message(),
	}
}

func (o *Outcome) fail(kind Kind, err error) {
	o.Err = &MintError{Kind: kind, Err: err, TxHash: o.TxHash}
}

// unresolved reports whether the payment may have moved without tickets being issued.
// Only a reverted payment is known to have moved nothing.
func (o *Outcome) unresolved() bool {
	if o.TxHash == "" || o.Success() {
		return false
	}
	return o.Err == nil || !errors.Is(o.Err, chains.ErrTransactionReverted)
}

// Config wires the orchestrator's collaborators.
// Validator and Ledger are optional.
type Config struct {
	Session   *session.Session
	Resolver  *pricing.Resolver
	Wallet    chains.Wallet
	Issuer    Issuer
	Router    Router
	Validator chains.TransactionValidator
	Ledger    storage.Storage
	Network   string
	// ConfirmationTimeout bounds the wait for one confirmation; zero waits indefinitely
	ConfirmationTimeout time.Duration
	Logger              *slog.Logger
}

// Orchestrator runs the pay-then-issue workflow for one session
type Orchestrator struct {
	session             *session.Session
	resolver            *pricing.Resolver
	wallet              chains.Wallet
	issuer              Issuer
	router              Router
	validator           chains.TransactionValidator
	ledger              storage.Storage
	network             string
	confirmationTimeout time.Duration
	logger              *slog.Logger
}

func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Session == nil:
		return nil, fmt.Errorf("session is required")
	case cfg.Resolver == nil:
		return nil, fmt.Errorf("resolver is required")
	case cfg.Wallet == nil:
		return nil, fmt.Errorf("wallet is required")
	case cfg.Issuer == nil:
		return nil, fmt.Errorf("issuer is required")
	case cfg.Router == nil:
		return nil, fmt.Errorf("router is required")
	}
	if cfg.ConfirmationTimeout < 0 {
		return nil, fmt.Errorf("confirmation timeout must not be negative")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		session:             cfg.Session,
		resolver:            cfg.Resolver,
		wallet:              cfg.Wallet,
		issuer:              cfg.Issuer,
		router:              cfg.Router,
		validator:           cfg.Validator,
		ledger:              cfg.Ledger,
		network:             cfg.Network,
		confirmationTimeout: cfg.ConfirmationTimeout,
		logger:              logger,
	}, nil
}

// Quote resolves the payment for the session's current selection
func (o *Orchestrator) Quote() (*pricing.Instruction, error) {
	snap := o.session.Snapshot()
	return o.resolver.Resolve(snap.Quantity, snap.PaymentMethod)
}

// Mint runs one attempt: submit payment, wait for confirmation, request issuance.
// The outcome is always routed, after the session has left InFlight.
// The only error returned is ErrMintInProgress.
func (o *Orchestrator) Mint(ctx context.Context) (*Outcome, error) {
	if o.session.Status() == session.InFlight {
		o.logger.Debug("mint ignored, another mint is in flight")
		return nil, ErrMintInProgress
	}

	address, out := o.connectedAddress()
	if out != nil {
		o.route(out)
		return out, nil
	}

	if !o.session.TryBegin() {
		o.logger.Debug("mint ignored, another mint is in flight")
		return nil, ErrMintInProgress
	}

	out = o.attempt(ctx, address)
	o.route(out)
	return out, nil
}

// connectedAddress returns the wallet address, or a failed outcome when there is none
func (o *Orchestrator) connectedAddress() (address string, failed *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("wallet address lookup panicked", "panic", r)
			failed = &Outcome{Stage: StageIdle}
			failed.fail(KindTransactionFailed, fmt.Errorf("unexpected error: %v", r))
		}
	}()

	var ok bool
	if address, ok = o.wallet.Address(); !ok {
		failed = &Outcome{Stage: StageIdle}
		failed.fail(KindNotConnected, chains.ErrNoAccount)
	}
	return address, failed
}

// attempt holds the session's in-flight slot for exactly the duration of run
func (o *Orchestrator) attempt(ctx context.Context, address string) *Outcome {
	defer o.session.End()
	return o.run(ctx, address)
}

func (o *Orchestrator) route(out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("routing outcome panicked", "attempt", out.AttemptID, "panic", r)
		}
	}()
	o.router.Route(out.routed())
}

func (o *Orchestrator) run(ctx context.Context, address string) (out *Outcome) {
	snap := o.session.Snapshot()
	out = &Outcome{AttemptID: uuid.NewString(), Stage: StagePreconditionCheck}
	logger := o.logger.With("attempt", out.AttemptID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("mint panicked", "stage", out.Stage.String(), "panic", r)
			kind := KindTransactionFailed
			if out.Stage >= StagePaymentConfirmed {
				kind = KindIssuanceFailed
			}
			out.fail(kind, fmt.Errorf("unexpected error: %v", r))
		}
		o.finish(logger, out)
	}()

	quote, err := o.resolver.Resolve(snap.Quantity, snap.PaymentMethod)
	if err != nil {
		out.fail(KindInvalidQuantity, err)
		return out
	}
	out.Quote = quote

	logger.Info("mint started",
		"address", address,
		"quantity", int(snap.Quantity),
		"method", snap.PaymentMethod.String(),
		"amount", quote.HumanAmount())
	o.record(ctx, logger, out, address, snap)

	pending, err := o.wallet.SignAndSubmit(ctx, paymentAction(quote))
	if err != nil {
		out.fail(KindPaymentSubmissionFailed, err)
		return out
	}
	out.Stage = StagePaymentSubmitted
	out.TxHash = pending.Hash
	o.update(logger, out)

	// The payment is on its way; caller cancellation no longer applies
	ctx = context.WithoutCancel(ctx)

	receipt, err := o.awaitConfirmation(ctx, pending)
	if err != nil {
		if errors.Is(err, chains.ErrConfirmationTimeout) {
			out.fail(KindConfirmationTimeout, err)
		} else {
			out.fail(KindTransactionFailed, err)
		}
		return out
	}
	out.Stage = StagePaymentConfirmed
	if o.validator != nil {
		if err := o.validator.ValidateTransaction(receipt, pending, quote.Requirements(o.network)); err != nil {
			out.fail(KindTransactionFailed, fmt.Errorf("payment %s does not match quote: %w", pending.Hash, err))
			return out
		}
	}
	o.update(logger, out)

	out.Stage = StageIssuanceRequested
	resp, err := o.issuer.Mint(ctx, &types.MintRequest{
		Address:         address,
		Quantity:        snap.Quantity,
		PaymentMethod:   snap.PaymentMethod,
		TransactionHash: pending.Hash,
	}, out.AttemptID)
	if err != nil {
		out.fail(KindIssuanceFailed, err)
		return out
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "unknown error"
		}
		out.fail(KindIssuanceFailed, errors.New(reason))
		return out
	}
	if len(resp.TokenIDs) == 0 {
		out.fail(KindIssuanceFailed, errors.New("issuance reported success without token ids"))
		return out
	}

	out.Stage = StageSettled
	out.TokenIDs = resp.TokenIDs
	return out
}

func (o *Orchestrator) awaitConfirmation(ctx context.Context, pending *chains.PendingTx) (chains.TransactionReceipt, error) {
	if o.confirmationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.confirmationTimeout)
		defer cancel()
	}
	return o.wallet.AwaitConfirmation(ctx, pending)
}

// paymentAction converts a quote into the on-chain action the wallet signs
func paymentAction(quote *pricing.Instruction) chains.Action {
	if quote.IsToken() {
		return chains.TokenTransfer{Token: quote.TokenAddress, To: quote.Recipient, Value: quote.Amount}
	}
	return chains.NativeTransfer{To: quote.Recipient, Value: quote.Amount}
}

func (o *Orchestrator) finish(logger *slog.Logger, out *Outcome) {
	if out.Err != nil {
		level := slog.LevelWarn
		if out.unresolved() {
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, "mint failed",
			"stage", out.Stage.String(),
			"kind", out.Err.Kind.String(),
			"txHash", out.TxHash,
			"error", out.Err.Err)
	} else {
		logger.Info("mint settled", "txHash", out.TxHash, "tokenIds", out.TokenIDs)
	}
	if out.Quote != nil {
		o.update(logger, out)
	}
}

// record and update keep the ledger in step; ledger errors never fail a mint
func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, out *Outcome, address string, snap session.Snapshot) {
	if o.ledger == nil {
		return
	}
	err := o.ledger.RecordAttempt(context.WithoutCancel(ctx), &storage.MintAttempt{
		ID:            out.AttemptID,
		Address:       address,
		Network:       o.network,
		Quantity:      int(snap.Quantity),
		PaymentMethod: snap.PaymentMethod.String(),
		Amount:        out.Quote.Amount.String(),
		Stage:         out.Stage.String(),
		Status:        storage.AttemptPending,
	})
	if err != nil {
		logger.Warn("failed to record mint attempt", "error", err)
	}
}

func (o *Orchestrator) update(logger *slog.Logger, out *Outcome) {
	if o.ledger == nil {
		return
	}
	attempt := &storage.MintAttempt{
		ID:              out.AttemptID,
		TransactionHash: out.TxHash,
		Stage:           out.Stage.String(),
		Status:          storage.AttemptPending,
		TokenIDs:        out.TokenIDs,
		Unresolved:      out.unresolved(),
	}
	switch {
	case out.Err != nil:
		attempt.Status = storage.AttemptFailed
		attempt.ErrorKind = out.Err.Kind.String()
		attempt.Error = out.Err.Error()
	case out.Stage == StageSettled:
		attempt.Status = storage.AttemptSettled
	}
	if err := o.ledger.UpdateAttempt(context.Background(), attempt); err != nil {
		logger.Warn("failed to update mint attempt", "error", err)
	}
}
