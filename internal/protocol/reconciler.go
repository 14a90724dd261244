package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/platform/tracer"
	dErrors "vctodwn/pkg/domain-errors"
)

// Outcome is the result of a successful reconciliation.
type Outcome string

const (
	OutcomeAlreadyInstalled Outcome = "already_installed"
	OutcomeInstalled        Outcome = "installed"
	// OutcomeRemoteRepaired means the protocol was installed locally but missing
	// from the owner's remote, and was sent again.
	OutcomeRemoteRepaired Outcome = "remote_repaired"
)

// Observer is told how each reconciliation ended ("failed" on error).
type Observer interface {
	ObserveReconcile(outcome string)
}

// Reconciler makes sure the definition is configured on the local node and
// replicated to the owner's remote.
type Reconciler struct {
	store       dwn.Store
	owner       string
	definition  models.ProtocolDefinition
	successCode int
	remoteCheck bool
	callTimeout time.Duration
	logger      *slog.Logger
	tracer      tracer.Tracer
	observer    Observer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Reconciler) { r.tracer = t }
}

func WithObserver(o Observer) Option {
	return func(r *Reconciler) { r.observer = o }
}

// WithRemoteCheck also verifies an already installed protocol exists on the
// owner's remote and resends it when missing.
func WithRemoteCheck(enabled bool) Option {
	return func(r *Reconciler) { r.remoteCheck = enabled }
}

// WithCallTimeout bounds each store call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// NewReconciler creates a reconciler. successCode is the local query status that
// means "installed"; node implementations disagree on it, so it is configuration.
func NewReconciler(store dwn.Store, owner string, definition models.ProtocolDefinition, successCode int, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:       store,
		owner:       owner,
		definition:  definition,
		successCode: successCode,
		callTimeout: 15 * time.Second,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureInstalled runs the reconciliation. Any error is a ProtocolInstall
// failure and must stop startup.
func (r *Reconciler) EnsureInstalled(ctx context.Context) (outcome Outcome, err error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanProtocolReconcile,
		tracer.String(tracer.AttrProtocol, r.definition.Protocol),
		tracer.String(tracer.AttrTenant, r.owner),
	)
	defer func() {
		if err == nil {
			span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
		}
		span.End(err)
		if r.observer != nil {
			if err != nil {
				r.observer.ObserveReconcile("failed")
			} else {
				r.observer.ObserveReconcile(string(outcome))
			}
		}
	}()

	handles, status, err := r.query(ctx, "")
	if err != nil {
		return "", r.fail(err, "query local protocols")
	}

	installed := status.Code == r.successCode && len(handles) > 0
	r.logger.InfoContext(ctx, "local protocol "+foundWord(installed),
		"protocol", r.definition.Protocol,
		"status", status.Code,
		"results", len(handles),
	)
	if installed {
		if r.remoteCheck {
			return r.checkRemote(ctx, handles[0]), nil
		}
		r.logger.InfoContext(ctx, "protocol already installed", "protocol", r.definition.Protocol)
		return OutcomeAlreadyInstalled, nil
	}

	handle, status, err := r.configure(ctx)
	if err != nil {
		return "", r.fail(err, "configure protocol")
	}
	if !status.OK() {
		return "", r.fail(statusError(status), "configure protocol")
	}
	r.logger.InfoContext(ctx, "protocol installed locally", "protocol", r.definition.Protocol, "status", status.Code)

	status, err = r.send(ctx, handle)
	if err != nil {
		return "", r.fail(err, "send protocol to remote")
	}
	if !status.OK() {
		return "", r.fail(statusError(status), "send protocol to remote")
	}
	r.logger.InfoContext(ctx, "installed protocol on remote dwn", "owner", r.owner, "status", status.Code)
	return OutcomeInstalled, nil
}

// checkRemote never fails startup: the local install is authoritative and the
// remote is repaired on a best effort basis.
func (r *Reconciler) checkRemote(ctx context.Context, local dwn.ProtocolHandle) Outcome {
	remote, status, err := r.query(ctx, r.owner)
	if err != nil {
		r.logger.WarnContext(ctx, "remote protocol check failed", "owner", r.owner, "error", err)
		return OutcomeAlreadyInstalled
	}
	if status.OK() && len(remote) > 0 {
		r.logger.InfoContext(ctx, "protocol already installed", "protocol", r.definition.Protocol)
		return OutcomeAlreadyInstalled
	}

	r.logger.InfoContext(ctx, "protocol missing on remote dwn, resending", "owner", r.owner, "status", status.Code)
	sent, err := r.send(ctx, local)
	if err != nil || !sent.OK() {
		r.logger.WarnContext(ctx, "resending protocol to remote failed", "owner", r.owner, "status", sent.Code, "error", err)
		return OutcomeAlreadyInstalled
	}
	return OutcomeRemoteRepaired
}

func (r *Reconciler) query(ctx context.Context, from string) ([]dwn.ProtocolHandle, models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.store.QueryProtocols(ctx, dwn.ProtocolsQuery{
		From:   from,
		Filter: models.ProtocolsFilter{Protocol: r.definition.Protocol},
	})
}

func (r *Reconciler) configure(ctx context.Context) (dwn.ProtocolHandle, models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.store.ConfigureProtocol(ctx, r.definition)
}

func (r *Reconciler) send(ctx context.Context, handle dwn.ProtocolHandle) (models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return handle.Send(ctx, r.owner)
}

func (r *Reconciler) fail(err error, step string) error {
	return dErrors.WrapAs(err, dErrors.CodeProtocolInstall, fmt.Sprintf("%s %s", step, r.definition.Protocol))
}

func statusError(status models.Status) error {
	return fmt.Errorf("store replied %d %s", status.Code, status.Detail)
}

func foundWord(found bool) string {
	if found {
		return "found"
	}
	return "not found"
}
