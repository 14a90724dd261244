// Package grant issues role-grant records that let an issuer write credentials
// into the customer's DWN.
package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/grant/metrics"
	"vctodwn/internal/platform/tracer"
	dErrors "vctodwn/pkg/domain-errors"
	"vctodwn/pkg/platform/sync"
)

// ErrMissingRequester is returned before any store call when no requester is given.
var ErrMissingRequester = dErrors.New(dErrors.CodeInvalidRequest, "Issuer DID is required as a query parameter")

// defaultDataFormat is used when the role type declares no data formats.
const defaultDataFormat = "text/plain"

// Service decides, per requester, whether a grant exists and creates one if not.
// Calls for the same requester are serialized so the lookup and the create
// cannot interleave; different requesters proceed in parallel.
type Service struct {
	store       dwn.Store
	owner       string
	protocol    string
	rolePath    string
	schema      string
	dataFormat  string
	scope       string
	callTimeout time.Duration
	locks       *sync.KeyedMutex
	logger      *slog.Logger
	tracer      tracer.Tracer
	metrics     *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRolePath selects the $role path grants are written to. Default "issuer".
func WithRolePath(path string) Option {
	return func(s *Service) { s.rolePath = path }
}

// WithQueryScope selects how existing grants are looked up. Default ScopeRecipient.
func WithQueryScope(scope string) Option {
	return func(s *Service) { s.scope = scope }
}

// WithCallTimeout bounds each store call. Default 15s.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// NewService creates the grant engine for owner's store. The role path must be a
// $role path of definition; schema and data format come from its declared type.
func NewService(store dwn.Store, owner string, definition models.ProtocolDefinition, opts ...Option) (*Service, error) {
	s := &Service{
		store:       store,
		owner:       owner,
		protocol:    definition.Protocol,
		rolePath:    "issuer",
		scope:       ScopeRecipient,
		callTimeout: 15 * time.Second,
		locks:       sync.NewKeyedMutex(),
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	rules, ok := definition.RuleSetAt(s.rolePath)
	if !ok || !rules.Role {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%q is not a $role path of %s", s.rolePath, definition.Protocol))
	}
	typ, _ := definition.TypeAt(s.rolePath)
	s.schema = typ.Schema
	s.dataFormat = defaultDataFormat
	if len(typ.DataFormats) > 0 {
		s.dataFormat = typ.DataFormats[0]
	}
	if s.scope != ScopeRecipient && s.scope != ScopeProtocol {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown grant query scope "+s.scope)
	}
	return s, nil
}

// Authorize grants requester the role unless it already holds a grant. Store
// failures, timeouts and rejected writes come back as internal errors carrying
// the cause; they never panic past this boundary.
func (s *Service) Authorize(ctx context.Context, requester string) (result *Result, err error) {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return nil, ErrMissingRequester
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanGrantAuthorize,
		tracer.String(tracer.AttrRequester, requester),
		tracer.String(tracer.AttrProtocol, s.protocol),
	)
	defer func() {
		if result != nil {
			span.SetAttributes(tracer.String(tracer.AttrOutcome, string(result.Outcome)))
		}
		span.End(err)
		if s.metrics != nil {
			s.metrics.ObserveAuthorize(time.Since(start))
		}
	}()

	s.locks.Lock(requester)
	defer s.locks.Unlock(requester)

	existing, status, err := s.query(ctx, requester)
	if err != nil {
		return nil, s.failed(ctx, "query", requester, err)
	}
	if !status.OK() {
		return nil, s.failed(ctx, "query", requester, fmt.Errorf("store replied %d %s", status.Code, status.Detail))
	}
	if len(existing) > 0 {
		if s.metrics != nil {
			s.metrics.IncrementExisting()
		}
		s.logger.InfoContext(ctx, "issuer already authorized", "issuer", requester, "records", len(existing))
		return &Result{Outcome: OutcomeAlreadyGranted, Status: status, RecordID: existing[0].ID()}, nil
	}

	record, createStatus, err := s.create(ctx, requester)
	if err != nil {
		return nil, s.failed(ctx, "create", requester, err)
	}
	if !createStatus.OK() || record == nil {
		return nil, s.failed(ctx, "create", requester, fmt.Errorf("store replied %d %s", createStatus.Code, createStatus.Detail))
	}

	replicateStatus, err := s.send(ctx, record)
	if err != nil {
		return nil, s.failed(ctx, "send", requester, err)
	}
	if !replicateStatus.OK() {
		s.logger.WarnContext(ctx, "remote dwn did not accept grant", "issuer", requester, "status", replicateStatus.Code, "detail", replicateStatus.Detail)
	}

	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}
	s.logger.InfoContext(ctx, "granted issuer authorization to store a credential in the customer's dwn",
		"issuer", requester,
		"record_id", record.ID(),
		"status", createStatus.Code,
		"customer_status", replicateStatus.Code,
	)
	return &Result{
		Outcome:         OutcomeNewlyGranted,
		Status:          createStatus,
		CreateStatus:    createStatus,
		ReplicateStatus: replicateStatus,
		RecordID:        record.ID(),
	}, nil
}

func (s *Service) query(ctx context.Context, requester string) ([]dwn.RecordHandle, models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	filter := models.RecordsFilter{Recipient: requester}
	if s.scope == ScopeProtocol {
		filter.Protocol = s.protocol
		filter.ProtocolPath = s.rolePath
	}
	return s.store.QueryRecords(ctx, dwn.RecordsQuery{Filter: filter})
}

func (s *Service) create(ctx context.Context, requester string) (dwn.RecordHandle, models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.store.CreateRecord(ctx, dwn.RecordCreate{
		Protocol:     s.protocol,
		ProtocolPath: s.rolePath,
		Schema:       s.schema,
		DataFormat:   s.dataFormat,
		Recipient:    requester,
	})
}

func (s *Service) send(ctx context.Context, record dwn.RecordHandle) (models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return record.Send(ctx, s.owner)
}

func (s *Service) failed(ctx context.Context, stage, requester string, cause error) error {
	if s.metrics != nil {
		s.metrics.IncrementFailed(stage)
	}
	s.logger.ErrorContext(ctx, "failed to authorize issuer",
		"stage", stage,
		"issuer", requester,
		"error", cause,
	)
	code := dErrors.CodeInternal
	if errors.Is(cause, context.DeadlineExceeded) || dwn.CategoryOf(cause) == dwn.ErrorTimeout {
		code = dErrors.CodeTimeout
	}
	return dErrors.WrapAs(cause, code, "failed to authorize issuer: "+stage)
}
