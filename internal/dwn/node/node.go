// Package node is an embedded DWN: it signs, validates and stores messages for one
// tenant and replicates them to remote endpoints on request.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/message"
	"vctodwn/internal/dwn/messagestore"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/platform/tracer"
)

// Remote delivers messages to a DWN endpoint.
type Remote interface {
	ProcessMessage(ctx context.Context, endpoint, target string, message any, data []byte) (models.Reply, error)
}

// Node implements dwn.Store for a single tenant.
type Node struct {
	signer   *message.Signer
	store    messagestore.Store
	remote   Remote
	resolver Resolver
	logger   *slog.Logger
	tracer   tracer.Tracer
	now      func() time.Time

	// serializes validate-then-store sequences
	writeMu sync.Mutex
}

// Option configures a Node.
type Option func(*Node)

// WithRemote enables replication and remote queries.
func WithRemote(remote Remote, resolver Resolver) Option {
	return func(n *Node) {
		n.remote = remote
		n.resolver = resolver
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) { n.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(n *Node) { n.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// New creates a node acting as key's DID.
func New(key did.Key, store messagestore.Store, opts ...Option) *Node {
	n := &Node{
		signer: message.NewSigner(key),
		store:  store,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Tenant returns the DID this node acts for.
func (n *Node) Tenant() string {
	return n.signer.DID()
}

func (n *Node) QueryProtocols(ctx context.Context, query dwn.ProtocolsQuery) ([]dwn.ProtocolHandle, models.Status, error) {
	if query.From != "" {
		return n.queryRemoteProtocols(ctx, query)
	}
	msgs, err := n.store.FindProtocols(ctx, n.Tenant(), query.Filter.Protocol)
	if err != nil {
		return nil, models.Status{}, storeFailure("query_protocols", err)
	}
	handles := make([]dwn.ProtocolHandle, 0, len(msgs))
	for _, msg := range msgs {
		handles = append(handles, &protocolHandle{node: n, msg: msg})
	}
	return handles, models.StatusOK, nil
}

func (n *Node) queryRemoteProtocols(ctx context.Context, query dwn.ProtocolsQuery) ([]dwn.ProtocolHandle, models.Status, error) {
	if n.remote == nil {
		return nil, models.Status{}, dwn.NewStoreError(dwn.ErrorUnreachable, "query_protocols", "no remote configured", nil)
	}
	msg, err := message.NewProtocolsQuery(n.signer, query.Filter.Protocol, n.now())
	if err != nil {
		return nil, models.Status{}, dwn.NewStoreError(dwn.ErrorInternal, "query_protocols", "failed to sign query", err)
	}
	endpoints, err := n.resolver.Endpoints(ctx, query.From)
	if err != nil {
		return nil, models.Status{}, err
	}

	var lastErr error
	for _, endpoint := range endpoints {
		reply, err := n.remote.ProcessMessage(ctx, endpoint, query.From, msg, nil)
		if err != nil {
			lastErr = err
			n.logger.WarnContext(ctx, "remote protocol query failed", "endpoint", endpoint, "error", err)
			continue
		}
		handles := make([]dwn.ProtocolHandle, 0, len(reply.Entries))
		for _, raw := range reply.Entries {
			var entry models.ProtocolsConfigureMessage
			if err := json.Unmarshal(raw, &entry); err != nil {
				return nil, models.Status{}, dwn.NewStoreError(dwn.ErrorBadReply, "query_protocols", "malformed protocol entry", err)
			}
			handles = append(handles, &protocolHandle{node: n, msg: entry})
		}
		return handles, reply.Status, nil
	}
	return nil, models.Status{}, lastErr
}

func (n *Node) ConfigureProtocol(ctx context.Context, definition models.ProtocolDefinition) (dwn.ProtocolHandle, models.Status, error) {
	msg, err := message.NewProtocolsConfigure(n.signer, definition, n.now())
	if err != nil {
		return nil, models.Status{}, dwn.NewStoreError(dwn.ErrorInternal, "configure_protocol", "failed to sign message", err)
	}
	status, err := n.ProcessProtocolsConfigure(ctx, msg)
	if err != nil || !status.OK() {
		return nil, status, err
	}
	return &protocolHandle{node: n, msg: msg}, status, nil
}

// ProcessProtocolsConfigure validates and stores a signed configuration. Only the
// tenant may configure protocols on its own node.
func (n *Node) ProcessProtocolsConfigure(ctx context.Context, msg models.ProtocolsConfigureMessage) (models.Status, error) {
	ctx, span := n.tracer.Start(ctx, tracer.SpanNodeProcess,
		tracer.String(tracer.AttrInterface, models.InterfaceProtocols),
		tracer.String(tracer.AttrMethod, models.MethodConfigure),
		tracer.String(tracer.AttrProtocol, msg.Descriptor.Definition.Protocol),
	)

	status, err := n.processConfigure(ctx, msg)
	span.SetAttributes(tracer.Int(tracer.AttrStatusCode, status.Code))
	span.End(err)
	return status, err
}

func (n *Node) processConfigure(ctx context.Context, msg models.ProtocolsConfigureMessage) (models.Status, error) {
	author, err := message.Verify(msg.Descriptor, msg.Authorization)
	if err != nil {
		return rejected(http.StatusUnauthorized, err.Error()), nil
	}
	if author != n.Tenant() {
		return rejected(http.StatusUnauthorized, "only the tenant may configure protocols"), nil
	}
	if err := msg.Descriptor.Definition.Validate(); err != nil {
		return rejected(http.StatusBadRequest, err.Error()), nil
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	if err := n.store.PutProtocol(ctx, n.Tenant(), msg); err != nil {
		return models.Status{}, storeFailure("configure_protocol", err)
	}
	return models.StatusAccepted, nil
}

func (n *Node) QueryRecords(ctx context.Context, query dwn.RecordsQuery) ([]dwn.RecordHandle, models.Status, error) {
	entries, err := n.store.FindRecords(ctx, n.Tenant(), query.Filter)
	if err != nil {
		return nil, models.Status{}, storeFailure("query_records", err)
	}
	handles := make([]dwn.RecordHandle, 0, len(entries))
	for _, entry := range entries {
		handles = append(handles, &recordHandle{node: n, entry: entry})
	}
	return handles, models.StatusOK, nil
}

func (n *Node) CreateRecord(ctx context.Context, create dwn.RecordCreate) (dwn.RecordHandle, models.Status, error) {
	msg, err := message.NewRecordsWrite(n.signer, message.RecordsWriteInput{
		Protocol:     create.Protocol,
		ProtocolPath: create.ProtocolPath,
		Schema:       create.Schema,
		DataFormat:   create.DataFormat,
		Recipient:    create.Recipient,
		Data:         create.Data,
	}, n.now())
	if err != nil {
		return nil, models.Status{}, dwn.NewStoreError(dwn.ErrorInternal, "create_record", "failed to sign message", err)
	}
	status, err := n.ProcessRecordsWrite(ctx, msg, create.Data)
	if err != nil || !status.OK() {
		return nil, status, err
	}
	return &recordHandle{node: n, entry: models.RecordEntry{Message: msg, Author: n.Tenant(), Data: create.Data}}, status, nil
}

// ProcessRecordsWrite validates a signed write against its installed protocol and
// stores it.
func (n *Node) ProcessRecordsWrite(ctx context.Context, msg models.RecordsWriteMessage, data []byte) (models.Status, error) {
	ctx, span := n.tracer.Start(ctx, tracer.SpanNodeProcess,
		tracer.String(tracer.AttrInterface, models.InterfaceRecords),
		tracer.String(tracer.AttrMethod, models.MethodWrite),
		tracer.String(tracer.AttrProtocol, msg.Descriptor.Protocol),
	)

	status, err := n.processWrite(ctx, msg, data)
	span.SetAttributes(tracer.Int(tracer.AttrStatusCode, status.Code))
	span.End(err)
	return status, err
}

func (n *Node) processWrite(ctx context.Context, msg models.RecordsWriteMessage, data []byte) (models.Status, error) {
	author, err := message.Verify(msg.Descriptor, msg.Authorization)
	if err != nil {
		return rejected(http.StatusUnauthorized, err.Error()), nil
	}
	d := msg.Descriptor
	if id, err := message.RecordID(d, author); err != nil || id != msg.RecordID {
		return rejected(http.StatusBadRequest, "record id does not match descriptor"), nil
	}
	if dataCID, err := message.DataCID(data); err != nil || dataCID != d.DataCID || len(data) != d.DataSize {
		return rejected(http.StatusBadRequest, "data does not match descriptor"), nil
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	if d.Protocol != "" {
		if status, ok := n.authorizeProtocolWrite(ctx, author, d); !ok {
			return status, nil
		}
	} else if author != n.Tenant() {
		return rejected(http.StatusUnauthorized, "only the tenant may write records outside a protocol"), nil
	}

	if err := n.store.PutRecord(ctx, n.Tenant(), models.RecordEntry{Message: msg, Author: author, Data: data}); err != nil {
		return models.Status{}, storeFailure("create_record", err)
	}
	return models.StatusAccepted, nil
}

// authorizeProtocolWrite checks the write against the installed definition: the path
// must exist with matching type, $role records need a recipient, and non-tenant
// authors need a create rule that admits them.
func (n *Node) authorizeProtocolWrite(ctx context.Context, author string, d models.RecordsWriteDescriptor) (models.Status, bool) {
	msgs, err := n.store.FindProtocols(ctx, n.Tenant(), d.Protocol)
	if err != nil || len(msgs) == 0 {
		return rejected(http.StatusBadRequest, "protocol not installed: "+d.Protocol), false
	}
	def := msgs[0].Descriptor.Definition

	rules, ok := def.RuleSetAt(d.ProtocolPath)
	if !ok {
		return rejected(http.StatusBadRequest, "protocol path not in structure: "+d.ProtocolPath), false
	}
	if typ, ok := def.TypeAt(d.ProtocolPath); ok {
		if typ.Schema != "" && typ.Schema != d.Schema {
			return rejected(http.StatusBadRequest, "schema does not match protocol type"), false
		}
		if len(typ.DataFormats) > 0 && !slices.Contains(typ.DataFormats, d.DataFormat) {
			return rejected(http.StatusBadRequest, "data format not allowed for protocol type"), false
		}
	}
	if rules.Role && d.Recipient == "" {
		return rejected(http.StatusBadRequest, "role records require a recipient"), false
	}
	if author == n.Tenant() {
		return models.Status{}, true
	}
	if n.canCreate(ctx, author, d.Protocol, rules) {
		return models.Status{}, true
	}
	return rejected(http.StatusUnauthorized, "author is not permitted to create at "+d.ProtocolPath), false
}

func (n *Node) canCreate(ctx context.Context, author, protocol string, rules models.RuleSet) bool {
	for _, rule := range rules.Actions {
		if !slices.Contains(rule.Can, models.ActionCreate) {
			continue
		}
		switch {
		case rule.Who == models.WhoAnyone:
			return true
		case rule.Role != "":
			grants, err := n.store.FindRecords(ctx, n.Tenant(), models.RecordsFilter{
				Protocol:     protocol,
				ProtocolPath: rule.Role,
				Recipient:    author,
			})
			if err == nil && len(grants) > 0 {
				return true
			}
		}
	}
	return false
}

// send replicates msg to every endpoint serving target. The first 2xx reply wins;
// otherwise the first reply status is returned, and an error only when no
// endpoint answered.
func (n *Node) send(ctx context.Context, target string, msg any, data []byte) (models.Status, error) {
	if n.remote == nil {
		return models.Status{}, dwn.NewStoreError(dwn.ErrorUnreachable, "send", "no remote configured", nil)
	}
	endpoints, err := n.resolver.Endpoints(ctx, target)
	if err != nil {
		return models.Status{}, err
	}

	replies := make([]models.Reply, len(endpoints))
	errs := make([]error, len(endpoints))
	var g errgroup.Group
	for i, endpoint := range endpoints {
		g.Go(func() error {
			replies[i], errs[i] = n.remote.ProcessMessage(ctx, endpoint, target, msg, data)
			if errs[i] != nil {
				n.logger.WarnContext(ctx, "replication to endpoint failed", "endpoint", endpoint, "error", errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		first    *models.Status
		firstErr error
	)
	for i := range endpoints {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if replies[i].Status.OK() {
			return replies[i].Status, nil
		}
		if first == nil {
			first = &replies[i].Status
		}
	}
	if first != nil {
		return *first, nil
	}
	return models.Status{}, firstErr
}

func rejected(code int, detail string) models.Status {
	return models.Status{Code: code, Detail: detail}
}

func storeFailure(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dwn.NewStoreError(dwn.ErrorTimeout, op, "message store timeout", err)
	}
	return dwn.NewStoreError(dwn.ErrorInternal, op, "message store failure", err)
}

var _ dwn.Store = (*Node)(nil)
