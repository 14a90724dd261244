package grant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/mocks"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/grant/metrics"
	"vctodwn/internal/protocol"
	dErrors "vctodwn/pkg/domain-errors"
)

const (
	owner  = "did:key:z6MkCustomer"
	issuer = "did:web:issuer.example"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	record  *mocks.MockRecordHandle
	def     models.ProtocolDefinition
	metrics *metrics.Metrics
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	var err error
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.record = mocks.NewMockRecordHandle(s.ctrl)
	s.def, err = protocol.DefaultDefinition()
	s.Require().NoError(err)
	s.metrics = metrics.New(prometheus.NewRegistry())
}

func (s *ServiceSuite) service(opts ...Option) *Service {
	svc, err := NewService(s.store, owner, s.def, append([]Option{WithMetrics(s.metrics)}, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) recipientQuery(requester string) dwn.RecordsQuery {
	return dwn.RecordsQuery{Filter: models.RecordsFilter{Recipient: requester}}
}

func (s *ServiceSuite) expectedCreate(requester string) dwn.RecordCreate {
	typ, ok := s.def.TypeAt("issuer")
	s.Require().True(ok)
	return dwn.RecordCreate{
		Protocol:     s.def.Protocol,
		ProtocolPath: "issuer",
		Schema:       typ.Schema,
		DataFormat:   typ.DataFormats[0],
		Recipient:    requester,
	}
}

func (s *ServiceSuite) TestNewIssuer_CreatesThenReplicates() {
	s.record.EXPECT().ID().Return("bafyrecord").AnyTimes()
	gomock.InOrder(
		s.store.EXPECT().QueryRecords(gomock.Any(), s.recipientQuery(issuer)).
			Return(nil, models.StatusOK, nil),
		s.store.EXPECT().CreateRecord(gomock.Any(), s.expectedCreate(issuer)).
			Return(s.record, models.StatusAccepted, nil),
		s.record.EXPECT().Send(gomock.Any(), owner).
			Return(models.StatusAccepted, nil),
	)

	result, err := s.service().Authorize(s.ctx, issuer)

	s.Require().NoError(err)
	s.Equal(OutcomeNewlyGranted, result.Outcome)
	s.Equal(models.StatusAccepted, result.Status)
	s.Equal(models.StatusAccepted, result.CreateStatus)
	s.Equal(models.StatusAccepted, result.ReplicateStatus)
	s.Equal("bafyrecord", result.RecordID)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.GrantsIssued))
}

func (s *ServiceSuite) TestExistingGrant_NoWrite() {
	existing := mocks.NewMockRecordHandle(s.ctrl)
	existing.EXPECT().ID().Return("bafyexisting").AnyTimes()
	s.store.EXPECT().QueryRecords(gomock.Any(), s.recipientQuery(issuer)).
		Return([]dwn.RecordHandle{existing}, models.StatusOK, nil)
	s.store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Times(0)

	result, err := s.service().Authorize(s.ctx, issuer)

	s.Require().NoError(err)
	s.Equal(OutcomeAlreadyGranted, result.Outcome)
	s.Equal(models.StatusOK, result.Status)
	s.Equal("bafyexisting", result.RecordID)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.GrantsExisting))
}

func (s *ServiceSuite) TestRequesterIsTrimmed() {
	s.store.EXPECT().QueryRecords(gomock.Any(), s.recipientQuery(issuer)).
		Return([]dwn.RecordHandle{s.record}, models.StatusOK, nil)
	s.record.EXPECT().ID().Return("bafyexisting")

	result, err := s.service().Authorize(s.ctx, "  "+issuer+"\n")

	s.Require().NoError(err)
	s.Equal(OutcomeAlreadyGranted, result.Outcome)
}

func (s *ServiceSuite) TestMissingRequester_NoStoreCall() {
	s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).Times(0)
	s.store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Times(0)

	for _, requester := range []string{"", "   ", "\t\n"} {
		result, err := s.service().Authorize(s.ctx, requester)
		s.Nil(result)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRequest), "requester %q", requester)
		s.ErrorIs(err, ErrMissingRequester)
	}
}

func (s *ServiceSuite) TestProtocolScope_FiltersByRolePath() {
	s.store.EXPECT().QueryRecords(gomock.Any(), dwn.RecordsQuery{Filter: models.RecordsFilter{
		Protocol:     s.def.Protocol,
		ProtocolPath: "issuer",
		Recipient:    issuer,
	}}).Return([]dwn.RecordHandle{s.record}, models.StatusOK, nil)
	s.record.EXPECT().ID().Return("bafyexisting")

	result, err := s.service(WithQueryScope(ScopeProtocol)).Authorize(s.ctx, issuer)

	s.Require().NoError(err)
	s.Equal(OutcomeAlreadyGranted, result.Outcome)
}

func (s *ServiceSuite) TestFailures() {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		stage string
		setup func()
	}{
		{
			name:  "query error",
			stage: "query",
			setup: func() {
				s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).Return(nil, models.Status{}, boom)
			},
		},
		{
			name:  "query non-2xx",
			stage: "query",
			setup: func() {
				s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).
					Return(nil, models.StatusOf(http.StatusInternalServerError), nil)
			},
		},
		{
			name:  "create error",
			stage: "create",
			setup: func() {
				s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
				s.store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil, models.Status{}, boom)
			},
		},
		{
			name:  "create rejected",
			stage: "create",
			setup: func() {
				s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
				s.store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).
					Return(s.record, models.StatusOf(http.StatusBadRequest), nil)
			},
		},
		{
			name:  "send error",
			stage: "send",
			setup: func() {
				s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
				s.store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(s.record, models.StatusAccepted, nil)
				s.record.EXPECT().Send(gomock.Any(), owner).
					Return(models.Status{}, dwn.NewStoreError(dwn.ErrorUnreachable, "send", "no endpoint answered", boom))
			},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			tt.setup()

			result, err := s.service().Authorize(s.ctx, issuer)

			s.Nil(result)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInternal))
			s.Contains(err.Error(), tt.stage)
			s.Equal(float64(1), testutil.ToFloat64(s.metrics.GrantsFailed.WithLabelValues(tt.stage)))
		})
	}
}

func (s *ServiceSuite) TestRemoteRejectsReplica_StillGranted() {
	s.record.EXPECT().ID().Return("bafyrecord").AnyTimes()
	s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
	s.store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(s.record, models.StatusAccepted, nil)
	s.record.EXPECT().Send(gomock.Any(), owner).Return(models.StatusOf(http.StatusConflict), nil)

	result, err := s.service().Authorize(s.ctx, issuer)

	s.Require().NoError(err)
	s.Equal(OutcomeNewlyGranted, result.Outcome)
	s.Equal(http.StatusConflict, result.ReplicateStatus.Code)
}

func (s *ServiceSuite) TestEachStoreCallIsBounded() {
	s.store.EXPECT().QueryRecords(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ dwn.RecordsQuery) ([]dwn.RecordHandle, models.Status, error) {
			<-ctx.Done()
			return nil, models.Status{}, ctx.Err()
		})

	start := time.Now()
	result, err := s.service(WithCallTimeout(20*time.Millisecond)).Authorize(s.ctx, issuer)

	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Less(time.Since(start), 2*time.Second)
}

func (s *ServiceSuite) TestRolePathMustBeRole() {
	_, err := NewService(s.store, owner, s.def, WithRolePath("credential"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewService(s.store, owner, s.def, WithRolePath("missing"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewService(s.store, owner, s.def, WithQueryScope("everything"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// racyStore widens the window between lookup and write so unserialized
// callers would both see an empty result.
type racyStore struct {
	mu      stdsync.Mutex
	records map[string][]dwn.RecordHandle
	creates atomic.Int32
}

func newRacyStore() *racyStore {
	return &racyStore{records: make(map[string][]dwn.RecordHandle)}
}

func (r *racyStore) QueryProtocols(context.Context, dwn.ProtocolsQuery) ([]dwn.ProtocolHandle, models.Status, error) {
	return nil, models.StatusOK, nil
}

func (r *racyStore) ConfigureProtocol(context.Context, models.ProtocolDefinition) (dwn.ProtocolHandle, models.Status, error) {
	return nil, models.StatusAccepted, nil
}

func (r *racyStore) QueryRecords(_ context.Context, query dwn.RecordsQuery) ([]dwn.RecordHandle, models.Status, error) {
	r.mu.Lock()
	found := append([]dwn.RecordHandle(nil), r.records[query.Filter.Recipient]...)
	r.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return found, models.StatusOK, nil
}

func (r *racyStore) CreateRecord(_ context.Context, create dwn.RecordCreate) (dwn.RecordHandle, models.Status, error) {
	n := r.creates.Add(1)
	rec := fakeRecord{id: fmt.Sprintf("record-%d", n), recipient: create.Recipient}
	r.mu.Lock()
	r.records[create.Recipient] = append(r.records[create.Recipient], rec)
	r.mu.Unlock()
	return rec, models.StatusAccepted, nil
}

type fakeRecord struct {
	id        string
	recipient string
}

func (f fakeRecord) ID() string        { return f.id }
func (f fakeRecord) Recipient() string { return f.recipient }
func (f fakeRecord) Send(context.Context, string) (models.Status, error) {
	return models.StatusAccepted, nil
}

func TestAuthorize_ConcurrentRequestsCreateOneGrant(t *testing.T) {
	def, err := protocol.DefaultDefinition()
	require.NoError(t, err)
	store := newRacyStore()
	svc, err := NewService(store, owner, def)
	require.NoError(t, err)

	const callers = 16
	outcomes := make([]Outcome, callers)
	var wg stdsync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Authorize(context.Background(), issuer)
			if assert.NoError(t, err) {
				outcomes[i] = result.Outcome
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.creates.Load())
	newly := 0
	for _, o := range outcomes {
		if o == OutcomeNewlyGranted {
			newly++
		}
	}
	assert.Equal(t, 1, newly)
	assert.Equal(t, 0, svc.locks.Len())
}

func TestAuthorize_DistinctRequestersDoNotBlock(t *testing.T) {
	def, err := protocol.DefaultDefinition()
	require.NoError(t, err)
	store := newRacyStore()
	svc, err := NewService(store, owner, def)
	require.NoError(t, err)

	var wg stdsync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Authorize(context.Background(), fmt.Sprintf("did:web:issuer%d.example", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), store.creates.Load())

	result, err := svc.Authorize(context.Background(), "did:web:issuer3.example")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyGranted, result.Outcome)
}
