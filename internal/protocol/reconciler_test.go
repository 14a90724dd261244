package protocol

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/mocks"
	"vctodwn/internal/dwn/models"
	dErrors "vctodwn/pkg/domain-errors"
)

const owner = "did:key:z6MkCustomer"

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveReconcile(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

type ReconcilerSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	handle   *mocks.MockProtocolHandle
	def      models.ProtocolDefinition
	observer *recordingObserver
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	var err error
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.handle = mocks.NewMockProtocolHandle(s.ctrl)
	s.def, err = DefaultDefinition()
	s.Require().NoError(err)
	s.observer = &recordingObserver{}
}

func (s *ReconcilerSuite) reconciler(successCode int, opts ...Option) *Reconciler {
	return NewReconciler(s.store, owner, s.def, successCode, append([]Option{WithObserver(s.observer)}, opts...)...)
}

func (s *ReconcilerSuite) localQuery() dwn.ProtocolsQuery {
	return dwn.ProtocolsQuery{Filter: models.ProtocolsFilter{Protocol: s.def.Protocol}}
}

func (s *ReconcilerSuite) TestEmptyStore_ConfiguresThenSendsInOrder() {
	gomock.InOrder(
		s.store.EXPECT().QueryProtocols(gomock.Any(), s.localQuery()).
			Return(nil, models.StatusOK, nil),
		s.store.EXPECT().ConfigureProtocol(gomock.Any(), s.def).
			Return(s.handle, models.StatusAccepted, nil),
		s.handle.EXPECT().Send(gomock.Any(), owner).
			Return(models.StatusAccepted, nil),
	)

	outcome, err := s.reconciler(http.StatusOK).EnsureInstalled(s.ctx)

	s.Require().NoError(err)
	s.Equal(OutcomeInstalled, outcome)
	s.Equal([]string{"installed"}, s.observer.outcomes)
}

func (s *ReconcilerSuite) TestSecondRunIsIdempotent() {
	s.store.EXPECT().QueryProtocols(gomock.Any(), s.localQuery()).
		Return([]dwn.ProtocolHandle{s.handle}, models.StatusOK, nil)
	s.store.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Times(0)
	s.handle.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	outcome, err := s.reconciler(http.StatusOK).EnsureInstalled(s.ctx)

	s.Require().NoError(err)
	s.Equal(OutcomeAlreadyInstalled, outcome)
}

func (s *ReconcilerSuite) TestSuccessCodeIsConfiguration() {
	tests := []struct {
		name        string
		successCode int
		queryStatus models.Status
		results     int
		wantInstall bool
	}{
		{"200 deployment, 200 with result", 200, models.StatusOK, 1, false},
		{"202 deployment, 202 with result", 202, models.StatusAccepted, 1, false},
		{"202 deployment, 200 with result", 202, models.StatusOK, 1, true},
		{"200 deployment, 202 with result", 200, models.StatusAccepted, 1, true},
		{"200 deployment, empty success", 200, models.StatusOK, 0, true},
		{"202 deployment, empty success", 202, models.StatusAccepted, 0, true},
		{"200 deployment, not found", 200, models.StatusOf(http.StatusNotFound), 0, true},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			results := make([]dwn.ProtocolHandle, tt.results)
			for i := range results {
				results[i] = s.handle
			}
			s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).Return(results, tt.queryStatus, nil)
			if tt.wantInstall {
				fresh := mocks.NewMockProtocolHandle(s.ctrl)
				s.store.EXPECT().ConfigureProtocol(gomock.Any(), s.def).Return(fresh, models.StatusAccepted, nil)
				fresh.EXPECT().Send(gomock.Any(), owner).Return(models.StatusAccepted, nil)
			}

			outcome, err := s.reconciler(tt.successCode).EnsureInstalled(s.ctx)

			s.Require().NoError(err)
			if tt.wantInstall {
				s.Equal(OutcomeInstalled, outcome)
			} else {
				s.Equal(OutcomeAlreadyInstalled, outcome)
			}
		})
	}
}

func (s *ReconcilerSuite) TestFailuresAreFatal() {
	unreachable := dwn.NewStoreError(dwn.ErrorUnreachable, "query_protocols", "down", nil)
	tests := []struct {
		name  string
		setup func()
	}{
		{"query transport error", func() {
			s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).Return(nil, models.Status{}, unreachable)
		}},
		{"configure error", func() {
			s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
			s.store.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Return(nil, models.Status{}, errors.New("disk full"))
		}},
		{"configure rejected", func() {
			s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
			s.store.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Return(nil, models.StatusOf(http.StatusBadRequest), nil)
		}},
		{"send error", func() {
			s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
			s.store.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Return(s.handle, models.StatusAccepted, nil)
			s.handle.EXPECT().Send(gomock.Any(), owner).Return(models.Status{}, unreachable)
		}},
		{"send rejected", func() {
			s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).Return(nil, models.StatusOK, nil)
			s.store.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Return(s.handle, models.StatusAccepted, nil)
			s.handle.EXPECT().Send(gomock.Any(), owner).Return(models.StatusOf(http.StatusUnauthorized), nil)
		}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			tt.setup()

			_, err := s.reconciler(http.StatusOK).EnsureInstalled(s.ctx)

			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeProtocolInstall))
			s.Equal([]string{"failed"}, s.observer.outcomes)
		})
	}
}

func (s *ReconcilerSuite) TestRemoteCheck() {
	remoteQuery := dwn.ProtocolsQuery{From: owner, Filter: models.ProtocolsFilter{Protocol: s.def.Protocol}}

	s.Run("present remotely", func() {
		s.SetupTest()
		gomock.InOrder(
			s.store.EXPECT().QueryProtocols(gomock.Any(), s.localQuery()).Return([]dwn.ProtocolHandle{s.handle}, models.StatusOK, nil),
			s.store.EXPECT().QueryProtocols(gomock.Any(), remoteQuery).Return([]dwn.ProtocolHandle{s.handle}, models.StatusOK, nil),
		)

		outcome, err := s.reconciler(http.StatusOK, WithRemoteCheck(true)).EnsureInstalled(s.ctx)

		s.Require().NoError(err)
		s.Equal(OutcomeAlreadyInstalled, outcome)
	})

	s.Run("missing remotely is resent", func() {
		s.SetupTest()
		gomock.InOrder(
			s.store.EXPECT().QueryProtocols(gomock.Any(), s.localQuery()).Return([]dwn.ProtocolHandle{s.handle}, models.StatusOK, nil),
			s.store.EXPECT().QueryProtocols(gomock.Any(), remoteQuery).Return(nil, models.StatusOK, nil),
			s.handle.EXPECT().Send(gomock.Any(), owner).Return(models.StatusAccepted, nil),
		)
		s.store.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := s.reconciler(http.StatusOK, WithRemoteCheck(true)).EnsureInstalled(s.ctx)

		s.Require().NoError(err)
		s.Equal(OutcomeRemoteRepaired, outcome)
	})

	s.Run("remote unreachable is not fatal", func() {
		s.SetupTest()
		s.store.EXPECT().QueryProtocols(gomock.Any(), s.localQuery()).Return([]dwn.ProtocolHandle{s.handle}, models.StatusOK, nil)
		s.store.EXPECT().QueryProtocols(gomock.Any(), remoteQuery).
			Return(nil, models.Status{}, dwn.NewStoreError(dwn.ErrorUnreachable, "query_protocols", "down", nil))

		outcome, err := s.reconciler(http.StatusOK, WithRemoteCheck(true)).EnsureInstalled(s.ctx)

		s.Require().NoError(err)
		s.Equal(OutcomeAlreadyInstalled, outcome)
	})
}

func (s *ReconcilerSuite) TestStoreCallsAreBounded() {
	s.store.EXPECT().QueryProtocols(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ dwn.ProtocolsQuery) ([]dwn.ProtocolHandle, models.Status, error) {
			_, ok := ctx.Deadline()
			s.True(ok, "store call must carry a deadline")
			return []dwn.ProtocolHandle{s.handle}, models.StatusOK, nil
		})

	_, err := s.reconciler(http.StatusOK).EnsureInstalled(s.ctx)
	s.Require().NoError(err)
}
