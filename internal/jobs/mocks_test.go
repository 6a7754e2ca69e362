package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/portal"
	"github.com/meterwatch/alert-server-go/internal/repository"
)

type stubSubscriptionRepo struct {
	repository.SubscriptionRepository
	active []model.ActiveSubscription
	err    error
}

func (s *stubSubscriptionRepo) ListActive(ctx context.Context, now time.Time) ([]model.ActiveSubscription, error) {
	return s.active, s.err
}

type stubReadingRepo struct {
	repository.ReadingRepository
	latest map[string]*model.Reading
	errs   map[string]error
}

func (s *stubReadingRepo) Latest(ctx context.Context, deviceID string) (*model.Reading, error) {
	return s.latest[deviceID], s.errs[deviceID]
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	kind []string
	err  error
}

func (m *recordingMailer) Dispatch(ctx context.Context, kind string, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	m.kind = append(m.kind, kind)
	return nil
}

type mockPortalClient struct {
	mock.Mock
}

func (m *mockPortalClient) Login(ctx context.Context, phone, password string) (*portal.LoginResult, error) {
	args := m.Called(ctx, phone, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portal.LoginResult), args.Error(1)
}

func (m *mockPortalClient) ListAccounts(ctx context.Context, appUserID, roleID string) (*portal.AccountList, error) {
	args := m.Called(ctx, appUserID, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portal.AccountList), args.Error(1)
}
