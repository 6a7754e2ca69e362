package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/model"
)

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *mockSubscriptionRepo) CountByEmailAndType(ctx context.Context, email string, equipmentType model.EquipmentType) (int, error) {
	args := m.Called(ctx, email, equipmentType)
	return args.Int(0), args.Error(1)
}

func (m *mockSubscriptionRepo) FindByEmailAndType(ctx context.Context, email string, equipmentType model.EquipmentType) ([]model.Subscription, error) {
	args := m.Called(ctx, email, equipmentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, params model.CreateSubscriptionParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSubscriptionRepo) FindPendingByEmail(ctx context.Context, email string, now time.Time) ([]model.Subscription, error) {
	args := m.Called(ctx, email, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) MarkVerified(ctx context.Context, id int64, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepo) FindActive(ctx context.Context, key model.SubscriptionKey, now time.Time) (*model.Subscription, error) {
	args := m.Called(ctx, key, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) TouchUpdated(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) MarkUnbound(ctx context.Context, id int64, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepo) FindLatestVerified(ctx context.Context, email string) (*model.Subscription, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) ListActive(ctx context.Context, now time.Time) ([]model.ActiveSubscription, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActiveSubscription), args.Error(1)
}

type mockDeviceRepo struct {
	mock.Mock
}

func (m *mockDeviceRepo) FindByID(ctx context.Context, id string) (*model.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *mockDeviceRepo) RandomIDs(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockDeviceRepo) Search(ctx context.Context, keyword string) ([]model.Device, error) {
	args := m.Called(ctx, keyword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

func (m *mockDeviceRepo) Upsert(ctx context.Context, params model.UpsertDeviceParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type mockReadingRepo struct {
	mock.Mock
}

func (m *mockReadingRepo) Latest(ctx context.Context, deviceID string) (*model.Reading, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reading), args.Error(1)
}

func (m *mockReadingRepo) ListRecent(ctx context.Context, deviceID string, limit int) ([]model.Reading, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reading), args.Error(1)
}

func (m *mockReadingRepo) Exists(ctx context.Context, deviceID string, readTime time.Time) (bool, error) {
	args := m.Called(ctx, deviceID, readTime)
	return args.Bool(0), args.Error(1)
}

func (m *mockReadingRepo) Create(ctx context.Context, params model.CreateReadingParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Dispatch(ctx context.Context, kind string, msg mail.Message) error {
	args := m.Called(ctx, kind, msg)
	return args.Error(0)
}
