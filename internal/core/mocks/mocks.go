package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fixhub/realtime-backend/internal/core/domain"
)

// MockAuthenticator is a mock implementation of ports.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{}
}

func (m *MockAuthenticator) Verify(ctx context.Context, credential string) (*domain.Principal, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

// MockStatsRepository is a mock implementation of ports.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func NewMockStatsRepository() *MockStatsRepository {
	return &MockStatsRepository{}
}

func (m *MockStatsRepository) GetTodayStats(ctx context.Context) (*domain.TodayStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TodayStats), args.Error(1)
}

func (m *MockStatsRepository) GetPendingRepairCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) GetWeeklyRevenue(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStatsRepository) GetRecentTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockStatsRepository) GetInventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InventoryAlert), args.Error(1)
}

// MockCredentialRepository is a mock implementation of ports.CredentialRepository
type MockCredentialRepository struct {
	mock.Mock
}

func NewMockCredentialRepository() *MockCredentialRepository {
	return &MockCredentialRepository{}
}

func (m *MockCredentialRepository) GetAPICredential(ctx context.Context, keyID string) (*domain.APICredential, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APICredential), args.Error(1)
}
