package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
)

var (
	_ service.PermissionSource   = (*MockPermissionSource)(nil)
	_ service.UserDirectory      = (*MockUserDirectory)(nil)
	_ service.CredentialVerifier = (*MockCredentialVerifier)(nil)
	_ service.UsernameChecker    = (*MockUsernameChecker)(nil)
	_ service.AuditSink          = (*MockAuditSink)(nil)
)

// MockPermissionSource is a mock implementation of PermissionSource
type MockPermissionSource struct {
	mock.Mock
}

func (m *MockPermissionSource) EffectivePermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Permission), args.Error(1)
}

// MockUserDirectory is a mock implementation of UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

// MockCredentialVerifier is a mock implementation of CredentialVerifier
type MockCredentialVerifier struct {
	mock.Mock
}

func (m *MockCredentialVerifier) VerifyCredentials(ctx context.Context, email, password string) (*models.User, bool, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

// MockUsernameChecker is a mock implementation of UsernameChecker
type MockUsernameChecker struct {
	mock.Mock
}

func (m *MockUsernameChecker) Exists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

// MockAuditSink is a mock implementation of AuditSink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Emit(ctx context.Context, event models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
