package accounts_test

import (
	"context"
	"sync"
	"time"

	accounts "github.com/calderan/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCredentialStore implements accounts.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockCredentialStore) FindByVerificationToken(ctx context.Context, token string) (*accounts.Account, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockCredentialStore) FindByResetToken(ctx context.Context, token string) (*accounts.Account, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockCredentialStore) InsertUnique(ctx context.Context, record *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, record)
	if fn, ok := args.Get(0).(func(context.Context, *accounts.Account) *accounts.Account); ok {
		return fn(ctx, record), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockCredentialStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockCredentialStore) IncrementFailedAttempts(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockCredentialStore) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMailer implements accounts.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerification(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockMailer) SendReset(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

// memStore is an in-memory CredentialStore used by end to end tests.
type memStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*accounts.Account
	byEmail map[string]uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		byID:    map[uuid.UUID]*accounts.Account{},
		byEmail: map[string]uuid.UUID{},
	}
}

func notFound(key, value string) error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{key: value})
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, notFound("email", email)
	}
	return s.clone(s.byID[id]), nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, notFound("id", id.String())
	}
	return s.clone(record), nil
}

func (s *memStore) FindByVerificationToken(_ context.Context, token string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.byID {
		if record.VerificationToken != nil && *record.VerificationToken == token {
			return s.clone(record), nil
		}
	}
	return nil, notFound("verification_token", token)
}

func (s *memStore) FindByResetToken(_ context.Context, token string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.byID {
		if record.ResetToken != nil && *record.ResetToken == token {
			return s.clone(record), nil
		}
	}
	return nil, notFound("reset_token", token)
}

func (s *memStore) InsertUnique(_ context.Context, record *accounts.Account) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[record.Email]; exists {
		return nil, goerrors.New("email already registered", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.EnsureRole()

	s.byID[record.ID] = s.clone(record)
	s.byEmail[record.Email] = record.ID

	return s.clone(record), nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return notFound("id", id.String())
	}

	for key, value := range fields {
		switch key {
		case "email":
			delete(s.byEmail, record.Email)
			record.Email = value.(string)
			s.byEmail[record.Email] = id
		case "role":
			switch v := value.(type) {
			case string:
				record.Role = accounts.Role(v)
			case accounts.Role:
				record.Role = v
			}
		case "verified":
			record.Verified = value.(bool)
		case "password_hash":
			record.PasswordHash = value.(string)
		case "verification_token":
			record.VerificationToken = optString(value)
		case "reset_token":
			record.ResetToken = optString(value)
		}
	}

	return nil
}

func (s *memStore) IncrementFailedAttempts(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return notFound("id", id.String())
	}

	record.FailedAttempts++
	stamp := at
	record.LastFailedAttempt = &stamp

	return nil
}

func (s *memStore) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return notFound("id", id.String())
	}

	record.FailedAttempts = 0
	record.LastFailedAttempt = nil

	return nil
}

func (s *memStore) clone(record *accounts.Account) *accounts.Account {
	cp := *record
	return &cp
}

func optString(value any) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return &v
	case *string:
		return v
	default:
		return nil
	}
}

var _ accounts.CredentialStore = (*memStore)(nil)
