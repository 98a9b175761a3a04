package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/authsvc/internal/database/users"
	"github.com/mrlokans/authsvc/internal/entities"
	"github.com/mrlokans/authsvc/internal/session"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.User{}))
	return db
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	sm := session.NewManager(session.NewMemoryStore(), time.Hour)
	t.Cleanup(sm.Close)
	return NewService(users.NewRepository(setupTestDB(t)), sm, NewBcryptHasher(bcrypt.MinCost), opts...)
}

func register(t *testing.T, svc *Service, username, email, password string) string {
	t.Helper()
	id, err := svc.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	return id
}

func TestService_Register(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, "user1", "u1@example.com", "pw123")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	t.Run("same username", func(t *testing.T) {
		_, err := svc.Register(ctx, "user1", "other@example.com", "pw123")
		assert.ErrorIs(t, err, ErrDuplicateUser)
	})

	t.Run("same email", func(t *testing.T) {
		_, err := svc.Register(ctx, "user2", "u1@example.com", "pw123")
		assert.ErrorIs(t, err, ErrDuplicateUser)
	})

	t.Run("does not log in", func(t *testing.T) {
		n, err := svc.sessions.DestroyUser(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestService_Register_Validation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"missing username", "", "a@example.com", "pw123", ErrUsernameRequired},
		{"missing email", "alice", "", "pw123", ErrEmailRequired},
		{"missing password", "alice", "a@example.com", "", ErrPasswordRequired},
		{"email without at sign", "alice", "alice.example.com", "pw123", ErrEmailInvalid},
		{"email too long", "alice", strings.Repeat("a", 250) + "@example.com", "pw123", ErrEmailInvalid},
		{"username too short", "al", "a@example.com", "pw123", ErrUsernameInvalid},
		{"username with at sign", "al@ce", "a@example.com", "pw123", ErrUsernameInvalid},
		{"password over bcrypt limit", "alice", "a@example.com", strings.Repeat("p", 73), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestService_Register_ConcurrentSameUsername(t *testing.T) {
	svc := newTestService(t)

	const n = 20
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "racer", fmt.Sprintf("racer%d@example.com", i), "pw123")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, duplicates int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDuplicateUser):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, duplicates)
}

func TestService_Login(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := register(t, svc, "user1", "u1@example.com", "pw123")

	for _, identifier := range []string{"user1", "u1@example.com"} {
		t.Run("by "+identifier, func(t *testing.T) {
			token, err := svc.Login(ctx, identifier, "pw123", "")
			require.NoError(t, err)
			require.NotEmpty(t, token)

			p, err := svc.CheckAccess(ctx, token)
			require.NoError(t, err)
			assert.True(t, p.Authenticated())
			assert.Equal(t, id, p.UserID)
		})
	}
}

func TestService_Login_FailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	register(t, svc, "user1", "u1@example.com", "pw123")

	_, wrongPassword := svc.Login(ctx, "user1", "wrongpw", "")
	_, unknownUser := svc.Login(ctx, "nobody", "pw123", "")
	_, emptyFields := svc.Login(ctx, "", "", "")

	for _, err := range []error{wrongPassword, unknownUser, emptyFields} {
		require.Error(t, err)
		assert.Same(t, ErrInvalidCredentials, err)
	}
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestService_Login_UnknownUserStillHashes(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: NewBcryptHasher(bcrypt.MinCost)}
	sm := session.NewManager(session.NewMemoryStore(), time.Hour)
	t.Cleanup(sm.Close)
	svc := NewService(users.NewRepository(setupTestDB(t)), sm, hasher)

	_, err := svc.Login(context.Background(), "nobody", "pw123", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.verifies)
}

func TestService_Logout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	register(t, svc, "user1", "u1@example.com", "pw123")

	token, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)

	svc.Logout(ctx, token)
	p, err := svc.CheckAccess(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, p)

	// Idempotent, including for tokens that never existed.
	svc.Logout(ctx, token)
	svc.Logout(ctx, "never-issued")
	svc.Logout(ctx, "")
}

func TestService_Login_InvalidatesCurrentSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := register(t, svc, "user1", "u1@example.com", "pw123")

	oldToken, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)

	newToken, err := svc.Login(ctx, "user1", "pw123", oldToken)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)

	p, err := svc.CheckAccess(ctx, oldToken)
	require.NoError(t, err)
	assert.False(t, p.Authenticated())

	p, err = svc.CheckAccess(ctx, newToken)
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)
}

func TestService_Login_FailureKeepsCurrentSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	register(t, svc, "user1", "u1@example.com", "pw123")

	token, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "user1", "wrongpw", token)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	p, err := svc.CheckAccess(ctx, token)
	require.NoError(t, err)
	assert.True(t, p.Authenticated())
}

func TestService_Login_CanceledBeforeCommit(t *testing.T) {
	store := newMemUserStore()
	sessions := &recordingSessions{}
	hasher := NewBcryptHasher(bcrypt.MinCost)
	svc := NewService(store, sessions, hasher)

	hash, err := hasher.Hash("pw123")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "user1", "u1@example.com", hash)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.Login(ctx, "user1", "pw123", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sessions.creates)
}

func TestService_CheckAccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, token := range []string{"", "unknown-token"} {
		p, err := svc.CheckAccess(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, Anonymous, p)
		assert.False(t, p.Authenticated())
	}
}

func TestService_CurrentUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := register(t, svc, "user1", "u1@example.com", "pw123")

	token, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "user1", user.Username)

	_, err = svc.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestService_RevokeAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := register(t, svc, "user1", "u1@example.com", "pw123")
	register(t, svc, "user2", "u2@example.com", "pw456")

	t1, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)
	t2, err := svc.Login(ctx, "u1@example.com", "pw123", "")
	require.NoError(t, err)
	other, err := svc.Login(ctx, "user2", "pw456", "")
	require.NoError(t, err)

	n, err := svc.RevokeAll(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, token := range []string{t1, t2} {
		p, err := svc.CheckAccess(ctx, token)
		require.NoError(t, err)
		assert.False(t, p.Authenticated())
	}
	p, err := svc.CheckAccess(ctx, other)
	require.NoError(t, err)
	assert.True(t, p.Authenticated())
}

func TestService_StoreUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	ctx := context.Background()

	t.Run("credential store", func(t *testing.T) {
		store := newMemUserStore()
		store.err = boom
		svc := NewService(store, &recordingSessions{}, NewBcryptHasher(bcrypt.MinCost))

		_, err := svc.Register(ctx, "user1", "u1@example.com", "pw123")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, boom)

		_, err = svc.Login(ctx, "user1", "pw123", "")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("session store", func(t *testing.T) {
		var logs bytes.Buffer
		sessions := &recordingSessions{err: boom}
		svc := NewService(newMemUserStore(), sessions, NewBcryptHasher(bcrypt.MinCost),
			WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		)

		_, err := svc.CheckAccess(ctx, "some-token")
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		// Logout swallows the failure and logs only a fingerprint.
		svc.Logout(ctx, "raw-secret-token")
		assert.Contains(t, logs.String(), session.Fingerprint("raw-secret-token"))
		assert.NotContains(t, logs.String(), "raw-secret-token")
	})
}

func TestService_EndToEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, "user1", "u1@example.com", "pw123")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)

	p, err := svc.CheckAccess(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)

	svc.Logout(ctx, token)

	p, err = svc.CheckAccess(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, p)

	_, err = svc.Login(ctx, "user1", "wrongpw", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	p, err = svc.CheckAccess(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, p)
}

func TestService_AuditAndMetrics(t *testing.T) {
	auditor := &recordingAuditor{}
	metrics := &recordingMetrics{}
	svc := newTestService(t, WithAuditor(auditor), WithMetrics(metrics))
	ctx := context.Background()

	register(t, svc, "user1", "u1@example.com", "pw123")
	token, err := svc.Login(ctx, "user1", "pw123", "")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "user1", "wrongpw", "")
	require.Error(t, err)
	svc.Logout(ctx, token)

	require.Len(t, auditor.events, 4)

	assert.Equal(t, entities.AuditEventRegister, auditor.events[0].EventType)

	login := auditor.events[1]
	assert.Equal(t, entities.AuditEventLogin, login.EventType)
	assert.Equal(t, entities.AuditStatusSuccess, login.Status)
	assert.Equal(t, session.Fingerprint(token), login.SessionRef)

	failed := auditor.events[2]
	assert.Equal(t, entities.AuditStatusFailed, failed.Status)
	assert.Equal(t, OutcomeInvalidCredentials, failed.Reason)
	assert.Empty(t, failed.UserID)

	logout := auditor.events[3]
	assert.Equal(t, entities.AuditEventLogout, logout.EventType)
	assert.Equal(t, login.UserID, logout.UserID)

	for _, e := range auditor.events {
		for _, field := range []string{e.Identifier, e.SessionRef, e.Reason} {
			assert.NotContains(t, field, "pw123")
			assert.NotContains(t, field, token)
		}
	}

	assert.Contains(t, metrics.seen, OpRegister+"/"+OutcomeSuccess)
	assert.Contains(t, metrics.seen, OpLogin+"/"+OutcomeSuccess)
	assert.Contains(t, metrics.seen, OpLogin+"/"+OutcomeInvalidCredentials)
	assert.Contains(t, metrics.seen, OpLogout+"/"+OutcomeSuccess)
}

type countingHasher struct {
	PasswordHasher
	verifies int
}

func (h *countingHasher) Verify(password, hash string) (bool, error) {
	h.verifies++
	return h.PasswordHasher.Verify(password, hash)
}

// memUserStore ignores ctx, which lets tests reach the session commit with a
// canceled context.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*entities.User
	err   error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*entities.User)}
}

func (m *memUserStore) FindByIdentifier(_ context.Context, identifier string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memUserStore) GetByID(_ context.Context, id string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (m *memUserStore) Create(_ context.Context, username, email, hash string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	id := fmt.Sprintf("user-%d", len(m.users)+1)
	u := &entities.User{ID: id, Username: username, Email: email, PasswordHash: hash}
	m.users[id] = u
	return u, nil
}

type recordingSessions struct {
	creates int
	err     error
}

func (r *recordingSessions) Create(context.Context, string) (string, error) {
	r.creates++
	return "token", r.err
}

func (r *recordingSessions) Resolve(context.Context, string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "", session.ErrInvalid
}

func (r *recordingSessions) Destroy(context.Context, string) error { return r.err }

func (r *recordingSessions) DestroyUser(context.Context, string) (int, error) { return 0, r.err }

type recordingAuditor struct {
	mu     sync.Mutex
	events []*entities.AuditEvent
}

func (a *recordingAuditor) LogAuth(_ context.Context, e *entities.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

type recordingMetrics struct {
	mu   sync.Mutex
	seen []string
}

func (m *recordingMetrics) ObserveOperation(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, op+"/"+outcome)
}
