package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mrlokans/authsvc/internal/database/users"
	"github.com/mrlokans/authsvc/internal/entities"
	"github.com/mrlokans/authsvc/internal/session"
)

// UserStore is the credential store. FindByIdentifier and GetByID return
// users.ErrNotFound for a miss; Create returns users.ErrExists when the
// username or email is taken.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error)
	GetByID(ctx context.Context, id string) (*entities.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (*entities.User, error)
}

// SessionStore maps opaque tokens to user IDs. Resolve returns
// session.ErrInvalid for tokens that do not name a live session.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Destroy(ctx context.Context, token string) error
	DestroyUser(ctx context.Context, userID string) (int, error)
}

// Auditor receives one event per state transition attempt.
type Auditor interface {
	LogAuth(ctx context.Context, event *entities.AuditEvent)
}

// Metrics receives the outcome and duration of every operation.
type Metrics interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

// Principal is the result of an access check. The zero value is Anonymous.
type Principal struct {
	UserID string
}

// Anonymous is the principal of a request without a live session.
var Anonymous = Principal{}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// Service handles registration, login, logout and access checks.
type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   PasswordHasher

	// Verified against when the identifier is unknown, so a miss costs the
	// same hashing work as a wrong password.
	dummyHash string

	auditor Auditor
	metrics Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new authentication service.
func NewService(userStore UserStore, sessionStore SessionStore, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		users:    userStore,
		sessions: sessionStore,
		hasher:   hasher,
		auditor:  noopAuditor{},
		metrics:  noopMetrics{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash("timing-equalization-placeholder")
	if err != nil {
		// Verify against an empty hash fails fast; login still rejects.
		s.logger.Error("failed to compute dummy password hash", slog.Any("error", err))
	}
	s.dummyHash = dummy

	return s
}

// Register validates the input, rejects taken usernames and emails, and
// creates the user. It does not log the user in.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	start := time.Now()
	user, err := s.register(ctx, username, email, password)
	s.observe(OpRegister, start, err)

	event := &entities.AuditEvent{
		EventType:  entities.AuditEventRegister,
		Identifier: username,
		Status:     entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Reason = outcome(err)
		s.auditor.LogAuth(ctx, event)
		return "", err
	}
	event.UserID = user.ID
	s.auditor.LogAuth(ctx, event)

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user.ID, nil
}

func (s *Service) register(ctx context.Context, username, email, password string) (*entities.User, error) {
	if err := validateRegistration(username, email, password, s.hasher.MaxPasswordBytes()); err != nil {
		return nil, err
	}

	for _, identifier := range []string{username, email} {
		_, err := s.users.FindByIdentifier(ctx, identifier)
		if err == nil {
			return nil, ErrDuplicateUser
		}
		if !errors.Is(err, users.ErrNotFound) {
			return nil, storeErr("look up existing user", err)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	// The lookup above is advisory; the store's unique constraint decides races.
	user, err := s.users.Create(ctx, username, email, hash)
	if errors.Is(err, users.ErrExists) {
		return nil, ErrDuplicateUser
	}
	if err != nil {
		return nil, storeErr("create user", err)
	}
	return user, nil
}

// Login verifies the credentials and returns a new session token. Any
// session named by currentToken is destroyed before the new one is created.
// Unknown identifiers and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, identifier, password, currentToken string) (string, error) {
	start := time.Now()
	token, user, err := s.login(ctx, identifier, password, currentToken)
	s.observe(OpLogin, start, err)

	event := &entities.AuditEvent{
		EventType:  entities.AuditEventLogin,
		Identifier: identifier,
		Status:     entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Reason = outcome(err)
		s.auditor.LogAuth(ctx, event)
		return "", err
	}
	event.UserID = user.ID
	event.SessionRef = session.Fingerprint(token)
	s.auditor.LogAuth(ctx, event)

	return token, nil
}

func (s *Service) login(ctx context.Context, identifier, password, currentToken string) (string, *entities.User, error) {
	if identifier == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return "", nil, storeErr("look up user", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	ok, verifyErr := s.hasher.Verify(password, hash)
	if verifyErr != nil && user != nil {
		s.logger.Warn("stored password hash is unusable",
			slog.String("user_id", user.ID),
			slog.Any("error", verifyErr),
		)
	}
	if user == nil || !ok {
		return "", nil, ErrInvalidCredentials
	}

	if currentToken != "" {
		if err := s.sessions.Destroy(ctx, currentToken); err != nil {
			return "", nil, storeErr("destroy previous session", err)
		}
	}

	// Past this point the only write is the session commit; a caller that
	// has gone away gets no session at all.
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, storeErr("create session", err)
	}
	return token, user, nil
}

// Logout destroys the session named by token. It never fails from the
// caller's point of view; store errors are logged by token fingerprint.
func (s *Service) Logout(ctx context.Context, token string) {
	start := time.Now()
	if token == "" {
		s.observe(OpLogout, start, nil)
		return
	}

	// Resolved only to attribute the audit event.
	userID, _ := s.sessions.Resolve(ctx, token)

	err := s.sessions.Destroy(ctx, token)
	s.observe(OpLogout, start, err)

	event := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventLogout,
		SessionRef: session.Fingerprint(token),
		Status:     entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Reason = outcome(storeErr("destroy session", err))
		s.logger.Error("failed to destroy session",
			slog.String("session", session.Fingerprint(token)),
			slog.Any("error", err),
		)
	}
	s.auditor.LogAuth(ctx, event)
}

// CheckAccess resolves token to a principal. It has no side effects and
// returns an error only when the session store cannot be reached.
func (s *Service) CheckAccess(ctx context.Context, token string) (Principal, error) {
	start := time.Now()
	p, err := s.checkAccess(ctx, token)
	s.observe(OpCheckAccess, start, err)
	return p, err
}

func (s *Service) checkAccess(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Anonymous, nil
	}
	userID, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, session.ErrInvalid) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, storeErr("resolve session", err)
	}
	return Principal{UserID: userID}, nil
}

// CurrentUser returns the user behind token, or ErrNotAuthenticated.
func (s *Service) CurrentUser(ctx context.Context, token string) (*entities.User, error) {
	p, err := s.CheckAccess(ctx, token)
	if err != nil {
		return nil, err
	}
	if !p.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.GetByID(ctx, p.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return user, nil
}

// RevokeAll destroys every session of userID and reports how many existed.
func (s *Service) RevokeAll(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	n, err := s.sessions.DestroyUser(ctx, userID)
	if err != nil {
		err = storeErr("destroy user sessions", err)
	}
	s.observe(OpRevokeAll, start, err)

	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventRevoke,
		Status:    entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Reason = outcome(err)
	}
	s.auditor.LogAuth(ctx, event)

	return n, err
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, outcome(err), time.Since(start))
}

type noopAuditor struct{}

func (noopAuditor) LogAuth(context.Context, *entities.AuditEvent) {}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, time.Duration) {}
