package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mrlokans/authsvc/internal/database/audit"
	"github.com/mrlokans/authsvc/internal/entities"
)

const writeTimeout = 5 * time.Second

type clientInfoKey struct{}

type clientInfo struct {
	ip        string
	userAgent string
}

// WithClientInfo attaches the caller's address and user agent to ctx so
// events logged further down the call chain can record them.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{ip: ip, userAgent: userAgent})
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Log records an audit event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			s.logger.Error("failed to log audit event",
				slog.String("event_type", string(event.EventType)),
				slog.Any("error", err),
			)
		}
	}()
}

// LogAuth records an authentication event, adding client details carried
// by ctx. The request context is not used for the write itself, so a
// finished request does not cancel it.
func (s *Service) LogAuth(ctx context.Context, event *entities.AuditEvent) {
	if info, ok := ctx.Value(clientInfoKey{}).(clientInfo); ok {
		event.IPAddress = truncate(info.ip, 45)
		event.UserAgent = truncate(info.userAgent, 500)
	}
	event.Identifier = truncate(event.Identifier, 254)
	s.LogAsync(event)
}

// Wait blocks until every pending asynchronous write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
