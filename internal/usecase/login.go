package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/pkg/token"
)

// LoginIdentity is returned by the first login phase.
type LoginIdentity struct {
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail,omitempty"`
	APIKey    string `json:"apiKey"`
	CompanyID string `json:"companyId"`
}

// SessionUser is the tenant user profile returned on a completed login.
type SessionUser struct {
	*domain.User
	CompanyID string `json:"companyId"`
}

// LoginSession is returned by the second login phase.
type LoginSession struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	UserData  SessionUser `json:"userData"`
}

// LoginService implements the two phase login.
type LoginService struct {
	store   domain.Store
	issuer  *token.Issuer
	audit   AuditRecorder
	logger  *zap.Logger
	metrics *metrics.APIMetrics
}

// NewLoginService creates a new LoginService.
func NewLoginService(store domain.Store, issuer *token.Issuer, audit AuditRecorder, logger *zap.Logger, m *metrics.APIMetrics) *LoginService {
	return &LoginService{
		store:   store,
		issuer:  issuer,
		audit:   audit,
		logger:  logger.With(zap.String("component", "login")),
		metrics: m,
	}
}

// Check resolves (phone, companyId) to the tenant the user belongs to.
func (s *LoginService) Check(ctx context.Context, phone, companyID string) (*LoginIdentity, error) {
	phone, companyID = strings.TrimSpace(phone), strings.TrimSpace(companyID)
	if phone == "" {
		return nil, domain.NewValidationError("userPhone", "is required")
	}
	if companyID == "" {
		return nil, domain.NewValidationError("companyId", "is required")
	}

	entry, err := s.store.Directory().FindByPhoneAndCompany(ctx, phone, companyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.observe("check", "rejected")
			return nil, domain.ErrNotFound
		}
		s.observe("check", "error")
		return nil, fmt.Errorf("find directory entry: %w", err)
	}

	s.observe("check", "ok")
	return &LoginIdentity{
		UserName:  entry.UserName,
		UserEmail: entry.UserEmail,
		APIKey:    entry.APIKey,
		CompanyID: entry.CompanyID,
	}, nil
}

// Complete verifies the password digest and issues a session token. A
// missing directory entry, tenant or user and a wrong password all yield
// ErrInvalidCredentials.
func (s *LoginService) Complete(ctx context.Context, phone, companyID, digest string) (*LoginSession, error) {
	ctx, span := otel.Tracer("login-service").Start(ctx, "Complete")
	defer span.End()

	session, err := s.complete(ctx, strings.TrimSpace(phone), strings.TrimSpace(companyID), digest)
	switch {
	case err == nil:
		span.SetAttributes(spanAttrs(session.UserData.APIKey))
		s.observe("complete", "ok")
	case errors.Is(err, domain.ErrInvalidCredentials):
		s.observe("complete", "rejected")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observe("complete", "error")
	}
	return session, err
}

func (s *LoginService) complete(ctx context.Context, phone, companyID, digest string) (*LoginSession, error) {
	if phone == "" || companyID == "" || digest == "" {
		return nil, domain.ErrInvalidCredentials
	}

	entry, err := s.store.Directory().FindByPhoneAndCompany(ctx, phone, companyID)
	if err != nil {
		return nil, credentialsErr(err, "find directory entry")
	}

	tenant, err := s.store.Tenants().FindByAPIKey(ctx, entry.APIKey)
	if err != nil {
		return nil, credentialsErr(err, "find tenant")
	}
	if !tenant.Active() {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.Users().FindActiveByPhone(ctx, entry.APIKey, phone)
	if err != nil {
		return nil, credentialsErr(err, "find user")
	}
	if !token.CheckPasswordHash(digest, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	signed, expiresAt, err := s.issuer.Generate(entry.APIKey, entry.CompanyID, user.ID, user.UserRole)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("api_key", entry.APIKey), zap.String("user_id", user.ID))
	s.audit.Record(ctx, entry.APIKey, domain.ActionLoginSucceeded, user.ID, map[string]any{
		"userPhone": phone,
		"userRole":  user.UserRole,
	})
	return &LoginSession{
		Token:     signed,
		ExpiresAt: expiresAt,
		UserData:  SessionUser{User: user, CompanyID: entry.CompanyID},
	}, nil
}

func credentialsErr(err error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidCredentials
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *LoginService) observe(phase, outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues(phase, outcome).Inc()
	}
}
