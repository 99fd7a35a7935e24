package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/access"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/messaging"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrSuperAdminSecret   = errors.New("super admin secret does not match")
	ErrRegistrationFailed = errors.New("registration could not be completed")
	ErrStoreMissing       = errors.New("store record is missing for this account")
	ErrStoreInactive      = tenantsservice.ErrInactive
	ErrStoreTrialExpired  = tenantsservice.ErrTrialExpired
)

const (
	minPasswordLength       = 6
	passwordResetRoutingKey = "account.password_reset"
)

// TenantRegistry is the slice of the tenants service used during admission.
type TenantRegistry interface {
	CreateTrial(ctx context.Context, input tenantsservice.CreateInput) (tenantsservice.Tenant, error)
	CheckAdmission(ctx context.Context, id string) (tenantsservice.Tenant, error)
	Discard(ctx context.Context, id string) error
}

// PendingCart applies an item a guest staged before signing in. Implementations take the
// staged value out before applying it, so a second call is a no-op.
type PendingCart interface {
	ApplyPending(ctx context.Context, customerID, cartSession string) (bool, error)
}

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	PasswordReset(ctx context.Context, email, link string) error
}

// Recorder receives admission metrics.
type Recorder interface {
	Registered(role string)
	AdmissionDenied(reason string)
}

type nopRecorder struct{}

func (nopRecorder) Registered(string)      {}
func (nopRecorder) AdmissionDenied(string) {}

// Config carries admission settings.
type Config struct {
	// SuperAdminSecret enables super admin registration when non-empty.
	SuperAdminSecret string
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Email            string
	Password         string
	Role             identity.Role
	StoreName        string
	WhatsAppContact  string
	SuperAdminSecret string
}

// SessionInput describes a login after credential verification.
type SessionInput struct {
	PrincipalID string
	CartSession string
	// From is the continuation captured when the customer was sent to login.
	From string
}

// Session is the outcome of a successful login.
type Session struct {
	Profile        identity.Profile
	RedirectTo     string
	PendingApplied bool
}

// Service implements registration, login admission and password reset.
type Service struct {
	profiles   repo.Repository
	identities platformauth.IdentityProvider
	resolver   *Resolver
	tenants    TenantRegistry
	pending    PendingCart
	resets     ResetNotifier
	recorder   Recorder
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Profiles   repo.Repository
	Identities platformauth.IdentityProvider
	Resolver   *Resolver
	Tenants    TenantRegistry
	Pending    PendingCart
	Resets     ResetNotifier
	Recorder   Recorder
	Logger     *zap.Logger
}

// New constructs the accounts service.
func New(deps Deps, cfg Config) *Service {
	if deps.Profiles == nil {
		panic("profile repository is required")
	}
	if deps.Identities == nil {
		panic("identity provider is required")
	}
	if deps.Resolver == nil {
		panic("resolver is required")
	}
	if deps.Tenants == nil {
		panic("tenant registry is required")
	}
	if deps.Logger == nil {
		panic("logger is required")
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	resets := deps.Resets
	if resets == nil {
		resets = NewLogResetNotifier(deps.Logger)
	}
	return &Service{
		profiles:   deps.Profiles,
		identities: deps.Identities,
		resolver:   deps.Resolver,
		tenants:    deps.Tenants,
		pending:    deps.Pending,
		resets:     resets,
		recorder:   recorder,
		cfg:        cfg,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Resolve exposes the profile resolver to the HTTP middleware.
func (s *Service) Resolve(ctx context.Context, principalID string) (identity.Profile, error) {
	return s.resolver.Resolve(ctx, principalID)
}

// Register creates a principal and its profile; store admins also get a trial store.
func (s *Service) Register(ctx context.Context, in RegisterInput) (identity.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fields := FieldErrors{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		fields["email"] = append(fields["email"], "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		fields["password"] = append(fields["password"], fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	switch in.Role {
	case identity.RoleStoreAdmin:
		if strings.TrimSpace(in.StoreName) == "" {
			fields["storeName"] = append(fields["storeName"], "is required for store admins")
		}
	case identity.RoleCustomer, identity.RoleSuperAdmin:
	default:
		fields["role"] = append(fields["role"], "must be customer, storeAdmin or superAdmin")
	}
	if len(fields) > 0 {
		return identity.Profile{}, &ValidationError{Fields: fields}
	}

	if in.Role == identity.RoleSuperAdmin && !s.superAdminSecretMatches(in.SuperAdminSecret) {
		return identity.Profile{}, ErrSuperAdminSecret
	}

	principalID, err := s.identities.CreatePrincipal(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, platformauth.ErrEmailTaken) {
			return identity.Profile{}, ErrEmailTaken
		}
		return identity.Profile{}, fmt.Errorf("create principal: %w", err)
	}

	profile := identity.Profile{
		ID:        principalID,
		Email:     email,
		Role:      in.Role,
		CreatedAt: s.now().UTC(),
	}

	if in.Role == identity.RoleStoreAdmin {
		if _, err := s.tenants.CreateTrial(ctx, tenantsservice.CreateInput{
			ID:              principalID,
			OwnerID:         principalID,
			Name:            in.StoreName,
			WhatsAppContact: in.WhatsAppContact,
		}); err != nil {
			s.abandon(ctx, principalID, false, err)
			return identity.Profile{}, fmt.Errorf("%w: create store: %w", ErrRegistrationFailed, err)
		}
		tenantID := principalID
		profile.TenantID = &tenantID
	}

	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		s.abandon(ctx, principalID, profile.TenantID != nil, err)
		return identity.Profile{}, fmt.Errorf("%w: create profile: %w", ErrRegistrationFailed, err)
	}

	s.recorder.Registered(string(created.Role))
	s.logger.Info("account registered", zap.String("principal_id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

func (s *Service) superAdminSecretMatches(provided string) bool {
	if s.cfg.SuperAdminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.SuperAdminSecret)) == 1
}

// abandon rolls back a half-finished registration: the trial store (when one was created)
// and the principal are removed so the same email can register again. Sessions are revoked
// first in case the delete fails.
func (s *Service) abandon(ctx context.Context, principalID string, storeCreated bool, cause error) {
	logger := s.logger.With(zap.String("principal_id", principalID))
	logger.Error("registration failed after principal creation", zap.Error(cause))
	ctx = context.WithoutCancel(ctx)

	if storeCreated {
		if err := s.tenants.Discard(ctx, principalID); err != nil {
			logger.Error("discard trial store", zap.Error(err))
		}
	}
	if err := s.identities.RevokeSessions(ctx, principalID); err != nil {
		logger.Error("revoke sessions", zap.Error(err))
	}
	if err := s.identities.DeletePrincipal(ctx, principalID); err != nil {
		logger.Error("delete principal", zap.Error(err))
	}
}

// OpenSession admits a verified principal: store admins must own an admissible store, and a
// customer's staged cart item is applied at most once.
func (s *Service) OpenSession(ctx context.Context, in SessionInput) (Session, error) {
	profile, err := s.resolver.Resolve(ctx, in.PrincipalID)
	if err != nil {
		return Session{}, err
	}

	switch profile.Role {
	case identity.RoleStoreAdmin:
		if _, err := s.tenants.CheckAdmission(ctx, profile.Tenant()); err != nil {
			return Session{}, s.denyStoreAdmin(ctx, profile, err)
		}
		return Session{Profile: profile, RedirectTo: access.AdminHome}, nil
	case identity.RoleSuperAdmin:
		return Session{Profile: profile, RedirectTo: access.SuperAdminHome}, nil
	case identity.RoleCustomer:
		session := Session{Profile: profile, RedirectTo: access.CustomerHome}
		if from := safeContinuation(in.From); from != "" {
			session.RedirectTo = from
		}
		if in.CartSession != "" && s.pending != nil {
			applied, err := s.pending.ApplyPending(ctx, profile.ID, in.CartSession)
			if err != nil {
				s.logger.Warn("pending cart item discarded", zap.String("principal_id", profile.ID), zap.Error(err))
			}
			session.PendingApplied = applied
		}
		return session, nil
	default:
		return Session{}, fmt.Errorf("profile %s has unknown role %q", profile.ID, profile.Role)
	}
}

func (s *Service) denyStoreAdmin(ctx context.Context, profile identity.Profile, cause error) error {
	var reason string
	switch {
	case errors.Is(cause, tenantsservice.ErrInactive):
		reason = "tenant-inactive"
	case errors.Is(cause, tenantsservice.ErrTrialExpired):
		reason = "trial-expired"
	case errors.Is(cause, tenantsservice.ErrNotFound):
		reason = "tenant-missing"
		cause = ErrStoreMissing
	default:
		return fmt.Errorf("check store admission: %w", cause)
	}

	s.recorder.AdmissionDenied(reason)
	s.logger.Info("store admin login denied", zap.String("principal_id", profile.ID), zap.String("reason", reason))
	if err := s.identities.RevokeSessions(ctx, profile.ID); err != nil {
		s.logger.Error("revoke sessions", zap.String("principal_id", profile.ID), zap.Error(err))
	}
	return cause
}

// safeContinuation keeps only same-origin absolute paths.
func safeContinuation(from string) string {
	from = strings.TrimSpace(from)
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return ""
	}
	if from == access.LoginPath {
		return ""
	}
	return from
}

// RequestPasswordReset generates a reset link and hands it to the notifier. Unknown emails are
// not reported so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return &ValidationError{Fields: FieldErrors{"email": {"must be a valid email address"}}}
	}

	link, err := s.identities.PasswordResetLink(ctx, email)
	if err != nil {
		if errors.Is(err, platformauth.ErrUnknownPrincipal) {
			return nil
		}
		return fmt.Errorf("password reset link: %w", err)
	}
	return s.resets.PasswordReset(ctx, email, link)
}

// EventPublisher publishes to the notification exchange.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, options ...messaging.PublishOption) error
}

type eventResetNotifier struct {
	pub EventPublisher
}

// NewEventResetNotifier publishes reset links for the mail worker.
func NewEventResetNotifier(pub EventPublisher) ResetNotifier {
	if pub == nil {
		panic("event publisher is required")
	}
	return &eventResetNotifier{pub: pub}
}

func (n *eventResetNotifier) PasswordReset(ctx context.Context, email, link string) error {
	body, err := json.Marshal(struct {
		Email string `json:"email"`
		Link  string `json:"link"`
	}{Email: email, Link: link})
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, passwordResetRoutingKey, body)
}

type logResetNotifier struct {
	logger *zap.Logger
}

// NewLogResetNotifier logs that a link was generated; used when no broker is configured.
func NewLogResetNotifier(logger *zap.Logger) ResetNotifier {
	return &logResetNotifier{logger: logger}
}

func (n *logResetNotifier) PasswordReset(_ context.Context, email, _ string) error {
	n.logger.Info("password reset link generated", zap.String("email", email))
	return nil
}
