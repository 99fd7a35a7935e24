package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/storage"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

// Errors returned by the service layer. Admission errors are shared with the tenant middleware.
var (
	ErrNotFound     = tenant.ErrNotFound
	ErrInactive     = tenant.ErrInactive
	ErrTrialExpired = tenant.ErrTrialExpired
	ErrConflict     = errors.New("tenant already exists")
	ErrNotTrial     = errors.New("only trial stores can be discarded")
)

// Status is the stored lifecycle status of a tenant. Expiry is derived, never stored.
type Status string

const (
	StatusTrial    Status = "trial"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus converts a stored or requested value into a Status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.TrimSpace(raw)); s {
	case StatusTrial, StatusActive, StatusInactive:
		return s, nil
	default:
		return "", fmt.Errorf("unknown tenant status %q", raw)
	}
}

// DefaultThemeColor is applied to stores that never chose one.
const DefaultThemeColor = "#007bff"

// ShippingOrigin is the RajaOngkir location orders ship from.
type ShippingOrigin struct {
	ProvinceID string
	CityID     string
}

// Tenant is one store operated by a store admin.
type Tenant struct {
	ID              string
	OwnerID         string
	Name            string
	WhatsAppContact string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiryDate      *time.Time
	ThemeColor      string
	LogoRef         *string
	ShippingOrigin  *ShippingOrigin
}

// Expired reports whether a trial tenant is past its expiry.
func (t Tenant) Expired(now time.Time) bool {
	return t.Status == StatusTrial && t.ExpiryDate != nil && now.After(*t.ExpiryDate)
}

// Admissibility returns ErrInactive or ErrTrialExpired when the store admin must be denied.
func (t Tenant) Admissibility(now time.Time) error {
	switch t.Status {
	case StatusInactive:
		return ErrInactive
	case StatusTrial:
		if t.ExpiryDate == nil || now.After(*t.ExpiryDate) {
			return ErrTrialExpired
		}
		return nil
	case StatusActive:
		return nil
	default:
		return fmt.Errorf("tenant %s has unknown status %q", t.ID, t.Status)
	}
}

// HasContactChannel reports whether orders can be routed to the store's WhatsApp.
func (t Tenant) HasContactChannel() bool {
	return strings.TrimSpace(t.WhatsAppContact) != ""
}

// FieldErrors mirrors validation failures per field.
type FieldErrors map[string][]string

// ValidationError conveys invalid input.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// CreateInput is used at store admin registration; the tenant id equals the owner's principal id.
type CreateInput struct {
	ID              string
	OwnerID         string
	Name            string
	WhatsAppContact string
}

// ProfileInput carries owner-editable fields; nil leaves a field untouched.
type ProfileInput struct {
	Name            *string
	WhatsAppContact *string
	ThemeColor      *string
}

// ListOptions captures filters and pagination.
type ListOptions struct {
	Page     int
	PageSize int
	Status   *Status
}

// ListResult wraps paginated tenants.
type ListResult struct {
	Tenants    []Tenant
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Repository abstracts persistence. Update replaces every mutable field (last writer wins).
type Repository interface {
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id string) (Tenant, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Update(ctx context.Context, t Tenant) (Tenant, error)
	Delete(ctx context.Context, id string) error
}

// Config holds lifecycle and storage settings.
type Config struct {
	EnvKey        string
	Bucket        string
	TrialDays     int
	ExtensionDays int
}

// Service provides tenant registry operations.
type Service struct {
	repo  Repository
	store storage.ObjectStore
	cfg   Config
	now   func() time.Time

	mu        sync.RWMutex
	listeners []func(tenantID string)
}

// New constructs a Service. store may be nil when logo uploads are disabled.
func New(repo Repository, store storage.ObjectStore, cfg Config) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	if cfg.EnvKey == "" {
		panic("envKey is required")
	}
	if cfg.TrialDays <= 0 {
		cfg.TrialDays = 7
	}
	if cfg.ExtensionDays <= 0 {
		cfg.ExtensionDays = 30
	}
	return &Service{repo: repo, store: store, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// OnChange registers a callback fired after a tenant's status, expiry or profile changes.
func (s *Service) OnChange(fn func(tenantID string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Service) changed(id string) {
	s.mu.RLock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(id)
	}
}

var (
	hexColor     = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	whatsappLike = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// NormalizeWhatsApp strips separators and a leading + so the number can be used in wa.me links.
func NormalizeWhatsApp(raw string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return strings.TrimPrefix(replacer.Replace(strings.TrimSpace(raw)), "+")
}

func validateWhatsApp(fields FieldErrors, raw string) {
	if raw == "" {
		return
	}
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(raw)
	if !whatsappLike.MatchString(cleaned) {
		fields["whatsappContact"] = append(fields["whatsappContact"], "must be a phone number in international format")
	}
}

// CreateTrial registers a store in trial status expiring TrialDays from now.
func (s *Service) CreateTrial(ctx context.Context, input CreateInput) (Tenant, error) {
	fields := FieldErrors{}
	if strings.TrimSpace(input.ID) == "" {
		fields["id"] = append(fields["id"], "is required")
	}
	if strings.TrimSpace(input.OwnerID) == "" {
		fields["ownerId"] = append(fields["ownerId"], "is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["storeName"] = append(fields["storeName"], "is required")
	}
	validateWhatsApp(fields, strings.TrimSpace(input.WhatsAppContact))
	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}

	now := s.now().UTC()
	expiry := now.AddDate(0, 0, s.cfg.TrialDays)
	t := Tenant{
		ID:              input.ID,
		OwnerID:         input.OwnerID,
		Name:            name,
		WhatsAppContact: NormalizeWhatsApp(input.WhatsAppContact),
		Status:          StatusTrial,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiryDate:      &expiry,
		ThemeColor:      DefaultThemeColor,
	}
	return s.repo.Create(ctx, t)
}

// Discard removes a store that never got an owner profile. Only trial stores can be
// discarded.
func (s *Service) Discard(ctx context.Context, id string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusTrial {
		return ErrNotTrial
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(id)
	return nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id string) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// List tenants with optional status filter.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	return s.repo.List(ctx, opts)
}

// CheckAdmission loads the tenant and returns its admissibility error, if any.
func (s *Service) CheckAdmission(ctx context.Context, id string) (Tenant, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if err := t.Admissibility(s.now()); err != nil {
		return t, err
	}
	return t, nil
}

// PublicStore returns a storefront for customers; inactive and expired stores are unavailable.
func (s *Service) PublicStore(ctx context.Context, id string) (Tenant, error) {
	return s.CheckAdmission(ctx, id)
}

// UpdateProfile changes owner-editable fields.
func (s *Service) UpdateProfile(ctx context.Context, id string, input ProfileInput) (Tenant, error) {
	fields := FieldErrors{}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		fields["name"] = append(fields["name"], "must not be empty")
	}
	if input.WhatsAppContact != nil {
		validateWhatsApp(fields, strings.TrimSpace(*input.WhatsAppContact))
	}
	if input.ThemeColor != nil && !hexColor.MatchString(*input.ThemeColor) {
		fields["themeColor"] = append(fields["themeColor"], "must be a #rrggbb colour")
	}
	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	next := current
	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
	}
	if input.WhatsAppContact != nil {
		next.WhatsAppContact = NormalizeWhatsApp(*input.WhatsAppContact)
	}
	if input.ThemeColor != nil {
		next.ThemeColor = strings.ToLower(*input.ThemeColor)
	}
	return s.save(ctx, next)
}

var logoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// UploadLogo stores the image under the tenant prefix and records its reference.
func (s *Service) UploadLogo(ctx context.Context, id, contentType string, body io.Reader) (Tenant, error) {
	if s.store == nil {
		return Tenant{}, errors.New("logo storage is not configured")
	}
	if !logoTypes[contentType] {
		return Tenant{}, &ValidationError{Fields: FieldErrors{"logo": {"must be a png, jpeg, webp or gif image"}}}
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	space := tenant.Space{TenantID: id, BasePrefix: tenant.BuildBasePrefix(s.cfg.EnvKey, id)}
	loc, err := storage.ResolveObjectLocation(space, s.cfg.Bucket, tenant.LogoKey(s.now().UnixMilli()))
	if err != nil {
		return Tenant{}, err
	}
	ref, err := s.store.Put(ctx, loc, contentType, body)
	if err != nil {
		return Tenant{}, fmt.Errorf("upload logo: %w", err)
	}

	current.LogoRef = &ref
	return s.save(ctx, current)
}

// SetShippingOrigin records where the store ships from.
func (s *Service) SetShippingOrigin(ctx context.Context, id string, origin ShippingOrigin) (Tenant, error) {
	fields := FieldErrors{}
	if strings.TrimSpace(origin.ProvinceID) == "" {
		fields["provinceId"] = append(fields["provinceId"], "is required")
	}
	if strings.TrimSpace(origin.CityID) == "" {
		fields["cityId"] = append(fields["cityId"], "is required")
	}
	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	current.ShippingOrigin = &origin
	return s.save(ctx, current)
}

// SetStatus activates or deactivates a tenant. Trial is only entered through ExtendTrial.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Tenant, error) {
	if status != StatusActive && status != StatusInactive {
		return Tenant{}, &ValidationError{Fields: FieldErrors{"status": {"must be active or inactive"}}}
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	current.Status = status
	return s.save(ctx, current)
}

// ExtendTrial puts the tenant in trial with expiry max(current expiry, now) + ExtensionDays.
func (s *Service) ExtendTrial(ctx context.Context, id string) (Tenant, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	base := s.now().UTC()
	if current.ExpiryDate != nil && current.ExpiryDate.After(base) {
		base = *current.ExpiryDate
	}
	expiry := base.AddDate(0, 0, s.cfg.ExtensionDays)
	current.ExpiryDate = &expiry
	current.Status = StatusTrial
	return s.save(ctx, current)
}

func (s *Service) save(ctx context.Context, t Tenant) (Tenant, error) {
	if t.Status == StatusTrial && t.ExpiryDate == nil {
		return Tenant{}, &ValidationError{Fields: FieldErrors{"expiryDate": {"is required for trial stores"}}}
	}
	t.UpdatedAt = s.now().UTC()
	out, err := s.repo.Update(ctx, t)
	if err != nil {
		return Tenant{}, err
	}
	s.changed(out.ID)
	return out, nil
}

// ResolveTenantSpace returns a lightweight tenant Space for middleware consumption.
func (s *Service) ResolveTenantSpace(ctx context.Context, id string) (tenant.Space, error) {
	t, err := s.CheckAdmission(ctx, id)
	if err != nil {
		return tenant.Space{}, err
	}
	space := tenant.Space{
		TenantID:   t.ID,
		Name:       t.Name,
		Status:     string(t.Status),
		BasePrefix: tenant.BuildBasePrefix(s.cfg.EnvKey, t.ID),
	}
	if t.Status == StatusTrial && t.ExpiryDate != nil {
		expires := *t.ExpiryDate
		space.ExpiresAt = &expires
	}
	return space, nil
}

// Paginate slices already-filtered tenants; shared by in-memory backends.
func Paginate(items []Tenant, opts ListOptions) ListResult {
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return ListResult{
		Tenants:    items[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(items),
		TotalPages: (len(items) + pageSize - 1) / pageSize,
	}
}
