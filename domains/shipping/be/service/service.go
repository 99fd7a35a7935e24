package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
)

var (
	// ErrNotConfigured is returned when no RajaOngkir API key was supplied.
	ErrNotConfigured = errors.New("shipping rates are not configured")
	// ErrUnknownProvince is returned for a province id the API does not list.
	ErrUnknownProvince = errors.New("unknown province")
	// ErrUnknownCity is returned for a city outside the chosen province.
	ErrUnknownCity = errors.New("unknown city for province")
)

// DefaultCacheTTL bounds how long location lists are reused.
const DefaultCacheTTL = 12 * time.Hour

// Province is a RajaOngkir province.
type Province struct {
	ID   string
	Name string
}

// City is a RajaOngkir city or regency.
type City struct {
	ID         string
	ProvinceID string
	Type       string
	Name       string
	PostalCode string
}

// DisplayName renders "Kota Bandung" or "Kabupaten Bandung".
func (c City) DisplayName() string {
	return strings.TrimSpace(c.Type + " " + c.Name)
}

// Locations resolves provinces and cities.
type Locations interface {
	Provinces(ctx context.Context) ([]Province, error)
	Cities(ctx context.Context, provinceID string) ([]City, error)
}

// Stores reads and updates the store's saved origin.
type Stores interface {
	Get(ctx context.Context, id string) (tenantsservice.Tenant, error)
	SetShippingOrigin(ctx context.Context, id string, origin tenantsservice.ShippingOrigin) (tenantsservice.Tenant, error)
}

// Origin is the saved shipping origin, enriched with names when lookups are available.
type Origin struct {
	ProvinceID   string
	ProvinceName string
	CityID       string
	CityName     string
}

// Service exposes shipping settings for a store admin.
type Service struct {
	locations Locations
	stores    Stores
	logger    *zap.Logger
	ttl       time.Duration
	now       func() time.Time

	mu        sync.Mutex
	provinces cached[[]Province]
	cities    map[string]cached[[]City]
}

type cached[T any] struct {
	value   T
	fetched time.Time
}

// New builds the service. A nil locations source disables lookups with ErrNotConfigured.
func New(locations Locations, stores Stores, logger *zap.Logger) *Service {
	if stores == nil {
		panic("stores are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		locations: locations,
		stores:    stores,
		logger:    logger,
		ttl:       DefaultCacheTTL,
		now:       time.Now,
		cities:    map[string]cached[[]City]{},
	}
}

// Configured reports whether lookups are possible.
func (s *Service) Configured() bool {
	return s.locations != nil
}

// Provinces lists provinces, reusing a recent answer.
func (s *Service) Provinces(ctx context.Context) ([]Province, error) {
	if s.locations == nil {
		return nil, ErrNotConfigured
	}
	s.mu.Lock()
	hit := s.provinces
	s.mu.Unlock()
	if !hit.fetched.IsZero() && s.now().Sub(hit.fetched) < s.ttl {
		return hit.value, nil
	}

	provinces, err := s.locations.Provinces(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.provinces = cached[[]Province]{value: provinces, fetched: s.now()}
	s.mu.Unlock()
	return provinces, nil
}

// Cities lists the cities of a province, reusing a recent answer.
func (s *Service) Cities(ctx context.Context, provinceID string) ([]City, error) {
	if s.locations == nil {
		return nil, ErrNotConfigured
	}
	provinceID = strings.TrimSpace(provinceID)
	if provinceID == "" {
		return nil, ErrUnknownProvince
	}
	s.mu.Lock()
	hit, ok := s.cities[provinceID]
	s.mu.Unlock()
	if ok && s.now().Sub(hit.fetched) < s.ttl {
		return hit.value, nil
	}

	cities, err := s.locations.Cities(ctx, provinceID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cities[provinceID] = cached[[]City]{value: cities, fetched: s.now()}
	s.mu.Unlock()
	return cities, nil
}

// Origin returns the store's saved origin. Names are filled in best-effort.
func (s *Service) Origin(ctx context.Context, tenantID string) (Origin, bool, error) {
	t, err := s.stores.Get(ctx, tenantID)
	if err != nil {
		return Origin{}, false, err
	}
	if t.ShippingOrigin == nil {
		return Origin{}, false, nil
	}
	origin := Origin{ProvinceID: t.ShippingOrigin.ProvinceID, CityID: t.ShippingOrigin.CityID}
	if s.locations == nil {
		return origin, true, nil
	}

	if province, err := s.province(ctx, origin.ProvinceID); err == nil {
		origin.ProvinceName = province.Name
	} else {
		s.logger.Warn("resolve origin province", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	if city, err := s.city(ctx, origin.ProvinceID, origin.CityID); err == nil {
		origin.CityName = city.DisplayName()
	} else {
		s.logger.Warn("resolve origin city", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return origin, true, nil
}

// SetOrigin validates the city against the province and stores it on the tenant.
func (s *Service) SetOrigin(ctx context.Context, tenantID, provinceID, cityID string) (Origin, error) {
	if s.locations == nil {
		return Origin{}, ErrNotConfigured
	}
	province, err := s.province(ctx, provinceID)
	if err != nil {
		return Origin{}, err
	}
	city, err := s.city(ctx, provinceID, cityID)
	if err != nil {
		return Origin{}, err
	}
	if _, err := s.stores.SetShippingOrigin(ctx, tenantID, tenantsservice.ShippingOrigin{ProvinceID: province.ID, CityID: city.ID}); err != nil {
		return Origin{}, err
	}
	return Origin{ProvinceID: province.ID, ProvinceName: province.Name, CityID: city.ID, CityName: city.DisplayName()}, nil
}

func (s *Service) province(ctx context.Context, id string) (Province, error) {
	provinces, err := s.Provinces(ctx)
	if err != nil {
		return Province{}, err
	}
	for _, p := range provinces {
		if p.ID == id {
			return p, nil
		}
	}
	return Province{}, ErrUnknownProvince
}

func (s *Service) city(ctx context.Context, provinceID, cityID string) (City, error) {
	cities, err := s.Cities(ctx, provinceID)
	if err != nil {
		return City{}, err
	}
	for _, c := range cities {
		if c.ID == cityID {
			return c, nil
		}
	}
	return City{}, ErrUnknownCity
}
