package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
)

type fakeLocations struct {
	provinceCalls int
	cityCalls     int
	err           error
}

func (f *fakeLocations) Provinces(context.Context) ([]Province, error) {
	f.provinceCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []Province{{ID: "9", Name: "Jawa Barat"}, {ID: "6", Name: "DKI Jakarta"}}, nil
}

func (f *fakeLocations) Cities(_ context.Context, provinceID string) ([]City, error) {
	f.cityCalls++
	if f.err != nil {
		return nil, f.err
	}
	if provinceID != "9" {
		return nil, nil
	}
	return []City{{ID: "23", ProvinceID: "9", Type: "Kota", Name: "Bandung"}, {ID: "22", ProvinceID: "9", Type: "Kabupaten", Name: "Bandung"}}, nil
}

type fakeStores struct {
	tenants map[string]tenantsservice.Tenant
}

func (f *fakeStores) Get(_ context.Context, id string) (tenantsservice.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return tenantsservice.Tenant{}, tenantsservice.ErrNotFound
	}
	return t, nil
}

func (f *fakeStores) SetShippingOrigin(_ context.Context, id string, origin tenantsservice.ShippingOrigin) (tenantsservice.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return tenantsservice.Tenant{}, tenantsservice.ErrNotFound
	}
	t.ShippingOrigin = &origin
	f.tenants[id] = t
	return t, nil
}

func newFixture(t *testing.T, locations Locations) (*Service, *fakeStores) {
	t.Helper()
	stores := &fakeStores{tenants: map[string]tenantsservice.Tenant{"t1": {ID: "t1", Name: "Toko"}}}
	return New(locations, stores, zaptest.NewLogger(t)), stores
}

func TestUnconfiguredLookupsFail(t *testing.T) {
	t.Parallel()

	svc, _ := newFixture(t, nil)
	require.False(t, svc.Configured())

	_, err := svc.Provinces(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.Cities(context.Background(), "9")
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.SetOrigin(context.Background(), "t1", "9", "23")
	require.ErrorIs(t, err, ErrNotConfigured)

	_, ok, err := svc.Origin(context.Background(), "t1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLookupsAreCached(t *testing.T) {
	t.Parallel()

	locations := &fakeLocations{}
	svc, _ := newFixture(t, locations)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for range 3 {
		_, err := svc.Provinces(context.Background())
		require.NoError(t, err)
		_, err = svc.Cities(context.Background(), "9")
		require.NoError(t, err)
	}
	require.Equal(t, 1, locations.provinceCalls)
	require.Equal(t, 1, locations.cityCalls)

	now = now.Add(DefaultCacheTTL + time.Minute)
	_, err := svc.Provinces(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, locations.provinceCalls)
}

func TestSetOriginValidatesCityAgainstProvince(t *testing.T) {
	t.Parallel()

	svc, stores := newFixture(t, &fakeLocations{})

	_, err := svc.SetOrigin(context.Background(), "t1", "99", "23")
	require.ErrorIs(t, err, ErrUnknownProvince)
	_, err = svc.SetOrigin(context.Background(), "t1", "6", "23")
	require.ErrorIs(t, err, ErrUnknownCity)

	origin, err := svc.SetOrigin(context.Background(), "t1", "9", "22")
	require.NoError(t, err)
	require.Equal(t, "Kabupaten Bandung", origin.CityName)
	require.Equal(t, "22", stores.tenants["t1"].ShippingOrigin.CityID)

	saved, ok, err := svc.Origin(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Origin{ProvinceID: "9", ProvinceName: "Jawa Barat", CityID: "22", CityName: "Kabupaten Bandung"}, saved)
}

func TestOriginSurvivesLookupFailure(t *testing.T) {
	t.Parallel()

	locations := &fakeLocations{}
	svc, stores := newFixture(t, locations)
	stores.tenants["t1"] = tenantsservice.Tenant{ID: "t1", ShippingOrigin: &tenantsservice.ShippingOrigin{ProvinceID: "9", CityID: "23"}}
	locations.err = errors.New("upstream down")

	origin, ok, err := svc.Origin(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "23", origin.CityID)
	require.Empty(t, origin.CityName)
}
