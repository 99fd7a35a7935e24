package rajaongkir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/service"
)

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, service.ErrNotConfigured)
}

func TestProvincesAndCities(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/province":
			_, _ = w.Write([]byte(`{"rajaongkir":{"status":{"code":200,"description":"OK"},"results":[{"province_id":"9","province":"Jawa Barat"}]}}`))
		case "/city":
			require.Equal(t, "9", r.URL.Query().Get("province"))
			_, _ = w.Write([]byte(`{"rajaongkir":{"status":{"code":200,"description":"OK"},"results":[{"city_id":"23","province_id":"9","province":"Jawa Barat","type":"Kota","city_name":"Bandung","postal_code":"40111"}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{APIKey: "secret", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	provinces, err := client.Provinces(context.Background())
	require.NoError(t, err)
	require.Equal(t, []service.Province{{ID: "9", Name: "Jawa Barat"}}, provinces)

	cities, err := client.Cities(context.Background(), "9")
	require.NoError(t, err)
	require.Len(t, cities, 1)
	require.Equal(t, "Kota Bandung", cities[0].DisplayName())
	require.Equal(t, "40111", cities[0].PostalCode)
}

func TestUpstreamErrorCarriesDescription(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"rajaongkir":{"status":{"code":400,"description":"Invalid key."}}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{APIKey: "wrong", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Provinces(context.Background())
	require.Error(t, err)
	require.True(t, IsUpstream(err))
	require.Contains(t, err.Error(), "Invalid key.")
}
