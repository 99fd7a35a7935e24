// Package rajaongkir is a small client for the RajaOngkir location endpoints.
package rajaongkir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/service"
)

// DefaultBaseURL is the starter-tier endpoint.
const DefaultBaseURL = "https://api.rajaongkir.com/starter"

// Config holds the credentials for the API.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client queries provinces and cities. It satisfies service.Locations.
type Client struct {
	key     string
	baseURL string
	http    *http.Client
}

// New returns a client. An empty API key yields service.ErrNotConfigured.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, service.ErrNotConfigured
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{key: cfg.APIKey, baseURL: base, http: &http.Client{Timeout: timeout}}, nil
}

// UpstreamError is a non-200 answer from the API.
type UpstreamError struct {
	StatusCode  int
	Description string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("rajaongkir error (%d): %s", e.StatusCode, e.Description)
}

type status struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

type envelope[T any] struct {
	RajaOngkir struct {
		Status  status `json:"status"`
		Results []T    `json:"results"`
	} `json:"rajaongkir"`
}

type provinceDoc struct {
	ProvinceID string `json:"province_id"`
	Province   string `json:"province"`
}

type cityDoc struct {
	CityID     string `json:"city_id"`
	ProvinceID string `json:"province_id"`
	Province   string `json:"province"`
	Type       string `json:"type"`
	CityName   string `json:"city_name"`
	PostalCode string `json:"postal_code"`
}

// Provinces lists every province.
func (c *Client) Provinces(ctx context.Context) ([]service.Province, error) {
	var env envelope[provinceDoc]
	if err := c.get(ctx, "province", nil, &env); err != nil {
		return nil, err
	}
	out := make([]service.Province, 0, len(env.RajaOngkir.Results))
	for _, doc := range env.RajaOngkir.Results {
		out = append(out, service.Province{ID: doc.ProvinceID, Name: doc.Province})
	}
	return out, nil
}

// Cities lists the cities of one province.
func (c *Client) Cities(ctx context.Context, provinceID string) ([]service.City, error) {
	var env envelope[cityDoc]
	if err := c.get(ctx, "city", url.Values{"province": {provinceID}}, &env); err != nil {
		return nil, err
	}
	out := make([]service.City, 0, len(env.RajaOngkir.Results))
	for _, doc := range env.RajaOngkir.Results {
		out = append(out, service.City{
			ID:         doc.CityID,
			ProvinceID: doc.ProvinceID,
			Type:       doc.Type,
			Name:       doc.CityName,
			PostalCode: doc.PostalCode,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, dst any) error {
	target := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build rajaongkir request: %w", err)
	}
	req.Header.Set("key", c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call rajaongkir %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read rajaongkir %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		var env envelope[json.RawMessage]
		description := http.StatusText(resp.StatusCode)
		if json.Unmarshal(body, &env) == nil && env.RajaOngkir.Status.Description != "" {
			description = env.RajaOngkir.Status.Description
		}
		return &UpstreamError{StatusCode: resp.StatusCode, Description: description}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode rajaongkir %s: %w", endpoint, err)
	}
	return nil
}

// IsUpstream reports whether err came back from the API itself.
func IsUpstream(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up)
}
