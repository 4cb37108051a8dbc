package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// Place is a geocoding result.
type Place struct {
	Location    geo.Coordinates `json:"location"`
	DisplayName string          `json:"display_name"`
}

type httpClient interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

// Nominatim is an OpenStreetMap Nominatim search client.
type Nominatim struct {
	client    httpClient
	baseURL   string
	userAgent string
}

func retryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return false, err
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
}

// NewNominatim builds a client from cfg. The user agent is required by the
// Nominatim usage policy.
func NewNominatim(cfg config.GeocoderConfig, log *logger.Logger) *Nominatim {
	if log == nil {
		log = logger.Default()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.CheckRetry = retryPolicy()
	client.Logger = log.Slog()
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	return &Nominatim{
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

// Search geocodes a free-form query and returns the top result, or nil if
// nothing matched.
func (n *Nominatim) Search(ctx context.Context, query string) (*Place, error) {
	u := n.baseURL + "/search?" + url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon: %w", err)
	}

	return &Place{
		Location:    geo.Coordinates{Lat: lat, Lon: lon},
		DisplayName: results[0].DisplayName,
	}, nil
}
