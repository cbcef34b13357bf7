// Package weather fetches depot-area weather observations from an HTTP
// service and exposes them as a forecast provider.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/logger"
)

// Config holds the endpoint parameters for the weather service.
type Config struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Client queries the weather service for a daily observation.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     logger.Logger
}

// NewClient creates a weather client from configuration.
func NewClient(cfg Config) *Client {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     logger.New("weather-client"),
	}
}

type observation struct {
	RainfallMM  float64 `json:"rainfall_mm"`
	WindKPH     float64 `json:"wind_kph"`
	VisibilityM float64 `json:"visibility_m"`
}

// Weather fetches the observation for the given date.
func (c *Client) Weather(ctx context.Context, date time.Time) (model.WeatherSnapshot, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return model.WeatherSnapshot{}, fmt.Errorf("weather url: %w", err)
	}
	q := u.Query()
	q.Set("date", date.Format("2006-01-02"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.WeatherSnapshot{}, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return model.WeatherSnapshot{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.WeatherSnapshot{}, fmt.Errorf("weather service status %d", resp.StatusCode)
	}
	var obs observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return model.WeatherSnapshot{}, fmt.Errorf("decode weather response: %w", err)
	}
	return model.WeatherSnapshot{
		RecordedAt:  time.Now(),
		RainfallMM:  obs.RainfallMM,
		WindKPH:     obs.WindKPH,
		VisibilityM: obs.VisibilityM,
		Source:      u.Host,
	}, nil
}
