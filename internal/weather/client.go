package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"kynex/internal/types"
)

// DefaultBaseURL is the IPMA open-data API root.
const DefaultBaseURL = "https://api.ipma.pt/open-data"

// Client implements types.WeatherProvider against the IPMA open-data API.
// The station directory is fetched once and cached for the process lifetime;
// station IDs are stable identifiers.
type Client struct {
	baseURL   string
	transport *transport

	mu       sync.Mutex
	stations map[string]string // lowercase city -> globalIdLocal
}

// NewClient creates a weather client. A nil httpClient gets a 10-second
// timeout default.
func NewClient(baseURL string, httpClient *http.Client, policy RetryPolicy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		transport: newTransport(httpClient, policy),
	}
}

// districtsResponse mirrors the IPMA districts-islands payload.
type districtsResponse struct {
	Data []struct {
		Local         string `json:"local"`
		GlobalIDLocal int    `json:"globalIdLocal"`
	} `json:"data"`
}

// forecastResponse mirrors the IPMA daily city forecast payload. Temperatures
// arrive as decimal strings.
type forecastResponse struct {
	Data []struct {
		ForecastDate string `json:"forecastDate"`
		TMin         string `json:"tMin"`
		TMax         string `json:"tMax"`
	} `json:"data"`
}

// ResolveStation maps a city name to its forecast station ID. Matching is
// case-insensitive. Unknown cities return upstream_weather_unavailable so
// callers fall back to seasonal temperatures.
func (c *Client) ResolveStation(ctx context.Context, city string) (string, error) {
	stations, err := c.stationDirectory(ctx)
	if err != nil {
		return "", err
	}
	id, ok := stations[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return "", types.NewAppError(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("no forecast station for city %q", city), nil)
	}
	return id, nil
}

// DailyForecast returns the daily min/max forecasts for a station, ordered as
// the upstream delivers them (today first). Rows with unparseable
// temperatures are skipped.
func (c *Client) DailyForecast(ctx context.Context, stationID string) ([]types.DailyTemperature, error) {
	url := fmt.Sprintf("%s/forecast/meteorology/cities/daily/%s.json", c.baseURL, stationID)

	var payload forecastResponse
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}

	forecasts := make([]types.DailyTemperature, 0, len(payload.Data))
	for _, row := range payload.Data {
		date, err := time.ParseInLocation("2006-01-02", row.ForecastDate, time.UTC)
		if err != nil {
			continue
		}
		tMin, errMin := strconv.ParseFloat(row.TMin, 64)
		tMax, errMax := strconv.ParseFloat(row.TMax, 64)
		if errMin != nil || errMax != nil {
			continue
		}
		forecasts = append(forecasts, types.DailyTemperature{Date: date, TMin: tMin, TMax: tMax})
	}
	return forecasts, nil
}

func (c *Client) stationDirectory(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stations != nil {
		return c.stations, nil
	}

	var payload districtsResponse
	if err := c.getJSON(ctx, c.baseURL+"/distrits-islands.json", &payload); err != nil {
		return nil, err
	}

	stations := make(map[string]string, len(payload.Data))
	for _, row := range payload.Data {
		stations[strings.ToLower(row.Local)] = strconv.Itoa(row.GlobalIDLocal)
	}
	c.stations = stations
	return stations, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	resp, err := c.transport.get(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather service returned %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode weather response", err)
	}
	return nil
}
