package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/logger"
)

const (
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	requestTimeout = 15 * time.Second
	cacheTTL       = 30 * time.Minute

	// Two forecast days so a late-evening request still has a full
	// forecast window of future hours
	forecastDays = 2
	highLowHours = 24
)

type Config struct {
	Latitude      float64
	Longitude     float64
	LocationName  string
	ForecastHours int
}

// ForecastHour is one hour of the upcoming forecast.
type ForecastHour struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature"`
	WeatherCode int     `json:"weather_code"`
}

// Data is the assembled weather report for the configured location.
type Data struct {
	LocationName string         `json:"location_name"`
	Temperature  float64        `json:"temperature"`
	WeatherCode  int            `json:"weather_code"`
	High         float64        `json:"high"`
	Low          float64        `json:"low"`
	Humidity     float64        `json:"humidity"`
	WindSpeed    float64        `json:"wind_speed"`
	Forecast     []ForecastHour `json:"forecast"`
}

// Client fetches weather from the Open-Meteo API and caches the last
// successful report for cacheTTL.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	forecastURL  string
	geocodingURL string

	mu       sync.Mutex
	cached   *Data
	cachedAt time.Time
	now      func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: requestTimeout},
		forecastURL:  defaultForecastURL,
		geocodingURL: defaultGeocodingURL,
		now:          time.Now,
	}
}

type forecastResponse struct {
	Current struct {
		Time             string  `json:"time"`
		Temperature      float64 `json:"temperature_2m"`
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		WeatherCode      int     `json:"weather_code"`
		WindSpeed        float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		Time         []string  `json:"time"`
		Temperature  []float64 `json:"temperature_2m"`
		WeatherCodes []int     `json:"weather_code"`
	} `json:"hourly"`
}

// Current returns the cached report when it is fresh enough, otherwise
// fetches a new one. Errors never evict a previously cached report.
func (c *Client) Current(ctx context.Context) (Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		age := c.now().Sub(c.cachedAt)
		if age < cacheTTL {
			logger.Debug().Dur("age", age).Msg("Returning cached weather data")
			return *c.cached, nil
		}
		logger.Debug().Dur("age", age).Msg("Weather cache expired")
	}

	data, err := c.fetch(ctx)
	if err != nil {
		return Data{}, err
	}

	c.cached = &data
	c.cachedAt = c.now()

	return data, nil
}

func (c *Client) fetch(ctx context.Context) (Data, error) {
	errFactory := errors.New()

	params := url.Values{}
	params.Set("latitude", formatCoord(c.cfg.Latitude))
	params.Set("longitude", formatCoord(c.cfg.Longitude))
	params.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	params.Set("hourly", "temperature_2m,weather_code")
	params.Set("timezone", "auto")
	params.Set("forecast_days", fmt.Sprintf("%d", forecastDays))

	var payload forecastResponse
	if err := c.getJSON(ctx, c.forecastURL, params, &payload); err != nil {
		return Data{}, err
	}

	if len(payload.Hourly.Time) == 0 || len(payload.Hourly.Temperature) == 0 {
		return Data{}, errFactory.WithMessage(ErrDecodeFailed, "forecast response has no hourly data")
	}

	forecast := c.buildForecast(&payload)
	logger.Info().Int("hours", len(forecast)).Msg("Fetched weather forecast")

	high, low := highLow(payload.Hourly.Temperature)

	return Data{
		LocationName: c.cfg.LocationName,
		Temperature:  round1(payload.Current.Temperature),
		WeatherCode:  payload.Current.WeatherCode,
		High:         high,
		Low:          low,
		Humidity:     payload.Current.RelativeHumidity,
		WindSpeed:    round1(payload.Current.WindSpeed),
		Forecast:     forecast,
	}, nil
}

// buildForecast selects the configured number of hours starting at the
// current hour. Open-Meteo hourly times are "YYYY-MM-DDTHH:MM" strings in
// the requested timezone, so a plain string comparison orders them.
func (c *Client) buildForecast(payload *forecastResponse) []ForecastHour {
	forecast := make([]ForecastHour, 0, c.cfg.ForecastHours)

	for i, hourlyTime := range payload.Hourly.Time {
		if len(forecast) >= c.cfg.ForecastHours {
			break
		}
		if hourlyTime < payload.Current.Time {
			continue
		}
		if i >= len(payload.Hourly.Temperature) || i >= len(payload.Hourly.WeatherCodes) {
			break
		}

		label := hourlyTime
		if parsed, err := time.Parse("2006-01-02T15:04", hourlyTime); err == nil {
			label = parsed.Format("3PM")
		}

		forecast = append(forecast, ForecastHour{
			Time:        label,
			Temperature: round1(payload.Hourly.Temperature[i]),
			WeatherCode: payload.Hourly.WeatherCodes[i],
		})
	}

	return forecast
}

type geocodeResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Geocode resolves a location name to coordinates.
func (c *Client) Geocode(ctx context.Context, location string) (latitude, longitude float64, err error) {
	errFactory := errors.New()

	params := url.Values{}
	params.Set("name", location)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var payload geocodeResponse
	if err := c.getJSON(ctx, c.geocodingURL, params, &payload); err != nil {
		return 0, 0, err
	}

	if len(payload.Results) == 0 {
		return 0, 0, errFactory.WithData(ErrNoGeocodeMatch, location)
	}

	result := payload.Results[0]
	logger.Info().
		Str("location", location).
		Float64("latitude", result.Latitude).
		Float64("longitude", result.Longitude).
		Msg("Geocoded location")

	return result.Latitude, result.Longitude, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return errFactory.Wrap(ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errFactory.WithData(ErrUpstreamStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errFactory.Wrap(ErrDecodeFailed, err)
	}

	return nil
}

func highLow(temperatures []float64) (high, low float64) {
	n := len(temperatures)
	if n > highLowHours {
		n = highLowHours
	}
	if n == 0 {
		return 0, 0
	}

	high, low = temperatures[0], temperatures[0]
	for _, temp := range temperatures[1:n] {
		high = math.Max(high, temp)
		low = math.Min(low, temp)
	}

	return round1(high), round1(low)
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func formatCoord(value float64) string {
	return fmt.Sprintf("%.4f", value)
}
