// Package prevair provides a client for the PREV'AIR web service.
package prevair

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/provider/resilience"
	"github.com/prevairwatch/prevairwatch/internal/telemetry"
)

const (
	// DefaultBaseURL is the PREV'AIR web service endpoint.
	DefaultBaseURL = "http://www2.prevair.org/ineris-web-services.php"

	// ProviderName identifies this provider.
	ProviderName = "prevair"

	// DefaultTimeout bounds each upstream request.
	DefaultTimeout = 10 * time.Second
)

// Endpoints selected by the url query parameter.
const (
	EndpointStations          = "stations"
	EndpointDailyMeasurements = "mesureJourna"
	EndpointDailyIndex        = "atmo"
)

// Field positions in upstream rows.
const (
	stationCodeField    = 0
	stationNameField    = 1
	stationINSEEField   = 3
	stationDisplayField = 4
	stationLatField     = 5
	stationLonField     = 6

	measurementStationField = 0
	measurementMaxField     = 5
	measurementValueField   = 6

	indexINSEEField = 1
	indexValueField = 7
)

// ClientConfig holds configuration for the PREV'AIR client.
type ClientConfig struct {
	// BaseURL is the web service URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a resilient client is created from the fields below.
	HTTPClient HTTPDoer

	// Timeout for individual requests (default: 10s).
	Timeout time.Duration

	// MaxRetries is the number of extra attempts per request (default: 0).
	MaxRetries uint64

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records request duration and outcome (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a PREV'AIR web service client. It implements airquality.Provider.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

var _ airquality.Provider = (*Client)(nil)

// NewClient creates a new PREV'AIR client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.MaxRetries = cfg.MaxRetries
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// BuildURL returns the request URL for an endpoint. The date is always
// sent, empty in list mode; the pollutant code only when non-empty.
func (c *Client) BuildURL(endpoint, date, pollutantCode string) string {
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}

	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString(sep)
	b.WriteString("url=")
	b.WriteString(url.QueryEscape(endpoint))
	b.WriteString("&date=")
	b.WriteString(url.QueryEscape(date))
	if pollutantCode != "" {
		b.WriteString("&code_polluant=")
		b.WriteString(url.QueryEscape(pollutantCode))
	}
	return b.String()
}

// Get issues a GET request and decodes the JSON array of rows.
func (c *Client) Get(ctx context.Context, rawURL string) (rows []Row, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ctx, ProviderName, endpointOf(rawURL), time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", rawURL).Msg("error reaching upstream")
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("url", rawURL).Msg("http error")
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		c.logger.Error().Err(err).Str("url", rawURL).Msg("malformed response body")
		return nil, &ParseError{Field: -1, Err: err}
	}

	return rows, nil
}

// FetchStations retrieves the station list, without the header row.
func (c *Client) FetchStations(ctx context.Context) ([]*airquality.Station, error) {
	rows, err := c.Get(ctx, c.BuildURL(EndpointStations, "", ""))
	if err != nil {
		return nil, err
	}

	stations := make([]*airquality.Station, 0, len(rows))
	for i, row := range rows {
		station, err := toStation(row)
		if err != nil {
			c.logger.Debug().Err(err).Int("row", i).Msg("skipping station row")
			continue
		}
		if station.Code == airquality.HeaderStationCode {
			continue
		}
		stations = append(stations, station)
	}

	return stations, nil
}

// FetchDailyMeasurements retrieves every station's daily measurement of a
// pollutant.
func (c *Client) FetchDailyMeasurements(ctx context.Context, date, pollutantCode string) ([]*airquality.Measurement, error) {
	rows, err := c.Get(ctx, c.BuildURL(EndpointDailyMeasurements, date, pollutantCode))
	if err != nil {
		return nil, err
	}

	measurements := make([]*airquality.Measurement, 0, len(rows))
	for i, row := range rows {
		m, err := toMeasurement(row)
		if err != nil {
			c.logger.Debug().Err(err).Int("row", i).Str("pollutant", pollutantCode).Msg("skipping measurement row")
			continue
		}
		measurements = append(measurements, m)
	}

	return measurements, nil
}

// FetchDailyIndices retrieves the overall daily index of every commune.
func (c *Client) FetchDailyIndices(ctx context.Context, date string) ([]*airquality.DailyIndex, error) {
	rows, err := c.Get(ctx, c.BuildURL(EndpointDailyIndex, date, ""))
	if err != nil {
		return nil, err
	}

	indices := make([]*airquality.DailyIndex, 0, len(rows))
	for i, row := range rows {
		idx, err := toDailyIndex(row)
		if err != nil {
			c.logger.Debug().Err(err).Int("row", i).Msg("skipping index row")
			continue
		}
		indices = append(indices, idx)
	}

	return indices, nil
}

func toStation(row Row) (*airquality.Station, error) {
	code, err := row.String(stationCodeField)
	if err != nil {
		return nil, err
	}
	if code == airquality.HeaderStationCode {
		return &airquality.Station{Code: code}, nil
	}

	name, err := row.String(stationNameField)
	if err != nil {
		return nil, err
	}
	insee, err := row.String(stationINSEEField)
	if err != nil {
		return nil, err
	}
	display, err := row.String(stationDisplayField)
	if err != nil {
		return nil, err
	}
	lat, err := row.Float(stationLatField)
	if err != nil {
		return nil, err
	}
	lon, err := row.Float(stationLonField)
	if err != nil {
		return nil, err
	}

	return &airquality.Station{
		Code:        code,
		Name:        name,
		INSEE:       insee,
		DisplayName: display,
		Lat:         lat,
		Lon:         lon,
	}, nil
}

func toMeasurement(row Row) (*airquality.Measurement, error) {
	code, err := row.String(measurementStationField)
	if err != nil {
		return nil, err
	}
	maxValue, err := row.Float(measurementMaxField)
	if err != nil {
		return nil, err
	}
	value, err := row.Float(measurementValueField)
	if err != nil {
		return nil, err
	}

	return &airquality.Measurement{
		StationCode: code,
		Max:         maxValue,
		Value:       value,
	}, nil
}

func toDailyIndex(row Row) (*airquality.DailyIndex, error) {
	insee, err := row.String(indexINSEEField)
	if err != nil {
		return nil, err
	}
	index, err := row.Int(indexValueField)
	if err != nil {
		return nil, err
	}

	return &airquality.DailyIndex{INSEE: insee, Index: index}, nil
}

// endpointOf extracts the endpoint name used as a metric attribute.
func endpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	if ep := u.Query().Get("url"); ep != "" {
		return ep
	}
	return "unknown"
}
