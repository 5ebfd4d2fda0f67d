package airquality

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/prevairwatch/prevairwatch/internal/airquality"

// Provider defines the interface for PREV'AIR data access.
type Provider interface {
	// FetchStations fetches the station list.
	FetchStations(ctx context.Context) ([]*Station, error)

	// FetchDailyMeasurements fetches every station's daily measurement of a
	// pollutant for the given date (YYYY-MM-DD).
	FetchDailyMeasurements(ctx context.Context, date, pollutantCode string) ([]*Measurement, error)

	// FetchDailyIndices fetches the overall daily index of every commune.
	FetchDailyIndices(ctx context.Context, date string) ([]*DailyIndex, error)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the PREV'AIR data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service selects stations and normalizes readings. It keeps no state
// between calls: every lookup goes to the provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// SelectStation fetches the station list and selects the explicit or
// nearest station. When the list cannot be fetched the failure defaults
// are returned together with the fetch error.
func (s *Service) SelectStation(ctx context.Context, explicitCode string, home Point) (Selection, error) {
	ctx, span := s.tracer.Start(ctx, "airquality.SelectStation",
		trace.WithAttributes(attribute.String("station.explicit_code", explicitCode)))
	defer span.End()

	stations, err := s.provider.FetchStations(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Msg("failed to fetch station list")
		return failedSelection(), fmt.Errorf("fetch stations: %w", err)
	}

	sel := SelectStation(stations, explicitCode, home)
	span.SetAttributes(
		attribute.String("station.code", sel.Code),
		attribute.Int("station.distance_km", sel.DistanceKm),
	)

	if !sel.Found {
		s.logger.Warn().
			Str("explicit_code", explicitCode).
			Int("stations", len(stations)).
			Msg("no matching station")
		return sel, ErrStationNotFound
	}

	return sel, nil
}

// GetDailyIndex returns the overall air quality index of a commune for a
// date. ErrNoIndex is returned when the commune is not listed.
func (s *Service) GetDailyIndex(ctx context.Context, insee, date string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "airquality.GetDailyIndex",
		trace.WithAttributes(
			attribute.String("station.insee", insee),
			attribute.String("date", date),
		))
	defer span.End()

	indices, err := s.provider.FetchDailyIndices(ctx, date)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("fetch daily indices: %w", err)
	}

	for _, idx := range indices {
		if idx.INSEE == insee {
			return idx.Index, nil
		}
	}

	return 0, ErrNoIndex
}

// GetPollutantLevel returns the rounded daily level and maximum of a
// pollutant at a station. ErrNoMeasurements is returned when the station
// did not report the pollutant.
func (s *Service) GetPollutantLevel(ctx context.Context, stationCode, date, pollutantCode string) (Reading, error) {
	ctx, span := s.tracer.Start(ctx, "airquality.GetPollutantLevel",
		trace.WithAttributes(
			attribute.String("station.code", stationCode),
			attribute.String("pollutant.code", pollutantCode),
			attribute.String("date", date),
		))
	defer span.End()

	measurements, err := s.provider.FetchDailyMeasurements(ctx, date, pollutantCode)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Reading{}, fmt.Errorf("fetch daily measurements: %w", err)
	}

	for _, m := range measurements {
		if m.StationCode == stationCode {
			return Reading{
				Level:    RoundLevel(m.Value),
				LevelMax: RoundLevel(m.Max),
			}, nil
		}
	}

	return Reading{}, ErrNoMeasurements
}

// RoundLevel converts a raw measurement into a display level: the value is
// shifted by one half and rounded half up.
func RoundLevel(raw float64) int {
	return int(math.Round(raw + 0.5))
}
