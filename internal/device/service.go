package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
)

// Publisher receives every device change, for example to mirror devices
// to a home automation broker.
type Publisher interface {
	PublishDevice(ctx context.Context, d *Device) error
}

// ServiceConfig holds configuration for the device service.
type ServiceConfig struct {
	Repository Repository
	Publishers []Publisher
	Logger     zerolog.Logger

	// Now overrides the clock (optional).
	Now func() time.Time
}

// Service provides device operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	publishers []Publisher
}

// NewService creates a new device service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:       cfg.Repository,
		logger:     cfg.Logger,
		now:        now,
		publishers: append([]Publisher(nil), cfg.Publishers...),
	}
}

// AddPublisher attaches a publisher after construction.
func (s *Service) AddPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, p)
}

// List retrieves all devices ordered by unit.
func (s *Service) List(ctx context.Context) ([]*Device, error) {
	return s.repo.List(ctx)
}

// Get retrieves a device by unit.
func (s *Service) Get(ctx context.Context, unit int) (*Device, error) {
	return s.repo.Get(ctx, unit)
}

// Delete removes a device. Removed pollutant devices are recreated on the
// next cycle that reports a level; updates never recreate them.
func (s *Service) Delete(ctx context.Context, unit int) error {
	if err := s.repo.Delete(ctx, unit); err != nil {
		return fmt.Errorf("delete device %d: %w", unit, err)
	}
	s.logger.Info().Int("unit", unit).Msg("device removed")
	return nil
}

// EnsureStationDevice creates the station text device if it does not exist.
func (s *Service) EnsureStationDevice(ctx context.Context) (bool, error) {
	return s.ensure(ctx, &Device{
		Unit: StationUnit,
		Name: StationDeviceName,
		Kind: KindText,
		Used: true,
	})
}

// UpdateStation sets the text of the station device.
func (s *Service) UpdateStation(ctx context.Context, text string) error {
	return s.update(ctx, StationUnit, func(d *Device) {
		d.Value = text
	})
}

// EnsurePollutantDevice creates the custom sensor of a pollutant if it does
// not exist.
func (s *Service) EnsurePollutantDevice(ctx context.Context, p airquality.Pollutant) (bool, error) {
	return s.ensure(ctx, &Device{
		Unit:      p.Index,
		Name:      p.Name,
		Kind:      KindCustom,
		UnitLabel: p.Unit,
		Used:      p.Used,
	})
}

// UpdatePollutant sets the level of a pollutant device and its
// classification icon. ErrDeviceNotFound is returned, and nothing is
// written, when the device has been removed.
func (s *Service) UpdatePollutant(ctx context.Context, p airquality.Pollutant, level int) error {
	status := p.Classify(level)
	return s.update(ctx, p.Index, func(d *Device) {
		d.Level = level
		d.Value = strconv.Itoa(level)
		d.Status = string(status)
		d.Icon = status.Icon()
	})
}

func (s *Service) ensure(ctx context.Context, d *Device) (bool, error) {
	now := s.now()
	d.CreatedAt = now
	d.UpdatedAt = now

	err := s.repo.Create(ctx, d)
	switch {
	case errors.Is(err, ErrDeviceExists):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("create device %d: %w", d.Unit, err)
	}

	s.logger.Info().Int("unit", d.Unit).Str("name", d.Name).Str("kind", string(d.Kind)).Msg("device created")
	s.publish(ctx, d)
	return true, nil
}

func (s *Service) update(ctx context.Context, unit int, apply func(*Device)) error {
	d, err := s.repo.Get(ctx, unit)
	if err != nil {
		return fmt.Errorf("update device %d: %w", unit, err)
	}

	apply(d)
	d.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, d); err != nil {
		return fmt.Errorf("update device %d: %w", unit, err)
	}

	s.publish(ctx, d)
	return nil
}

func (s *Service) publish(ctx context.Context, d *Device) {
	s.mu.RLock()
	publishers := s.publishers
	s.mu.RUnlock()

	for _, p := range publishers {
		if err := p.PublishDevice(ctx, d); err != nil {
			s.logger.Warn().Err(err).Int("unit", d.Unit).Msg("failed to publish device")
		}
	}
}
