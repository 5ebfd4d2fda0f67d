package device_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/device"
)

type recordingPublisher struct {
	mu      sync.Mutex
	devices []device.Device
	err     error
}

func (p *recordingPublisher) PublishDevice(_ context.Context, d *device.Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append(p.devices, *d)
	return p.err
}

func (p *recordingPublisher) published() []device.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]device.Device(nil), p.devices...)
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestService(pubs ...device.Publisher) *device.Service {
	return device.NewService(device.ServiceConfig{
		Repository: device.NewInMemoryRepository(),
		Publishers: pubs,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return fixedNow },
	})
}

func pm10() airquality.Pollutant {
	return airquality.Pollutant{Name: "PM10", Code: "24", Unit: "µg/m3", Green: 39, Red: 80, Index: 7}
}

func TestService_EnsureStationDevice(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureStationDevice(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureStationDevice(ctx)
	require.NoError(t, err)
	assert.False(t, created, "second call keeps the existing device")

	d, err := svc.Get(ctx, device.StationUnit)
	require.NoError(t, err)
	assert.Equal(t, device.StationDeviceName, d.Name)
	assert.Equal(t, device.KindText, d.Kind)
	assert.True(t, d.Used)
	assert.Equal(t, fixedNow, d.CreatedAt)
}

func TestService_UpdateStation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.EnsureStationDevice(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStation(ctx, "PARIS - Les Halles (FR04143/75101) at 2km"))

	d, err := svc.Get(ctx, device.StationUnit)
	require.NoError(t, err)
	assert.Equal(t, "PARIS - Les Halles (FR04143/75101) at 2km", d.Value)
}

func TestService_PollutantDevice(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.EnsurePollutantDevice(ctx, pm10())
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, svc.UpdatePollutant(ctx, pm10(), 42))

	d, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "PM10", d.Name)
	assert.Equal(t, device.KindCustom, d.Kind)
	assert.Equal(t, "µg/m3", d.UnitLabel)
	assert.False(t, d.Used)
	assert.Equal(t, 42, d.Level)
	assert.Equal(t, "42", d.Value)
	assert.Equal(t, "orange", d.Status)
	assert.Equal(t, "prevairorange", d.Icon)
}

func TestService_UpdatePollutant_RemovedDeviceNotRecreated(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.EnsurePollutantDevice(ctx, pm10())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 7))

	err = svc.UpdatePollutant(ctx, pm10(), 12)
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)

	_, err = svc.Get(ctx, 7)
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
}

func TestService_PublishesChanges(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	_, err := svc.EnsurePollutantDevice(ctx, pm10())
	require.NoError(t, err)
	_, err = svc.EnsurePollutantDevice(ctx, pm10())
	require.NoError(t, err)
	require.NoError(t, svc.UpdatePollutant(ctx, pm10(), 95))

	got := pub.published()
	require.Len(t, got, 2, "creation and update, not the no-op ensure")
	assert.Equal(t, 95, got[1].Level)
	assert.Equal(t, "prevairred", got[1].Icon)
}

func TestService_PublisherErrorDoesNotFailUpdate(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService()
	svc.AddPublisher(pub)
	ctx := context.Background()

	_, err := svc.EnsureStationDevice(ctx)
	require.NoError(t, err)
	assert.NoError(t, svc.UpdateStation(ctx, "x"))
	assert.Len(t, pub.published(), 2)
}

func TestService_DeleteUnknown(t *testing.T) {
	svc := newTestService()

	err := svc.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
}
