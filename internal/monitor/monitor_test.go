package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/device"
	"github.com/prevairwatch/prevairwatch/internal/monitor"
)

var lyon = airquality.Selection{
	Code:       "FR20062",
	INSEE:      "69381",
	Name:       "LYON - Lyon Centre",
	DistanceKm: 2,
	Found:      true,
}

type fakeReadings struct {
	mu        sync.Mutex
	selection airquality.Selection
	selectErr error

	// indices by date, levels by pollutant code.
	indices  map[string]int
	levels   map[string]airquality.Reading
	fetchErr error

	calls []string
}

func (f *fakeReadings) SelectStation(_ context.Context, explicitCode string, _ airquality.Point) (airquality.Selection, error) {
	f.record("select:" + explicitCode)
	return f.selection, f.selectErr
}

func (f *fakeReadings) GetDailyIndex(_ context.Context, insee, date string) (int, error) {
	f.record("index:" + insee + ":" + date)
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	idx, ok := f.indices[date]
	if !ok {
		return 0, airquality.ErrNoIndex
	}
	return idx, nil
}

func (f *fakeReadings) GetPollutantLevel(_ context.Context, stationCode, date, code string) (airquality.Reading, error) {
	f.record(fmt.Sprintf("level:%s:%s:%s", stationCode, date, code))
	if f.fetchErr != nil {
		return airquality.Reading{}, f.fetchErr
	}
	r, ok := f.levels[code]
	if !ok {
		return airquality.Reading{}, airquality.ErrNoMeasurements
	}
	return r, nil
}

func (f *fakeReadings) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeReadings) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newDevices() *device.Service {
	return device.NewService(device.ServiceConfig{
		Repository: device.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
}

func newMonitor(readings *fakeReadings, devices monitor.Devices, hours int) *monitor.Monitor {
	return monitor.New(monitor.MonitorConfig{
		Config:   monitor.Config{StationCode: "FR20062", UpdateHours: hours},
		Readings: readings,
		Devices:  devices,
		Logger:   zerolog.Nop(),
	})
}

var may1 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

func TestMonitor_Start(t *testing.T) {
	readings := &fakeReadings{selection: lyon}
	devices := newDevices()
	m := newMonitor(readings, devices, 1)

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, []string{"select:FR20062"}, readings.calls)
	assert.True(t, m.Ready())

	station, err := devices.Get(context.Background(), device.StationUnit)
	require.NoError(t, err)
	assert.Equal(t, "PrevAir Station", station.Name)
	assert.Equal(t, device.KindText, station.Kind)
	assert.True(t, station.Used)
	assert.Equal(t, "LYON - Lyon Centre (FR20062/69381) at 2km", station.Value)
}

func TestMonitor_Start_SelectionFailed(t *testing.T) {
	readings := &fakeReadings{
		selection: airquality.Selection{Name: airquality.StationErrorName, DistanceKm: airquality.UnknownDistanceKm},
		selectErr: errors.New("fetch stations: connection refused"),
	}
	devices := newDevices()
	m := newMonitor(readings, devices, 1)

	require.NoError(t, m.Start(context.Background()))
	assert.False(t, m.Ready())

	station, err := devices.Get(context.Background(), device.StationUnit)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s (/) at 99999km", airquality.StationErrorName), station.Value)

	// Cycles run but fetch nothing.
	assert.True(t, m.Tick(context.Background(), may1))
	assert.Equal(t, 1, readings.callCount())
	assert.Equal(t, int64(1), m.Stats().NoStationCycles)

	all, err := devices.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1, "only the station device exists")
}

func TestMonitor_Tick_Cycle(t *testing.T) {
	readings := &fakeReadings{
		selection: lyon,
		indices: map[string]int{
			"2024-05-01": 3,
			"2024-05-02": 9,
		},
		levels: map[string]airquality.Reading{
			"24": {Level: 42, LevelMax: 55},
			"39": {Level: 0, LevelMax: 1},
		},
	}
	devices := newDevices()
	m := newMonitor(readings, devices, 1)
	require.NoError(t, m.Start(context.Background()))

	require.True(t, m.Tick(context.Background(), may1))

	assert.Contains(t, readings.calls, "index:69381:2024-05-01")
	assert.Contains(t, readings.calls, "index:69381:2024-05-02")
	assert.Contains(t, readings.calls, "level:FR20062:2024-05-01:24")
	assert.Contains(t, readings.calls, "level:FR20062:2024-05-01:01")

	ctx := context.Background()

	today, err := devices.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "3", today.Value)
	assert.Equal(t, "prevairgreen", today.Icon)

	tomorrow, err := devices.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "9", tomorrow.Value)
	assert.Equal(t, "prevairred", tomorrow.Icon)

	pm10, err := devices.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "42", pm10.Value)
	assert.Equal(t, "prevairorange", pm10.Icon)
	assert.Equal(t, "µg/m3", pm10.UnitLabel)
	assert.False(t, pm10.Used)

	pm25, err := devices.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "0", pm25.Value, "a zero level is still displayed")

	_, err = devices.Get(ctx, 3)
	assert.ErrorIs(t, err, device.ErrDeviceNotFound, "SO2 not reported, no device")

	state := m.Snapshot()
	assert.Equal(t, may1.Add(time.Hour), state.NextUpdate)
	for _, ps := range state.Pollutants {
		if ps.Pollutant.Code == "24" {
			assert.True(t, ps.Present)
			assert.Equal(t, 55, ps.LevelMax)
		}
		if ps.Pollutant.IsIndex() {
			assert.True(t, ps.Present)
			assert.Zero(t, ps.LevelMax, "daily indices carry no max")
		}
		if ps.Pollutant.Code == "01" {
			assert.False(t, ps.Present)
		}
	}
}

func TestMonitor_Tick_Gating(t *testing.T) {
	readings := &fakeReadings{selection: lyon}
	m := newMonitor(readings, newDevices(), 2)
	require.NoError(t, m.Start(context.Background()))

	assert.True(t, m.Tick(context.Background(), may1), "first heartbeat polls")
	polled := readings.callCount()

	assert.False(t, m.Tick(context.Background(), may1.Add(time.Minute)))
	assert.False(t, m.Tick(context.Background(), may1.Add(2*time.Hour-time.Second)))
	assert.Equal(t, polled, readings.callCount())

	assert.True(t, m.Tick(context.Background(), may1.Add(2*time.Hour)), "due exactly at next update")
	assert.Equal(t, int64(2), m.Stats().Cycles)
	assert.Equal(t, may1.Add(4*time.Hour), m.Snapshot().NextUpdate)
}

func TestMonitor_Tick_LevelsOverwrittenEachCycle(t *testing.T) {
	readings := &fakeReadings{
		selection: lyon,
		levels:    map[string]airquality.Reading{"24": {Level: 42, LevelMax: 55}},
	}
	m := newMonitor(readings, newDevices(), 1)
	require.NoError(t, m.Start(context.Background()))
	require.True(t, m.Tick(context.Background(), may1))

	readings.mu.Lock()
	readings.levels = nil
	readings.mu.Unlock()

	require.True(t, m.Tick(context.Background(), may1.Add(time.Hour)))
	for _, ps := range m.Snapshot().Pollutants {
		assert.False(t, ps.Present, ps.Pollutant.Name)
	}
}

func TestMonitor_Tick_FetchErrorsCounted(t *testing.T) {
	readings := &fakeReadings{selection: lyon, fetchErr: errors.New("HTTP 500")}
	m := newMonitor(readings, newDevices(), 1)
	require.NoError(t, m.Start(context.Background()))

	require.True(t, m.Tick(context.Background(), may1))

	stats := m.Stats()
	assert.Equal(t, int64(len(airquality.DefaultPollutants())), stats.FailedFetches)
	assert.Equal(t, may1, stats.LastCycleAt)
}

func TestMonitor_RemovedDeviceRecreatedNextCycle(t *testing.T) {
	readings := &fakeReadings{
		selection: lyon,
		levels:    map[string]airquality.Reading{"24": {Level: 42}},
	}
	devices := newDevices()
	m := newMonitor(readings, devices, 1)
	require.NoError(t, m.Start(context.Background()))
	require.True(t, m.Tick(context.Background(), may1))

	require.NoError(t, devices.Delete(context.Background(), 7))

	require.True(t, m.Tick(context.Background(), may1.Add(time.Hour)))
	pm10, err := devices.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "42", pm10.Value)
}

func TestMonitor_Refresh(t *testing.T) {
	readings := &fakeReadings{selection: lyon}
	m := newMonitor(readings, newDevices(), 24)
	require.NoError(t, m.Start(context.Background()))

	m.Refresh(context.Background())

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Cycles)
	assert.Equal(t, int64(1), stats.ManualRefreshes)
	assert.False(t, m.Tick(context.Background(), time.Now()), "refresh restarts the period")
}

func TestMonitor_HealthCheck(t *testing.T) {
	readings := &fakeReadings{selection: lyon}
	m := newMonitor(readings, newDevices(), 1)

	require.NoError(t, m.HealthCheck(context.Background()), "works before Start")
	assert.Equal(t, []string{"select:FR20062"}, readings.calls, "station list fetched once, no readings")
	assert.False(t, m.Snapshot().Selection.Found, "state untouched")
}

func TestMonitor_HealthCheck_Failure(t *testing.T) {
	readings := &fakeReadings{selection: lyon, selectErr: airquality.ErrStationNotFound}
	m := newMonitor(readings, newDevices(), 1)

	err := m.HealthCheck(context.Background())
	assert.ErrorIs(t, err, airquality.ErrStationNotFound)
	assert.False(t, monitor.Retryable(err))

	readings.selectErr = errors.New("fetch stations: connection refused")
	err = m.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, monitor.Retryable(err))
}

func TestMonitor_ConcurrentTicks(t *testing.T) {
	readings := &fakeReadings{selection: lyon}
	m := newMonitor(readings, newDevices(), 1)
	require.NoError(t, m.Start(context.Background()))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Tick(context.Background(), may1) {
				mu.Lock()
				ran++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ran, "a due cycle runs once")
}

func TestStationText(t *testing.T) {
	assert.Equal(t, "LYON - Lyon Centre (FR20062/69381) at 2km", monitor.StationText(lyon))
}
