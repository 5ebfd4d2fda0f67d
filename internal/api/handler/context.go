package handler

import (
	"context"
	"time"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/api/middleware"
	"github.com/prevairwatch/prevairwatch/internal/device"
	"github.com/prevairwatch/prevairwatch/internal/monitor"
)

// MonitorView exposes the polling state. *monitor.Monitor implements it.
type MonitorView interface {
	Snapshot() monitor.State
	Stats() monitor.Stats
	Ready() bool
}

// Refresher forces a polling cycle. *monitor.Monitor implements it.
type Refresher interface {
	MonitorView
	Refresh(ctx context.Context)
}

// StationLookup runs a station selection. *airquality.Service implements it.
type StationLookup interface {
	SelectStation(ctx context.Context, explicitCode string, home airquality.Point) (airquality.Selection, error)
}

// DeviceStore reads and removes devices. *device.Service implements it.
type DeviceStore interface {
	List(ctx context.Context) ([]*device.Device, error)
	Get(ctx context.Context, unit int) (*device.Device, error)
	Delete(ctx context.Context, unit int) error
}

// GetSubject returns the admin token subject of the request.
func GetSubject(ctx context.Context) string {
	return middleware.GetSubject(ctx)
}

// clock is overridden in tests.
var clock = time.Now
