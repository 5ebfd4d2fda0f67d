package models

import "github.com/prevairwatch/prevairwatch/internal/provider/resilience"

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus is the detailed status of the daemon.
type SystemStatus struct {
	Status     HealthStatus                 `json:"status"`
	Time       Timestamp                    `json:"time"`
	Station    Station                      `json:"station"`
	Polling    PollingStatus                `json:"polling"`
	Providers  []*resilience.ProviderHealth `json:"providers"`
	Subsystems []SubsystemStatus            `json:"subsystems,omitempty"`
}

// PollingStatus summarizes the polling loop.
type PollingStatus struct {
	UpdateHours         int        `json:"updateHours"`
	NextUpdate          *Timestamp `json:"nextUpdate,omitempty"`
	LastCycleAt         *Timestamp `json:"lastCycleAt,omitempty"`
	LastCycleDurationMs int64      `json:"lastCycleDurationMs"`
	Cycles              int64      `json:"cycles"`
	ManualRefreshes     int64      `json:"manualRefreshes"`
	NoStationCycles     int64      `json:"noStationCycles"`
	FailedFetches       int64      `json:"failedFetches"`
	DeviceErrors        int64      `json:"deviceErrors"`
}

// SubsystemStatus represents the status of an optional subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}
