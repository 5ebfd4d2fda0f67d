// Package device keeps the table of status devices the poller displays:
// one text device for the selected station and one custom sensor per
// pollutant, addressed by unit number.
package device

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceExists   = errors.New("device already exists")
)

// StationUnit is the unit of the station text device.
const StationUnit = 99

// StationDeviceName is the name of the station text device.
const StationDeviceName = "PrevAir Station"

// Kind is the device type.
type Kind string

const (
	KindText   Kind = "text"
	KindCustom Kind = "custom"
)

// Device is a status device.
type Device struct {
	Unit int
	Name string
	Kind Kind

	// UnitLabel is the measurement unit shown next to custom sensor values.
	UnitLabel string

	// Used marks devices shown on the dashboard.
	Used bool

	// Value is the displayed text.
	Value string

	// Level is the numeric value of custom sensors.
	Level int

	// Icon and Status carry the classification of the last update.
	Icon   string
	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasValue reports whether the device was updated since creation.
func (d *Device) HasValue() bool {
	return d.Value != ""
}
