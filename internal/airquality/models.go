// Package airquality provides station selection and reading normalization
// for PREV'AIR air quality data.
package airquality

import (
	"errors"
)

// Normalizer errors.
var (
	ErrStationNotFound = errors.New("station not found")
	ErrNoMeasurements  = errors.New("no measurements available")
	ErrNoIndex         = errors.New("no daily index available")
)

// HeaderStationCode is the code carried by the label row at the top of the
// upstream station list.
const HeaderStationCode = "Code station"

// Pollutant codes for the overall daily index. They are not PREV'AIR
// pollutant codes: readings for them come from the daily index endpoint.
const (
	CodeIndexToday    = "IJ"
	CodeIndexTomorrow = "ID"
)

// Station represents a PREV'AIR monitoring station.
type Station struct {
	Code        string
	Name        string
	INSEE       string
	DisplayName string
	Lat         float64
	Lon         float64
}

// Label returns the human readable station label used on the station device.
func (s *Station) Label() string {
	return s.DisplayName + " - " + s.Name
}

// Measurement is one row of the daily measurement endpoint.
type Measurement struct {
	StationCode string
	Max         float64
	Value       float64
}

// DailyIndex is one row of the daily index endpoint.
type DailyIndex struct {
	INSEE string
	Index int
}

// Pollutant describes a tracked pollutant and its display thresholds.
type Pollutant struct {
	Name string
	Code string
	Unit string

	// Green is the highest level still displayed green.
	Green int

	// Red is the lowest level displayed red.
	Red int

	// Index is the device unit the pollutant is displayed on.
	Index int

	// Used marks devices shown on the dashboard by default.
	Used bool
}

// IsIndex reports whether the pollutant is one of the overall daily indices.
func (p Pollutant) IsIndex() bool {
	return p.Code == CodeIndexToday || p.Code == CodeIndexTomorrow
}

// Classify classifies a level against the pollutant thresholds.
func (p Pollutant) Classify(level int) Status {
	return Classify(level, p.Green, p.Red)
}

// DefaultPollutants returns the pollutants tracked by default, in polling order.
func DefaultPollutants() []Pollutant {
	return []Pollutant{
		{Name: "Indice Global Jour", Code: CodeIndexToday, Unit: "", Green: 4, Red: 8, Index: 1, Used: true},
		{Name: "Indice Global Demain", Code: CodeIndexTomorrow, Unit: "", Green: 4, Red: 8, Index: 2, Used: true},
		{Name: "SO2", Code: "01", Unit: "µg/m3", Green: 159, Red: 300, Index: 3},
		{Name: "NO2", Code: "03", Unit: "µg/m3", Green: 109, Red: 200, Index: 4},
		{Name: "CO", Code: "04", Unit: "mg/m3", Green: 25, Red: 50, Index: 5},
		{Name: "O3", Code: "08", Unit: "µg/m3", Green: 104, Red: 180, Index: 6},
		{Name: "PM10", Code: "24", Unit: "µg/m3", Green: 39, Red: 80, Index: 7},
		{Name: "PM25", Code: "39", Unit: "µg/m3", Green: 10, Red: 25, Index: 8},
	}
}

// Reading is a normalized daily pollutant reading.
type Reading struct {
	Level    int
	LevelMax int
}
