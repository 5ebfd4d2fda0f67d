package monitor

import (
	"time"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
)

// PollutantState is the last reading of a tracked pollutant.
type PollutantState struct {
	Pollutant airquality.Pollutant
	Level     int
	LevelMax  int

	// Present is false when the last cycle returned no reading.
	Present bool
}

// Status classifies the current level.
func (p PollutantState) Status() airquality.Status {
	return p.Pollutant.Classify(p.Level)
}

// State is the polling state carried from one heartbeat to the next.
type State struct {
	Selection  airquality.Selection
	Pollutants []PollutantState
	NextUpdate time.Time
}

// NewState returns the initial state: no station, no readings and a first
// cycle due immediately.
func NewState(pollutants []airquality.Pollutant) State {
	states := make([]PollutantState, len(pollutants))
	for i, p := range pollutants {
		states[i] = PollutantState{Pollutant: p}
	}
	return State{
		Selection: airquality.Selection{
			Name:       airquality.StationErrorName,
			DistanceKm: airquality.UnknownDistanceKm,
		},
		Pollutants: states,
	}
}

// Due reports whether a cycle should run at now.
func (s *State) Due(now time.Time) bool {
	return !now.Before(s.NextUpdate)
}

// clone returns a copy that shares no memory with s.
func (s *State) clone() State {
	c := *s
	c.Pollutants = append([]PollutantState(nil), s.Pollutants...)
	return c
}
