package airquality

// Status is the display classification of a pollutant level.
type Status string

const (
	StatusGreen  Status = "green"
	StatusOrange Status = "orange"
	StatusRed    Status = "red"
)

// Classify maps a level to a status: at or below green is green, at or
// above red is red, anything in between is orange.
func Classify(level, green, red int) Status {
	switch {
	case level <= green:
		return StatusGreen
	case level >= red:
		return StatusRed
	default:
		return StatusOrange
	}
}

// Icon returns the device icon key for the status.
func (s Status) Icon() string {
	return "prevair" + string(s)
}
