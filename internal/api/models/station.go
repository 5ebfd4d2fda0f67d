package models

// Station is the selected (or looked-up) station.
type Station struct {
	Code       string     `json:"code"`
	INSEE      string     `json:"insee"`
	Name       string     `json:"name"`
	DistanceKm int        `json:"distanceKm"`
	Found      bool       `json:"found"`
	Text       string     `json:"text"`
	NextUpdate *Timestamp `json:"nextUpdate,omitempty"`
}

// Thresholds are the classification bounds of a pollutant.
type Thresholds struct {
	Green int `json:"green"`
	Red   int `json:"red"`
}

// Pollutant is the last reading of a tracked pollutant. Level, LevelMax,
// Status and Icon are omitted while no reading is present. The daily
// indices have no LevelMax.
type Pollutant struct {
	Name       string     `json:"name"`
	Code       string     `json:"code"`
	Unit       string     `json:"unit,omitempty"`
	DeviceUnit int        `json:"deviceUnit"`
	Thresholds Thresholds `json:"thresholds"`
	Present    bool       `json:"present"`
	Level      *int       `json:"level,omitempty"`
	LevelMax   *int       `json:"levelMax,omitempty"`
	Status     string     `json:"status,omitempty"`
	Icon       string     `json:"icon,omitempty"`
}

// PollutantList is the response of GET /v1/pollutants.
type PollutantList struct {
	Station Station     `json:"station"`
	Items   []Pollutant `json:"items"`
}

// RefreshResult is the response of POST /v1/admin/refresh.
type RefreshResult struct {
	RequestedBy string      `json:"requestedBy"`
	Station     Station     `json:"station"`
	Items       []Pollutant `json:"items"`
}
