package models

// Device is a host device mirrored by the daemon.
type Device struct {
	Unit      int        `json:"unit"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	UnitLabel string     `json:"unitLabel,omitempty"`
	Used      bool       `json:"used"`
	Value     string     `json:"value,omitempty"`
	Level     *int       `json:"level,omitempty"`
	Status    string     `json:"status,omitempty"`
	Icon      string     `json:"icon,omitempty"`
	CreatedAt *Timestamp `json:"createdAt,omitempty"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// DeviceList is the response of GET /v1/devices.
type DeviceList struct {
	Items []Device          `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
