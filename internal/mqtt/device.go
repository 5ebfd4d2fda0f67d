package mqtt

import (
	"strings"
	"time"

	"github.com/prevairwatch/prevairwatch/internal/device"
)

// DeviceInfo holds the Home Assistant device registry fields shared by
// every entity of this instance, so HA groups them under one device page.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// SensorConfig is the JSON payload of an HA MQTT sensor discovery message.
type SensorConfig struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	StateTopic          string     `json:"state_topic"`
	AvailabilityTopic   string     `json:"availability_topic"`
	JsonAttributesTopic string     `json:"json_attributes_topic,omitempty"`
	Device              DeviceInfo `json:"device"`
	Icon                string     `json:"icon,omitempty"`
	UnitOfMeasurement   string     `json:"unit_of_measurement,omitempty"`
	StateClass          string     `json:"state_class,omitempty"`
	EnabledByDefault    bool       `json:"enabled_by_default"`
}

// Attributes is the JSON attributes document published with each state.
type Attributes struct {
	Unit      int       `json:"unit"`
	Status    string    `json:"status,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	UnitLabel string    `json:"unit_label,omitempty"`
	Level     *int      `json:"level,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDeviceInfo creates a DeviceInfo from the persistent instance ID and
// the human-readable device name.
func NewDeviceInfo(instanceID, deviceName, version string) DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{instanceID},
		Name:         deviceName,
		Manufacturer: "prevairwatch",
		Model:        "PREV'AIR air quality",
		SWVersion:    version,
	}
}

// EntityID returns the topic segment of a device, derived from its name.
func EntityID(d *device.Device) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(d.Name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func attributesFor(d *device.Device) Attributes {
	a := Attributes{
		Unit:      d.Unit,
		Status:    d.Status,
		Icon:      d.Icon,
		UnitLabel: d.UnitLabel,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Kind == device.KindCustom && d.HasValue() {
		level := d.Level
		a.Level = &level
	}
	return a
}

func iconFor(d *device.Device) string {
	if d.Kind == device.KindText {
		return "mdi:map-marker-radius"
	}
	return "mdi:air-filter"
}
