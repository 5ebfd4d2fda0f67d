package handler

import (
	"time"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/device"
	"github.com/prevairwatch/prevairwatch/internal/monitor"
)

func stationModel(sel airquality.Selection, nextUpdate time.Time) models.Station {
	return models.Station{
		Code:       sel.Code,
		INSEE:      sel.INSEE,
		Name:       sel.Name,
		DistanceKm: sel.DistanceKm,
		Found:      sel.Found,
		Text:       monitor.StationText(sel),
		NextUpdate: models.TimestampPtr(nextUpdate),
	}
}

func pollutantModels(states []monitor.PollutantState) []models.Pollutant {
	items := make([]models.Pollutant, 0, len(states))
	for _, ps := range states {
		p := models.Pollutant{
			Name:       ps.Pollutant.Name,
			Code:       ps.Pollutant.Code,
			Unit:       ps.Pollutant.Unit,
			DeviceUnit: ps.Pollutant.Index,
			Thresholds: models.Thresholds{Green: ps.Pollutant.Green, Red: ps.Pollutant.Red},
			Present:    ps.Present,
		}
		if ps.Present {
			level := ps.Level
			status := ps.Status()
			p.Level = &level
			if !ps.Pollutant.IsIndex() {
				levelMax := ps.LevelMax
				p.LevelMax = &levelMax
			}
			p.Status = string(status)
			p.Icon = status.Icon()
		}
		items = append(items, p)
	}
	return items
}

func deviceModel(d *device.Device) models.Device {
	m := models.Device{
		Unit:      d.Unit,
		Name:      d.Name,
		Kind:      string(d.Kind),
		UnitLabel: d.UnitLabel,
		Used:      d.Used,
		Value:     d.Value,
		Status:    d.Status,
		Icon:      d.Icon,
		CreatedAt: models.TimestampPtr(d.CreatedAt),
		UpdatedAt: models.TimestampPtr(d.UpdatedAt),
	}
	if d.Kind == device.KindCustom && d.HasValue() {
		level := d.Level
		m.Level = &level
	}
	return m
}
