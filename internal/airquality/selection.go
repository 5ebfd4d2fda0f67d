package airquality

import (
	"math"
)

const (
	// earthRadius is the equatorial radius used for station distances, in meters.
	earthRadius = 6378137

	// UnknownDistanceKm seeds the nearest-station search and is reported
	// when no station could be selected.
	UnknownDistanceKm = 99999

	// StationErrorName is the display name reported when selection fails.
	StationErrorName = "Station Location Error"
)

// Point represents a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Selection is the outcome of a station lookup.
type Selection struct {
	Code       string
	INSEE      string
	Name       string
	DistanceKm int
	Found      bool
}

// failedSelection returns the defaults reported when no station matches.
func failedSelection() Selection {
	return Selection{
		Name:       StationErrorName,
		DistanceKm: UnknownDistanceKm,
	}
}

// SelectStation picks the station to track. When explicitCode is set the
// station with that exact code is returned at distance 0; otherwise the
// station nearest to home wins, ties going to the earliest in list order.
func SelectStation(stations []*Station, explicitCode string, home Point) Selection {
	result := failedSelection()

	if explicitCode != "" {
		for _, s := range stations {
			if s.Code == explicitCode {
				return Selection{
					Code:       s.Code,
					INSEE:      s.INSEE,
					Name:       s.Label(),
					DistanceKm: 0,
					Found:      true,
				}
			}
		}
		return result
	}

	for _, s := range stations {
		if s.Code == HeaderStationCode {
			continue
		}
		d := DistanceKm(home.Lat, home.Lon, s.Lat, s.Lon)
		if d < result.DistanceKm {
			result = Selection{
				Code:       s.Code,
				INSEE:      s.INSEE,
				Name:       s.Label(),
				DistanceKm: d,
				Found:      true,
			}
		}
	}

	return result
}

// DistanceKm returns the haversine distance between two points rounded to
// the nearest kilometer.
func DistanceKm(lat1, lon1, lat2, lon2 float64) int {
	return int(math.Round(haversineDistance(lat1, lon1, lat2, lon2) / 1000))
}

// haversineDistance calculates the distance between two points in meters.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
