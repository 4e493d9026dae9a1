// Package proximity joins events against transit stop locations
package proximity

import (
	"sort"

	"github.com/randytsao24/gigsahead/internal/geo"
	"github.com/randytsao24/gigsahead/internal/models"
)

// DefaultRadiusMeters is the walking distance treated as "near a stop"
const DefaultRadiusMeters = 500

// Nearby is an event within range of a single point
type Nearby struct {
	Event          models.Event `json:"event"`
	DistanceMeters float64      `json:"distance_meters"`
}

// StopGigs groups the events near one stop
type StopGigs struct {
	Stop models.Stop `json:"stop"`
	Gigs []Nearby    `json:"nearby_gigs"`
}

// FindNear returns events whose venue lies within radiusMeters of point,
// nearest first. Events without venue coordinates are skipped.
func FindNear(events []models.Event, point geo.Point, radiusMeters float64) []Nearby {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	var results []Nearby
	for _, event := range events {
		if !event.Venue.HasLocation() {
			continue
		}

		dist := geo.Haversine(point.Lat, point.Lng, *event.Venue.Latitude, *event.Venue.Longitude)
		if dist <= radiusMeters {
			results = append(results, Nearby{Event: event, DistanceMeters: dist})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	return results
}

// FindNearMany runs FindNear for each stop and concatenates the results in
// stop order. An event near several stops yields one match per stop.
func FindNearMany(events []models.Event, stops []models.Stop, radiusMeters float64) []models.ProximityMatch {
	var matches []models.ProximityMatch
	for _, stop := range stops {
		for _, n := range FindNear(events, geo.Point{Lat: stop.Lat, Lng: stop.Lng}, radiusMeters) {
			matches = append(matches, models.ProximityMatch{
				Event:          n.Event,
				Stop:           stop,
				DistanceMeters: n.DistanceMeters,
			})
		}
	}
	return matches
}

// GroupByStop lists the nearby events per stop, skipping stops with none
func GroupByStop(events []models.Event, stops []models.Stop, radiusMeters float64) []StopGigs {
	var grouped []StopGigs
	for _, stop := range stops {
		nearby := FindNear(events, geo.Point{Lat: stop.Lat, Lng: stop.Lng}, radiusMeters)
		if len(nearby) == 0 {
			continue
		}
		grouped = append(grouped, StopGigs{Stop: stop, Gigs: nearby})
	}
	return grouped
}
