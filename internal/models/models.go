// Package models defines shared data types
package models

// RouteType is a PTV transport mode identifier
type RouteType int

const (
	RouteTypeUnknown      RouteType = -1
	RouteTypeTrain        RouteType = 0
	RouteTypeTram         RouteType = 1
	RouteTypeBus          RouteType = 2
	RouteTypeVLine        RouteType = 3
	RouteTypeNightBus     RouteType = 4
	RouteTypeAirportCoach RouteType = 5
)

// KnownRouteTypes lists every mode with a defined identifier
var KnownRouteTypes = []RouteType{
	RouteTypeTrain, RouteTypeTram, RouteTypeBus,
	RouteTypeVLine, RouteTypeNightBus, RouteTypeAirportCoach,
}

// String returns a human-readable mode name
func (rt RouteType) String() string {
	switch rt {
	case RouteTypeTrain:
		return "train"
	case RouteTypeTram:
		return "tram"
	case RouteTypeBus:
		return "bus"
	case RouteTypeVLine:
		return "vline"
	case RouteTypeNightBus:
		return "night_bus"
	case RouteTypeAirportCoach:
		return "airport_coach"
	default:
		return "unknown"
	}
}

// RouteTypeInfo is a route type as listed by the transit API
type RouteTypeInfo struct {
	Type RouteType `json:"route_type"`
	Name string    `json:"route_type_name"`
}

// Route is a named transit line of a given mode
type Route struct {
	ID     int       `json:"route_id"`
	Name   string    `json:"route_name"`
	Number string    `json:"route_number,omitempty"`
	Type   RouteType `json:"route_type"`
}

// Direction is one traversal order of a route
type Direction struct {
	ID      int    `json:"direction_id"`
	Name    string `json:"direction_name"`
	RouteID int    `json:"route_id"`
}

// Stop is a physical stop within a route+direction context.
// RouteSuppliedSequence is zero when the upstream did not supply one.
type Stop struct {
	ID                    int       `json:"stop_id"`
	Name                  string    `json:"stop_name"`
	Lat                   float64   `json:"stop_latitude"`
	Lng                   float64   `json:"stop_longitude"`
	RouteSuppliedSequence int       `json:"stop_sequence,omitempty"`
	RouteType             RouteType `json:"route_type"`
}

// SequenceSource records which evidence produced a resolved sequence
type SequenceSource string

const (
	SequenceFromRoute     SequenceSource = "route"
	SequenceFromNameHash  SequenceSource = "name_hash"
	SequenceFromDocklands SequenceSource = "docklands"
	SequenceFromStopID    SequenceSource = "stop_id"
	SequenceNone          SequenceSource = "none"
)

// OrderedStop is a Stop with the sequence assigned by the resolver
type OrderedStop struct {
	Stop
	ResolvedSequence int            `json:"resolved_sequence"`
	SequenceSource   SequenceSource `json:"sequence_source"`
}

// Venue is where an event takes place. Coordinates may be missing.
type Venue struct {
	ID        int      `json:"id,omitempty"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasLocation reports whether both coordinates are present
func (v Venue) HasLocation() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// Event is a live-music gig
type Event struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time,omitempty"`
	Venue           Venue    `json:"venue"`
	GenreTags       []string `json:"genre_tags,omitempty"`
	InformationTags []string `json:"information_tags,omitempty"`
}

// ProximityMatch pairs an event with a stop within range of its venue
type ProximityMatch struct {
	Event          Event   `json:"event"`
	Stop           Stop    `json:"stop"`
	DistanceMeters float64 `json:"distance_meters"`
}

// TravelTimeSource records which estimation tier produced a travel time
type TravelTimeSource string

const (
	TravelTimeJourney   TravelTimeSource = "journey"
	TravelTimeGeometric TravelTimeSource = "geometric"
	TravelTimeFixed     TravelTimeSource = "fixed"
)

// ReachableEvent is a proximity match annotated with travel time and reachability
type ReachableEvent struct {
	ProximityMatch
	TravelTimeMinutes float64          `json:"travel_time_minutes"`
	TravelTimeSource  TravelTimeSource `json:"travel_time_source"`
	IsReachable       bool             `json:"is_reachable"`

	// StartTimeDefaulted is set when the event had no start time and
	// reachability assumed the default start
	StartTimeDefaulted bool `json:"start_time_defaulted,omitempty"`

	// ReachabilityUnknown is set when the event's date or start time could
	// not be read; IsReachable is then false
	ReachabilityUnknown bool `json:"reachability_unknown,omitempty"`
}

// Itinerary is one journey-planner result between two stops
type Itinerary struct {
	DurationMinutes float64 `json:"duration_minutes"`
	Departure       string  `json:"departure_time,omitempty"`
	Arrival         string  `json:"arrival_time,omitempty"`
}
