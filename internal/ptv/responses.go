package ptv

import "github.com/randytsao24/gigsahead/internal/models"

type routeTypesResponse struct {
	RouteTypes []struct {
		RouteTypeName string `json:"route_type_name"`
		RouteType     int    `json:"route_type"`
	} `json:"route_types"`
}

type apiRoute struct {
	RouteID     int    `json:"route_id"`
	RouteName   string `json:"route_name"`
	RouteNumber string `json:"route_number"`
	RouteType   int    `json:"route_type"`
}

func (r apiRoute) toModel() models.Route {
	return models.Route{
		ID:     r.RouteID,
		Name:   r.RouteName,
		Number: r.RouteNumber,
		Type:   models.RouteType(r.RouteType),
	}
}

type routesResponse struct {
	Routes []apiRoute `json:"routes"`
}

type routeResponse struct {
	Route *apiRoute `json:"route"`
}

type directionsResponse struct {
	Directions []struct {
		DirectionID   int    `json:"direction_id"`
		DirectionName string `json:"direction_name"`
		RouteID       int    `json:"route_id"`
	} `json:"directions"`
}

type patternResponse struct {
	Departures []struct {
		StopID       int `json:"stop_id"`
		StopSequence int `json:"stop_sequence"`
	} `json:"departures"`
}

// apiStop covers both the route-stops shape (flat coordinates) and the
// stop-details shape (stop_location.gps).
type apiStop struct {
	StopID        int     `json:"stop_id"`
	StopName      string  `json:"stop_name"`
	StopLatitude  float64 `json:"stop_latitude"`
	StopLongitude float64 `json:"stop_longitude"`
	StopSequence  int     `json:"stop_sequence"`
	StopLocation  *struct {
		GPS *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"gps"`
	} `json:"stop_location"`
}

func (s apiStop) toModel(rt models.RouteType) models.Stop {
	stop := models.Stop{
		ID:                    s.StopID,
		Name:                  s.StopName,
		Lat:                   s.StopLatitude,
		Lng:                   s.StopLongitude,
		RouteSuppliedSequence: s.StopSequence,
		RouteType:             rt,
	}
	if stop.RouteSuppliedSequence < 0 {
		stop.RouteSuppliedSequence = 0
	}
	if stop.Lat == 0 && stop.Lng == 0 && s.StopLocation != nil && s.StopLocation.GPS != nil {
		stop.Lat = s.StopLocation.GPS.Latitude
		stop.Lng = s.StopLocation.GPS.Longitude
	}
	return stop
}

type stopsResponse struct {
	Stops []apiStop `json:"stops"`
}

type stopDetailsResponse struct {
	Stop *apiStop `json:"stop"`
}

type journeyResponse struct {
	Itineraries []struct {
		DurationMinutes float64 `json:"duration_minutes"`
		DepartureTime   string  `json:"departure_time"`
		ArrivalTime     string  `json:"arrival_time"`
	} `json:"itineraries"`
}
