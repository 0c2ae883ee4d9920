/**
 * @description
 * Map and route view assembly. Given up to three optional coordinate pairs
 * (volunteer, pickup, destination) this builds the marker set, and either
 * requests a turn-by-turn route from the external routing service or falls
 * back to a straight-line haversine estimate.
 */

package app

import (
	"context"
	"log"

	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/pkg/routingclient"
)

// Marker roles in the route view.
const (
	MarkerVolunteer   = "volunteer"
	MarkerPickup      = "pickup"
	MarkerDestination = "destination"
)

// RoutePlanner requests a route through ordered waypoints. Implemented by
// pkg/routingclient.
type RoutePlanner interface {
	GetRoute(ctx context.Context, waypoints []routingclient.Waypoint) (*routingclient.Route, error)
}

// RouteRequest carries the optional coordinate pairs for one route view. A
// nil pair means the point is absent or was structurally invalid and already
// dropped by the API layer.
type RouteRequest struct {
	Volunteer   *domain.Coordinates
	Pickup      *domain.Coordinates
	Destination *domain.Coordinates
	ShowRoute   bool
}

// RouteMarker is one renderable map marker.
type RouteMarker struct {
	Role     string             `json:"role"`
	Location domain.Coordinates `json:"location"`
}

// RouteLeg is the drawn route returned by the routing service.
type RouteLeg struct {
	Geometry        string  `json:"geometry"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// RouteView is the assembled response for the map view.
type RouteView struct {
	Markers        []RouteMarker `json:"markers"`
	Route          *RouteLeg     `json:"route,omitempty"`
	StraightLineKm *float64      `json:"straight_line_km,omitempty"`
}

// RouteService orchestrates route view assembly.
type RouteService struct {
	planner RoutePlanner
}

// NewRouteService creates a route service. planner may be nil, in which case
// route requests always degrade to the straight-line estimate.
func NewRouteService(planner RoutePlanner) *RouteService {
	return &RouteService{planner: planner}
}

// BuildView renders markers for the present coordinate pairs and, when
// requested and possible, a routed leg through them in volunteer -> pickup ->
// destination order (absent points skipped). Routing failures degrade to a
// view without a route; they are logged, not surfaced.
func (s *RouteService) BuildView(ctx context.Context, req RouteRequest) *RouteView {
	view := &RouteView{Markers: make([]RouteMarker, 0, 3)}

	ordered := []struct {
		role string
		loc  *domain.Coordinates
	}{
		{MarkerVolunteer, req.Volunteer},
		{MarkerPickup, req.Pickup},
		{MarkerDestination, req.Destination},
	}

	points := make([]domain.Coordinates, 0, 3)
	for _, entry := range ordered {
		if entry.loc == nil {
			continue
		}
		view.Markers = append(view.Markers, RouteMarker{Role: entry.role, Location: *entry.loc})
		points = append(points, *entry.loc)
	}

	if req.ShowRoute && len(points) >= 2 && s.planner != nil {
		waypoints := make([]routingclient.Waypoint, 0, len(points))
		for _, p := range points {
			waypoints = append(waypoints, routingclient.Waypoint{Lat: p.Lat, Lng: p.Lng})
		}
		route, err := s.planner.GetRoute(ctx, waypoints)
		if err != nil {
			log.Printf("level=warn component=route msg=\"routing service failed; returning view without route\" err=%v", err)
			return view
		}
		view.Route = &RouteLeg{
			Geometry:        route.Geometry,
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: route.DurationSeconds,
		}
		return view
	}

	if len(points) >= 2 {
		km := HaversineKm(points[0], points[1])
		view.StraightLineKm = &km
	}
	return view
}
