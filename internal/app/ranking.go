/**
 * @description
 * Client-facing selection and ranking over a feed snapshot: free-text filter
 * plus newest/oldest/distance ordering. The computation is pure and
 * restartable; every call re-derives the result from the snapshot it is given.
 */

package app

import (
	"math"
	"sort"
	"strings"

	"github.com/foodbridge/donation-service/internal/domain"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinate pairs
// in kilometers.
func HaversineKm(a, b domain.Coordinates) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// RankDonations filters and orders a feed snapshot for display.
//
// Filtering is a case-insensitive substring match across food items,
// description and donor name; a donation matches if any of the three contains
// the term, and absent fields simply do not match.
//
// Sorting is stable, so snapshot order breaks ties. Distance ordering ranks
// donations without coordinates as maximally distant rather than dropping
// them; if no origin is available, distance ordering degrades to the snapshot
// order.
func RankDonations(snapshot []domain.Donation, q domain.FeedQuery) []domain.Donation {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]domain.Donation, 0, len(snapshot))
	for _, d := range snapshot {
		if term == "" || donationMatches(d, term) {
			out = append(out, d)
		}
	}

	switch q.SortBy {
	case domain.SortNewest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case domain.SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case domain.SortDistance:
		if q.Origin == nil {
			break
		}
		origin := *q.Origin
		sort.SliceStable(out, func(i, j int) bool {
			return distanceFrom(origin, out[i]) < distanceFrom(origin, out[j])
		})
	}
	return out
}

func donationMatches(d domain.Donation, lowerTerm string) bool {
	return fieldContains(d.FoodItems, lowerTerm) ||
		fieldContains(d.Description, lowerTerm) ||
		fieldContains(d.DonorName, lowerTerm)
}

func fieldContains(field *string, lowerTerm string) bool {
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), lowerTerm)
}

// distanceFrom treats a donation without pickup coordinates as maximally
// distant so that distance ordering stays total and deterministic.
func distanceFrom(origin domain.Coordinates, d domain.Donation) float64 {
	if d.Location == nil {
		return math.Inf(1)
	}
	return HaversineKm(origin, *d.Location)
}
