package natsadapter

import "strings"

const (
	// SubjectComputed carries domain.RouteMileage results, one subject per route.
	SubjectComputed = "mileage.computed"
	// SubjectRequests carries domain.MileageRequest work items.
	SubjectRequests = "mileage.requests"
)

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}

// ComputedSubject is the subject results for a route are published on.
func ComputedSubject(routeID string) string { return SubjectComputed + "." + token(routeID) }

// RequestSubject is the subject recomputation requests for a route are
// published on.
func RequestSubject(routeID string) string { return SubjectRequests + "." + token(routeID) }
