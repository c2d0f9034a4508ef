package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller mistakes: degenerate polylines, empty or
	// duplicated region lists, unknown units.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvableRegion marks a requested region name that is absent from
	// the region dataset.
	ErrUnresolvableRegion = errors.New("unresolvable region")

	// ErrPrimitiveFailure marks a geometry primitive rejecting a region
	// boundary (malformed rings, non-finite coordinates).
	ErrPrimitiveFailure = errors.New("geometry primitive failure")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// Stage names the step of the segmentation that failed.
type Stage string

const (
	StageCrossingDetection Stage = "crossing-detection"
	StageSorting           Stage = "sorting"
	StageClassification    Stage = "classification"
	StageMeasurement       Stage = "measurement"
)

// RegionError carries the region and stage of a failed computation.
type RegionError struct {
	Region string
	Stage  Stage
	Err    error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region %q: %s: %v", e.Region, e.Stage, e.Err)
}

func (e *RegionError) Unwrap() error { return e.Err }

// UnresolvableRegionError reports a region name missing from the dataset.
func UnresolvableRegionError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnresolvableRegion, name)
}
