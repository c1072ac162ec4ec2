// Package history defines the generation history domain: the record kept
// for every completed text-to-image job and the repository persisting it.
package history

import (
	"fmt"
	"time"
)

// Generation is one completed (or attempted) text-to-image job. ID is the
// database row id, zero until first saved; GUID is the stable external
// identifier used for lookups.
type Generation struct {
	ID             int64
	GUID           string
	Model          string
	PositivePrompt string
	NegativePrompt string
	Seed           int64
	Steps          int
	CfgScale       float64
	SamplerName    string
	Scheduler      string
	Width          int
	Height         int
	BatchSize      int
	HiresFix       bool
	ImagePaths     []string
	DurationMS     int64
	CreatedAt      time.Time
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	// Model restricts results to generations with this checkpoint model.
	Model string
	// Limit caps the number of rows returned. Zero applies DefaultListLimit.
	Limit int
}

// DefaultListLimit is applied when ListFilter.Limit is zero.
const DefaultListLimit = 50

// Repository persists generations. Implementations live in
// internal/infrastructure/sqlite.
type Repository interface {
	// Save inserts the generation when ID is zero (setting ID on success)
	// and updates the existing row otherwise.
	Save(gen *Generation) error
	// FindByGUID returns the generation with the given GUID.
	// Returns NotFoundError if no matching generation exists.
	FindByGUID(guid string) (*Generation, error)
	// List returns generations matching filter, newest first.
	List(filter ListFilter) ([]*Generation, error)
	// Delete removes the generation with the given GUID from listings.
	// Returns NotFoundError if no matching generation exists.
	Delete(guid string) error
}

// NotFoundError indicates no generation matched the requested GUID.
type NotFoundError struct {
	GUID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("generation %q not found", e.GUID)
}
