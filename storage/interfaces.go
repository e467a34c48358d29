package storage

import "suumo-analysis/models"

// StationStore persists the station-time table between runs. Load is called
// once at the start of a run and Save once at the end.
type StationStore interface {
	Load() (*models.StationTimeStore, error)
	Save(store *models.StationTimeStore) error
	Close() error
}

// EnrichedListingWriter is the interface any final-table backend must satisfy.
type EnrichedListingWriter interface {
	Write(listings []*models.EnrichedListing) error
	Close() error
}
