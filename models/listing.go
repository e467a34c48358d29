package models

import "time"

// AccessSlots is the fixed number of nearest-station entries per listing.
const AccessSlots = 3

// AgeStorySlots is the fixed number of age/stories cells per listing.
const AgeStorySlots = 2

// RawListing holds one room offer exactly as scraped from a listing page.
// It is written to CSV before any normalization.
type RawListing struct {
	Category     string
	BuildingName string
	Address      string
	Access       [AccessSlots]string
	AgeRaw       string
	StoriesRaw   string
	FloorRaw     string
	RentRaw      string
	AdminFeeRaw  string
	DepositRaw   string
	GratuityRaw  string
	LayoutRaw    string
	AreaRaw      string
	URL          string
	AcquiredAt   time.Time
}

// Access is one normalized nearest-station entry. Line and Station are empty
// when absent; WalkMin is nil when the raw text carries no walking time.
type Access struct {
	Line    string
	Station string
	WalkMin *float64
}

// Listing is the normalized, typed record derived from a RawListing.
type Listing struct {
	Category     string
	BuildingName string
	Address      string
	Access       [AccessSlots]Access
	Age          float64
	Stories      *float64
	Floor        *float64
	Rent         float64
	AdminFee     float64
	Deposit      float64
	Gratuity     float64
	Layout       string
	Area         float64
	URL          string
	AcquiredAt   time.Time
}

// TotalRent is rent plus the monthly administration fee.
func (l *Listing) TotalRent() float64 {
	return l.Rent + l.AdminFee
}

// Transit is the per-slot enrichment looked up from the station store.
type Transit struct {
	TimeMin       *float64
	TransferCount *float64
}

// EnrichedListing is a Listing joined with transit data for each access slot.
type EnrichedListing struct {
	Listing
	Transit [AccessSlots]Transit
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 {
	return &v
}
