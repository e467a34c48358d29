package models

// StationTime is one persisted transit lookup result. A nil TimeMin means the
// lookup was attempted and failed.
type StationTime struct {
	StationName   string
	TimeMin       *float64
	TransferCount *float64
}

// Resolved reports whether the lookup produced a transit time.
func (s StationTime) Resolved() bool {
	return s.TimeMin != nil
}

// StationTimeStore is the ordered, deduplicated collection of station lookups.
// The zero value is not usable; create one with NewStationTimeStore.
type StationTimeStore struct {
	records []StationTime
	index   map[string]int
}

// NewStationTimeStore builds a store from records, keeping the first
// occurrence of each station name.
func NewStationTimeStore(records ...StationTime) *StationTimeStore {
	s := &StationTimeStore{index: make(map[string]int, len(records))}
	for _, r := range records {
		s.Append(r)
	}
	return s
}

// Append adds r unless its station is already present or its name is empty.
// It returns true when r was added.
func (s *StationTimeStore) Append(r StationTime) bool {
	if r.StationName == "" {
		return false
	}
	if _, ok := s.index[r.StationName]; ok {
		return false
	}
	s.index[r.StationName] = len(s.records)
	s.records = append(s.records, r)
	return true
}

// Replace overwrites the record for r.StationName in place, or appends it
// when the station is unknown.
func (s *StationTimeStore) Replace(r StationTime) {
	if i, ok := s.index[r.StationName]; ok {
		s.records[i] = r
		return
	}
	s.Append(r)
}

// Lookup returns the record for name.
func (s *StationTimeStore) Lookup(name string) (StationTime, bool) {
	i, ok := s.index[name]
	if !ok {
		return StationTime{}, false
	}
	return s.records[i], true
}

// Len returns the number of stations in the store.
func (s *StationTimeStore) Len() int {
	return len(s.records)
}

// Records returns a copy of the records in store order.
func (s *StationTimeStore) Records() []StationTime {
	out := make([]StationTime, len(s.records))
	copy(out, s.records)
	return out
}

// Clone returns an independent copy of the store.
func (s *StationTimeStore) Clone() *StationTimeStore {
	return NewStationTimeStore(s.records...)
}

// StationSummary aggregates the listings that reference one station.
type StationSummary struct {
	StationName   string
	MeanRent      float64
	PropertyCount int
	TimeMin       float64
}

// RankedStation is a StationSummary scored against the rent/time regression.
// BargainAmount is positive when the station is cheaper than the trend.
type RankedStation struct {
	StationSummary
	PredictedRent float64
	BargainAmount float64
	BargainMan    float64
	MeanRentMan   float64
}

// Route is the free-text summary of the best journey returned by a planner.
type Route struct {
	Duration  string
	Transfers string
}
