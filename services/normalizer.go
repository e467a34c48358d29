package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"suumo-analysis/models"
	"suumo-analysis/utils"
)

// Markers used by the listing site.
const (
	manYenMarker      = "万円"
	newBuildMarker    = "新築"
	undergroundMarker = "地下"
	basementMarker    = "B"
	areaUnit          = "m2"
)

var (
	// walkRegexp captures the minutes in "歩5分"
	walkRegexp = regexp.MustCompile(`歩(\d+)分`)
	// numberRegexp captures the first decimal number
	numberRegexp = regexp.MustCompile(`[\d.]+`)
	// intRegexp captures the first run of digits
	intRegexp = regexp.MustCompile(`\d+`)
	// storiesRegexp captures N in "N階建"
	storiesRegexp = regexp.MustCompile(`(\d+)階建`)
)

// Normalizer turns RawListings into typed Listings. Every field parser is
// total: unparseable input falls back to 0 or nil, never an error.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts every raw listing, preserving order.
func (n *Normalizer) Normalize(raw []*models.RawListing) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))
	for _, r := range raw {
		result = append(result, NormalizeListing(r))
	}

	n.logger.Info("[normalizer] Normalized %d listings", len(result))
	return result
}

// NormalizeListing converts one raw record.
func NormalizeListing(r *models.RawListing) *models.Listing {
	l := &models.Listing{
		Category:     normaliseText(r.Category),
		BuildingName: normaliseText(r.BuildingName),
		Address:      normaliseText(r.Address),
		Age:          ParseAge(r.AgeRaw),
		Stories:      ParseStories(r.StoriesRaw),
		Floor:        ParseFloor(r.FloorRaw),
		Rent:         ParseYen(r.RentRaw),
		AdminFee:     ParseYen(r.AdminFeeRaw),
		Deposit:      ParseYen(r.DepositRaw),
		Gratuity:     ParseYen(r.GratuityRaw),
		Layout:       normaliseText(r.LayoutRaw),
		Area:         ParseArea(r.AreaRaw),
		URL:          strings.TrimSpace(r.URL),
		AcquiredAt:   r.AcquiredAt,
	}
	for i, a := range r.Access {
		l.Access[i] = SplitAccess(a)
	}
	return l
}

// SplitAccess parses "LINE/STATION 歩N分". The part before the first space is
// split on the first '/'; without a '/', the whole part is the station.
//
//	"ＪＲ山手線/渋谷駅 歩5分" → line ＪＲ山手線, station 渋谷駅, walk 5
//	"都営バス 歩3分"          → station 都営バス, walk 3
func SplitAccess(raw string) models.Access {
	var a models.Access
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return a
	}

	head, _, _ := strings.Cut(raw, " ")
	if line, station, ok := strings.Cut(head, "/"); ok {
		a.Line, a.Station = line, station
	} else {
		a.Station = head
	}

	if m := walkRegexp.FindStringSubmatch(raw); len(m) == 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			a.WalkMin = &v
		}
	}
	return a
}

// ParseYen converts a price cell to yen. "8.5万円" → 85000, "5000円" → 5000,
// placeholders such as "-" → 0.
func ParseYen(raw string) float64 {
	s := strings.TrimSpace(raw)
	if isPlaceholder(s) {
		return 0
	}

	match := numberRegexp.FindString(strings.ReplaceAll(s, ",", ""))
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 {
		return 0
	}

	if strings.Contains(s, manYenMarker) {
		// ×10000 then trim binary noise such as 73000.00000000001
		v = math.Round(v*10000*1e4) / 1e4
	}
	return v
}

// ParseAge returns the building age in years; new construction is 0.
func ParseAge(raw string) float64 {
	if strings.Contains(raw, newBuildMarker) {
		return 0
	}
	if v, ok := firstInt(raw); ok {
		return v
	}
	return 0
}

// ParseStories returns N from "N階建", or nil.
func ParseStories(raw string) *float64 {
	m := storiesRegexp.FindStringSubmatch(raw)
	if len(m) != 2 {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseFloor returns the floor number, negative below grade ("B1階", "地下2階").
// Placeholders normalize to 0; text without digits yields nil.
func ParseFloor(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if isPlaceholder(s) {
		s = "0"
	}

	v, ok := firstInt(s)
	if !ok {
		return nil
	}
	if v != 0 && (strings.Contains(s, undergroundMarker) || strings.Contains(s, basementMarker)) {
		v = -v
	}
	return &v
}

// ParseArea returns square meters from "25.5m2"; "-" and garbage give 0.
func ParseArea(raw string) float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, areaUnit, ""))
	if isPlaceholder(s) {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func firstInt(s string) (float64, bool) {
	match := intRegexp.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// isPlaceholder reports the empty-cell markers used by the site and by
// earlier CSV round trips.
func isPlaceholder(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "nan":
		return true
	}
	return false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
