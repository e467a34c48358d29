package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"suumo-analysis/models"
	"suumo-analysis/utils"
)

// MinQueryInterval is the shortest allowed gap between planner queries.
const MinQueryInterval = time.Second

const noTransferMarker = "なし"

var (
	// hourMinRegexp captures "1時間5分"
	hourMinRegexp = regexp.MustCompile(`(\d+)時間(\d+)分`)
	// hourRegexp captures "1時間"
	hourRegexp = regexp.MustCompile(`(\d+)時間`)
	// minRegexp captures "45分"
	minRegexp = regexp.MustCompile(`(\d+)分`)
	// transferRegexp captures "2回"
	transferRegexp = regexp.MustCompile(`(\d+)回`)
)

// JourneyPlanner returns the best route description between two stations.
type JourneyPlanner interface {
	Route(ctx context.Context, from, to string) (models.Route, error)
}

// TransitCache resolves stations to transit times, querying the planner only
// for stations the store does not already hold.
type TransitCache struct {
	planner     JourneyPlanner
	logger      *utils.Logger
	interval    time.Duration
	retryFailed bool
}

// NewTransitCache creates a cache. interval is raised to MinQueryInterval.
// With retryFailed set, stored records without a time are queried again;
// otherwise every stored station is final.
func NewTransitCache(planner JourneyPlanner, logger *utils.Logger, interval time.Duration, retryFailed bool) *TransitCache {
	return &TransitCache{
		planner:     planner,
		logger:      logger,
		interval:    max(interval, MinQueryInterval),
		retryFailed: retryFailed,
	}
}

// Resolve returns a new store holding every record of store plus one record
// per station that was unknown. The input store is not modified. Planner
// failures produce records with nil fields; only cancellation of ctx is
// returned as an error.
func (c *TransitCache) Resolve(ctx context.Context, stations []string, store *models.StationTimeStore, target string) (*models.StationTimeStore, error) {
	out := store.Clone()
	unknown := c.unknown(stations, store)

	c.logger.Info("[transit] %d stations requested, %d cached, %d to query",
		len(stations), len(stations)-len(unknown), len(unknown))

	throttle := utils.NewThrottle(c.interval)
	for i, name := range unknown {
		if err := throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("transit: interrupted before %q: %w", name, err)
		}

		rec := c.lookup(ctx, name, target)
		out.Replace(rec)

		if (i+1)%10 == 0 || !rec.Resolved() {
			c.progress(i+1, len(unknown), rec, target)
		}
	}

	c.logger.Info("[transit] Store now holds %d stations", out.Len())
	return out, nil
}

// unknown returns the distinct stations that need a query, in first-seen order.
func (c *TransitCache) unknown(stations []string, store *models.StationTimeStore) []string {
	seen := utils.NewStringSet()
	for _, name := range stations {
		if name == "" {
			continue
		}
		if rec, ok := store.Lookup(name); ok && (rec.Resolved() || !c.retryFailed) {
			continue
		}
		seen.Add(name)
	}
	return seen.Values()
}

func (c *TransitCache) lookup(ctx context.Context, name, target string) models.StationTime {
	rec := models.StationTime{StationName: name}

	route, err := c.planner.Route(ctx, StripLine(name), target)
	if err != nil {
		c.logger.Warn("[transit] Lookup %s -> %s failed: %v", name, target, err)
		return rec
	}

	rec.TimeMin = ParseTransitMinutes(route.Duration)
	rec.TransferCount = ParseTransferCount(route.Transfers)
	return rec
}

func (c *TransitCache) progress(done, total int, rec models.StationTime, target string) {
	if !rec.Resolved() {
		c.logger.Warn("[transit] [%d/%d] %s -> %s: lookup failed", done, total, rec.StationName, target)
		return
	}
	transfers := "?"
	if rec.TransferCount != nil {
		transfers = strconv.FormatFloat(*rec.TransferCount, 'f', -1, 64)
	}
	c.logger.Info("[transit] [%d/%d] %s -> %s: %.0f min, %s transfers",
		done, total, rec.StationName, target, *rec.TimeMin, transfers)
}

// StripLine drops a "LINE/" prefix from a station name.
func StripLine(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ParseTransitMinutes reads "1時間5分", "1時間" or "45分" as minutes.
func ParseTransitMinutes(text string) *float64 {
	if m := hourMinRegexp.FindStringSubmatch(text); len(m) == 3 {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return models.Float(float64(h*60 + mins))
	}
	if m := minRegexp.FindStringSubmatch(text); len(m) == 2 {
		mins, _ := strconv.Atoi(m[1])
		return models.Float(float64(mins))
	}
	if m := hourRegexp.FindStringSubmatch(text); len(m) == 2 {
		h, _ := strconv.Atoi(m[1])
		return models.Float(float64(h * 60))
	}
	return nil
}

// ParseTransferCount reads "2回" as 2 and "なし" as 0.
func ParseTransferCount(text string) *float64 {
	if m := transferRegexp.FindStringSubmatch(text); len(m) == 2 {
		n, _ := strconv.Atoi(m[1])
		return models.Float(float64(n))
	}
	if strings.Contains(text, noTransferMarker) {
		return models.Float(0)
	}
	return nil
}
