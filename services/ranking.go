package services

import (
	"math"
	"sort"

	"suumo-analysis/models"
	"suumo-analysis/utils"
)

// UniqueStations returns every distinct non-empty station referenced by any
// access slot, in row-major first-appearance order.
func UniqueStations(listings []*models.Listing) []string {
	set := utils.NewStringSet()
	for _, l := range listings {
		for _, a := range l.Access {
			if a.Station != "" {
				set.Add(a.Station)
			}
		}
	}
	return set.Values()
}

// Enrich attaches the stored transit time and transfer count to every access
// slot. Stations missing from the store leave the slot's transit fields nil.
func Enrich(listings []*models.Listing, store *models.StationTimeStore) []*models.EnrichedListing {
	out := make([]*models.EnrichedListing, 0, len(listings))
	for _, l := range listings {
		e := &models.EnrichedListing{Listing: *l}
		for i, a := range l.Access {
			if a.Station == "" {
				continue
			}
			if rec, ok := store.Lookup(a.Station); ok {
				e.Transit[i] = models.Transit{TimeMin: rec.TimeMin, TransferCount: rec.TransferCount}
			}
		}
		out = append(out, e)
	}
	return out
}

type stationAgg struct {
	rentSum   float64
	count     int
	timeSum   float64
	timeCount int
}

// Summarize groups listings by every station they reference. Each slot that
// names a station contributes the listing's total rent to that station, and
// each slot with a known time contributes that time. Stations without any
// known time are dropped. The result is ordered by station name.
func Summarize(listings []*models.EnrichedListing) []models.StationSummary {
	aggs := make(map[string]*stationAgg)
	get := func(name string) *stationAgg {
		a, ok := aggs[name]
		if !ok {
			a = &stationAgg{}
			aggs[name] = a
		}
		return a
	}

	for _, l := range listings {
		total := l.TotalRent()
		for i, a := range l.Access {
			if a.Station == "" {
				continue
			}
			agg := get(a.Station)
			agg.rentSum += total
			agg.count++
			if t := l.Transit[i].TimeMin; t != nil {
				agg.timeSum += *t
				agg.timeCount++
			}
		}
	}

	out := make([]models.StationSummary, 0, len(aggs))
	for name, a := range aggs {
		if a.timeCount == 0 {
			continue
		}
		out = append(out, models.StationSummary{
			StationName:   name,
			MeanRent:      a.rentSum / float64(a.count),
			PropertyCount: a.count,
			TimeMin:       a.timeSum / float64(a.timeCount),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StationName < out[j].StationName
	})
	return out
}

// Line is y = Slope*x + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// FitLine is an ordinary least-squares fit of ys on xs. With fewer than two
// points, or no spread in xs, the slope is 0 and the line passes through the
// mean of ys.
func FitLine(xs, ys []float64) Line {
	n := float64(len(xs))
	if len(xs) == 0 {
		return Line{}
	}

	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if sxx == 0 {
		return Line{Intercept: my}
	}

	slope := sxy / sxx
	return Line{Slope: slope, Intercept: my - slope*mx}
}

// Rank scores every station with at least minProperties listings against a
// linear fit of mean rent on transit time and orders them by bargain amount,
// highest first. No qualifying station yields an empty ranking.
func Rank(listings []*models.EnrichedListing, minProperties int) []models.RankedStation {
	ranked, _ := RankSummaries(Summarize(listings), minProperties)
	return ranked
}

// RankSummaries is Rank over precomputed summaries. It also returns the
// fitted line.
func RankSummaries(summaries []models.StationSummary, minProperties int) ([]models.RankedStation, Line) {
	eval := FilterSummaries(summaries, minProperties)
	if len(eval) == 0 {
		return []models.RankedStation{}, Line{}
	}

	xs := make([]float64, len(eval))
	ys := make([]float64, len(eval))
	for i, s := range eval {
		xs[i], ys[i] = s.TimeMin, s.MeanRent
	}
	fit := FitLine(xs, ys)

	out := make([]models.RankedStation, len(eval))
	for i, s := range eval {
		predicted := fit.At(s.TimeMin)
		bargain := predicted - s.MeanRent
		out[i] = models.RankedStation{
			StationSummary: s,
			PredictedRent:  predicted,
			BargainAmount:  bargain,
			BargainMan:     roundTo(bargain/10000, 2),
			MeanRentMan:    roundTo(s.MeanRent/10000, 1),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BargainAmount > out[j].BargainAmount
	})
	return out, fit
}

// FilterSummaries keeps stations with at least minProperties listings.
func FilterSummaries(summaries []models.StationSummary, minProperties int) []models.StationSummary {
	out := make([]models.StationSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.PropertyCount >= minProperties {
			out = append(out, s)
		}
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
