package services

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"suumo-analysis/models"
	"suumo-analysis/utils"
)

// RankingReport is the summary printed at the end of a run.
type RankingReport struct {
	Target          string
	MinProperties   int
	TotalListings   int
	StationsSeen    int
	StationsRanked  int
	Fit             Line
	Top             []models.RankedStation
	CheapestStation *models.StationSummary
}

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate builds the report from the enriched listings, keeping the topN
// best bargains.
func (s *ReportService) Generate(listings []*models.EnrichedListing, target string, minProperties, topN int) *RankingReport {
	summaries := Summarize(listings)
	ranked, fit := RankSummaries(summaries, minProperties)

	r := &RankingReport{
		Target:         target,
		MinProperties:  minProperties,
		TotalListings:  len(listings),
		StationsSeen:   len(summaries),
		StationsRanked: len(ranked),
		Fit:            fit,
	}

	for i := range ranked {
		if r.CheapestStation == nil || ranked[i].MeanRent < r.CheapestStation.MeanRent {
			r.CheapestStation = &ranked[i].StationSummary
		}
	}

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	r.Top = ranked

	s.logger.Info("[ranking] %d stations summarized, %d ranked (min %d listings)",
		r.StationsSeen, r.StationsRanked, minProperties)
	return r
}

func (s *ReportService) Print(w io.Writer, r *RankingReport) {
	sep := strings.Repeat("═", 62)
	thin := strings.Repeat("─", 62)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🚃 STATION BARGAIN RANKING → %s\033[0m\n", r.Target)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings analysed      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Stations with a time   : \033[1m%d\033[0m\n", r.StationsSeen)
	fmt.Fprintf(w, "  Stations ranked (≥%-3d) : \033[1m%d\033[0m\n", r.MinProperties, r.StationsRanked)
	if r.StationsRanked > 0 {
		fmt.Fprintf(w, "  Trend                  : %.0f yen/min, %.0f yen at 0 min\n", r.Fit.Slope, r.Fit.Intercept)
	}
	fmt.Fprintln(w)

	if r.CheapestStation != nil {
		fmt.Fprintf(w, "\033[1;33m  Lowest Mean Rent\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s : \033[1;32m%.1f万円\033[0m (%d listings, %.0f min)\n",
			r.CheapestStation.StationName, r.CheapestStation.MeanRent/10000,
			r.CheapestStation.PropertyCount, r.CheapestStation.TimeMin)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top %d Bargains (predicted − mean rent)\033[0m\n", len(r.Top))
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Top) == 0 {
		fmt.Fprintf(w, "  No station has at least %d listings\n", r.MinProperties)
	} else {
		for i, st := range r.Top {
			color := "32"
			if st.BargainAmount < 0 {
				color = "31"
			}
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-14s %5.0f min  %5.1f万円  \033[1;%sm%+6.2f万円\033[0m  (%d)\n",
				i+1, truncate(st.StationName, 14), st.TimeMin, st.MeanRentMan,
				color, st.BargainMan, st.PropertyCount)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
