package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"suumo-analysis/charts"
	"suumo-analysis/config"
	"suumo-analysis/models"
	"suumo-analysis/scraper"
	"suumo-analysis/scraper/suumo"
	"suumo-analysis/scraper/yahoo"
	"suumo-analysis/services"
	"suumo-analysis/storage"
	"suumo-analysis/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetDebug(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	logger.Info("=== SUUMO rent analysis starting: task %s ===", cfg.TaskName)
	logger.Info("Config — pages: %d..%d | target: %s | min listings: %d | station store: %s",
		cfg.StartPage, cfg.EndPage, cfg.TargetStation, cfg.MinProperties, cfg.StationStore)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("Run aborted: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	rawListings, err := loadRaw(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if len(rawListings) == 0 {
		return fmt.Errorf("no listings were scraped")
	}

	listings := services.NewNormalizer(logger).Normalize(rawListings)

	stationStore, err := openStationStore(cfg)
	if err != nil {
		return err
	}
	defer stationStore.Close()

	known, err := stationStore.Load()
	if err != nil {
		return fmt.Errorf("load station store: %w", err)
	}

	planner := yahoo.New(scraper.NewHTTPFetcher(cfg.RequestTimeout), "")
	cache := services.NewTransitCache(planner, logger, cfg.StationDelay, cfg.StationRetryFailed)
	resolved, err := cache.Resolve(ctx, services.UniqueStations(listings), known, cfg.TargetStation)
	if err != nil {
		return err
	}
	if err := stationStore.Save(resolved); err != nil {
		return fmt.Errorf("save station store: %w", err)
	}

	enriched := services.Enrich(listings, resolved)
	if err := writeEnriched(cfg, logger, enriched); err != nil {
		return err
	}

	reportSvc := services.NewReportService(logger)
	report := reportSvc.Generate(enriched, cfg.TargetStation, cfg.MinProperties, cfg.ReportTopN)
	reportSvc.Print(os.Stdout, report)

	if cfg.ChartOutputDir != "" {
		renderCharts(cfg, logger, enriched)
	}

	fmt.Printf("  Done. Raw → %s | Stations → %d cached | Final → %s\n\n",
		cfg.RawPath(), resolved.Len(), cfg.FinalPath())
	return nil
}

// loadRaw scrapes the configured pages, or rereads the last raw table when
// USE_EXISTING_RAW is set.
func loadRaw(ctx context.Context, cfg *config.Config, logger *utils.Logger) ([]*models.RawListing, error) {
	if cfg.UseExistingRaw {
		raw, err := storage.ReadRawListings(cfg.RawPath())
		if err != nil {
			return nil, fmt.Errorf("read raw listings: %w", err)
		}
		logger.Info("Loaded %d raw listings from %s", len(raw), cfg.RawPath())
		return raw, nil
	}

	var fetcher scraper.DocumentFetcher
	if cfg.Fetcher == "chrome" {
		chrome := scraper.NewChromeFetcher(cfg.ChromeBin, cfg.RequestTimeout)
		defer chrome.Close()
		fetcher = chrome
	} else {
		fetcher = scraper.NewHTTPFetcher(cfg.RequestTimeout)
	}

	raw, err := suumo.New(fetcher, cfg, logger).Scrape(ctx, cfg.ListingURLTemplate, cfg.StartPage, cfg.EndPage)
	if err != nil {
		return nil, err
	}

	if err := storage.WriteRawListings(cfg.RawPath(), raw); err != nil {
		return nil, fmt.Errorf("write raw listings: %w", err)
	}
	logger.Info("Raw listings saved to %s", cfg.RawPath())
	return raw, nil
}

func openStationStore(cfg *config.Config) (storage.StationStore, error) {
	if cfg.StationStore == "sqlite" {
		s, err := storage.NewSQLiteStationStore(cfg.StationDBPath)
		if err != nil {
			return nil, fmt.Errorf("open station store: %w", err)
		}
		return s, nil
	}
	return storage.NewCSVStationStore(cfg.StationPath()), nil
}

// writeEnriched saves the final table and, when enabled, mirrors it into
// PostgreSQL. A mirror failure is logged but does not fail the run.
func writeEnriched(cfg *config.Config, logger *utils.Logger, enriched []*models.EnrichedListing) error {
	csvWriter := storage.NewCSVListingWriter(cfg.FinalPath(), storage.FinalColumns)
	if err := csvWriter.Write(enriched); err != nil {
		return fmt.Errorf("write final table: %w", err)
	}
	logger.Info("Enriched listings saved to %s", cfg.FinalPath())

	if !cfg.PostgresEnabled {
		return nil
	}

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return nil
	}
	defer pgWriter.Close()

	var writer storage.EnrichedListingWriter = pgWriter
	if err := writer.Write(enriched); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
		return nil
	}
	if n, err := pgWriter.Count(); err == nil {
		logger.Info("PostgreSQL table rental_listings now holds %d rows", n)
	}
	return nil
}

func renderCharts(cfg *config.Config, logger *utils.Logger, enriched []*models.EnrichedListing) {
	summaries := services.Summarize(enriched)
	ranked, _ := services.RankSummaries(summaries, cfg.MinProperties)

	scatterCfg := charts.DefaultChartConfig()
	scatterCfg.Title = cfg.TargetStation + "駅までの移動時間 vs 駅ごとの平均家賃"
	scatterPath := filepath.Join(cfg.ChartOutputDir, cfg.TaskName+"_rent_vs_time.html")
	if err := charts.RenderRentVsTime(summaries, cfg.MinProperties, scatterCfg, scatterPath); err != nil {
		logger.Warn("[charts] %v", err)
	} else {
		logger.Info("[charts] Wrote %s", scatterPath)
	}

	barCfg := charts.DefaultChartConfig()
	barCfg.Title = "割安駅ランキング"
	barCfg.Subtitle = fmt.Sprintf("回帰予測家賃 − 平均家賃（物件数 %d 以上）", cfg.MinProperties)
	barPath := filepath.Join(cfg.ChartOutputDir, cfg.TaskName+"_ranking.html")
	if err := charts.RenderBargainRanking(ranked, cfg.ReportTopN, barCfg, barPath); err != nil {
		logger.Warn("[charts] %v", err)
	} else {
		logger.Info("[charts] Wrote %s", barPath)
	}
}
