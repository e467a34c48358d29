package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultListingURL is the SUUMO Tokyo rental search within 90 minutes of
// Tokyo station, 30 results per page. "{}" is replaced by the page number.
const DefaultListingURL = "https://suumo.jp/jj/chintai/ichiran/FR301FC001/?ar=030&ta=13&bs=040&ekInput=25620&tj=90&nk=-1&ct=9999999&cb=0.0&et=9999999&mt=9999999&mb=0&cn=9999999&shkr1=03&shkr2=03&shkr3=03&shkr4=03&fw2=&pc=30&page={}"

// MinStationDelay is the lower bound on spacing between journey-planner queries.
const MinStationDelay = time.Second

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ListingURLTemplate string
	TaskName           string
	StartPage          int
	EndPage            int
	DataDir            string

	TargetStation      string
	MinProperties      int
	StationRetryFailed bool
	StationStore       string
	StationDBPath      string

	MaxRetries     int
	RetryBaseDelay time.Duration
	PageDelay      time.Duration
	StationDelay   time.Duration
	RequestTimeout time.Duration

	Fetcher   string
	ChromeBin string

	UseExistingRaw bool

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ChartOutputDir string
	ReportTopN     int

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		ListingURLTemplate: getEnv("LISTING_URL_TEMPLATE", DefaultListingURL),
		TaskName:           getEnv("TASK_NAME", "tokyo_all"),
		StartPage:          getEnvInt("START_PAGE", 1),
		EndPage:            getEnvInt("END_PAGE", 10),
		DataDir:            dataDir,

		TargetStation:      getEnv("TARGET_STATION", "東京"),
		MinProperties:      getEnvInt("MIN_PROPERTIES", 10),
		StationRetryFailed: getEnvBool("STATION_RETRY_FAILED", false),
		StationStore:       strings.ToLower(getEnv("STATION_STORE", "csv")),
		StationDBPath:      getEnv("STATION_DB_PATH", filepath.Join(dataDir, "stations.db")),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay: getEnvMillis("RETRY_BASE_DELAY_MS", 10000),
		PageDelay:      getEnvMillis("PAGE_DELAY_MS", 1000),
		StationDelay:   getEnvMillis("STATION_DELAY_MS", 1000),
		RequestTimeout: getEnvMillis("REQUEST_TIMEOUT_MS", 30000),

		Fetcher:   strings.ToLower(getEnv("FETCHER", "http")),
		ChromeBin: getEnv("CHROME_BIN", ""),

		UseExistingRaw: getEnvBool("USE_EXISTING_RAW", false),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ChartOutputDir: os.Getenv("CHART_OUTPUT_DIR"),
		ReportTopN:     getEnvInt("REPORT_TOP_N", 20),

		Debug: getEnvBool("LOG_DEBUG", false),
	}
	if _, set := os.LookupEnv("CHART_OUTPUT_DIR"); !set {
		cfg.ChartOutputDir = "./output"
	}
	if cfg.StationDelay < MinStationDelay {
		cfg.StationDelay = MinStationDelay
	}
	return cfg
}

// Validate reports configuration that would make the run meaningless.
func (c *Config) Validate() error {
	if !strings.Contains(c.ListingURLTemplate, "{}") {
		return fmt.Errorf("config: LISTING_URL_TEMPLATE must contain a {} page placeholder")
	}
	if c.StartPage < 1 || c.EndPage < c.StartPage {
		return fmt.Errorf("config: invalid page range %d..%d", c.StartPage, c.EndPage)
	}
	switch c.StationStore {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("config: unknown STATION_STORE %q", c.StationStore)
	}
	switch c.Fetcher {
	case "http", "chrome":
	default:
		return fmt.Errorf("config: unknown FETCHER %q", c.Fetcher)
	}
	return nil
}

// RawPath is the raw listing table for this task.
func (c *Config) RawPath() string {
	return filepath.Join(c.DataDir, c.TaskName+"_suumo.csv")
}

// StationPath is the station-time table for this task.
func (c *Config) StationPath() string {
	return filepath.Join(c.DataDir, c.TaskName+"_station.csv")
}

// FinalPath is the enriched listing table for this task.
func (c *Config) FinalPath() string {
	return filepath.Join(c.DataDir, c.TaskName+".csv")
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}
