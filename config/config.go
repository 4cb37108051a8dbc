package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

// Config holds all application configuration
type Config struct {
	Port            string
	HTTPBindAddr    string
	Environment     string
	LoggingConfig   LoggingConfig
	StoreConfig     StoreConfig
	PostgresConfig  PostgresConfig
	Neo4jConfig     Neo4jConfig
	SQLiteConfig    SQLiteConfig
	RedisConfig     RedisConfig
	GeocoderConfig  GeocoderConfig
	SearchConfig    SearchConfig
	EstimatorConfig EstimatorConfig
	InitSchema      bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the airport store backend and bounds each read.
type StoreConfig struct {
	Backend string        // postgres, neo4j, sqlite or memory
	Timeout time.Duration // per-read deadline; an expired read is StorageUnavailable
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// DSN returns a keyword/value connection string accepted by both pgx and lib/pq.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// SQLiteConfig holds the path of the embedded airport database.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection configuration for the advisory caches.
type RedisConfig struct {
	Enabled            bool
	Host               string
	Port               string
	Password           string
	DB                 int
	KeyPrefix          string
	CandidateTTL       time.Duration
	GeocodeTTL         time.Duration
	CachePurgeSchedule string // cron expression; empty disables the purge job
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// GeocoderConfig configures the place-name fallback of the location resolver.
type GeocoderConfig struct {
	Enabled   bool
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	RetryMax  int
}

// SearchConfig holds nearest-airport query defaults.
type SearchConfig struct {
	DefaultRadiusKm float64
	DefaultLimit    int
	MaxLimit        int
}

// EstimatorConfig holds the trip heuristics. All values are approximations,
// not routed or quoted figures.
type EstimatorConfig struct {
	RouteFactor           float64
	AvgSpeedKmh           float64
	FuelEconomyLPer100Km  float64
	FuelPricePerLiter     float64
	CruiseSpeedKmh        float64
	FlightBufferHours     float64
	LayoverPenaltyHours   float64 // added when the two airports are not in the same metro
	MetroRadiusKm         float64
	FarePerKm             float64
	CostThreshold         float64
	TimeThresholdHours    float64
	AirportSearchRadiusKm float64
	Currency              string
}

// DefaultSearchConfig returns the documented query defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultRadiusKm: 2000.0,
		DefaultLimit:    3,
		MaxLimit:        50,
	}
}

// DefaultEstimatorConfig returns the documented heuristic defaults.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		RouteFactor:           1.2,
		AvgSpeedKmh:           80.0,
		FuelEconomyLPer100Km:  7.5,
		FuelPricePerLiter:     1.50,
		CruiseSpeedKmh:        800.0,
		FlightBufferHours:     1.5,
		LayoverPenaltyHours:   1.0,
		MetroRadiusKm:         50.0,
		FarePerKm:             0.12,
		CostThreshold:         50.0,
		TimeThresholdHours:    1.0,
		AirportSearchRadiusKm: 2000.0,
		Currency:              "USD",
	}
}

// Validate checks the query defaults.
func (c SearchConfig) Validate() error {
	if !positive(c.DefaultRadiusKm) {
		return fmt.Errorf("SEARCH_DEFAULT_RADIUS_KM must be positive, got %v", c.DefaultRadiusKm)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be at least 1, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("SEARCH_MAX_LIMIT (%d) must not be below SEARCH_DEFAULT_LIMIT (%d)", c.MaxLimit, c.DefaultLimit)
	}
	return nil
}

// Validate checks every heuristic. Thresholds and penalties may be zero.
func (c EstimatorConfig) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"ROUTE_FACTOR", c.RouteFactor},
		{"AVG_SPEED_KMH", c.AvgSpeedKmh},
		{"FUEL_ECONOMY_L_PER_100KM", c.FuelEconomyLPer100Km},
		{"FUEL_PRICE_PER_LITER", c.FuelPricePerLiter},
		{"CRUISE_SPEED_KMH", c.CruiseSpeedKmh},
		{"FARE_PER_KM", c.FarePerKm},
		{"AIRPORT_SEARCH_RADIUS_KM", c.AirportSearchRadiusKm},
	}
	for _, chk := range checks {
		if !positive(chk.value) {
			return fmt.Errorf("%s must be positive, got %v", chk.name, chk.value)
		}
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"FLIGHT_BUFFER_HOURS", c.FlightBufferHours},
		{"LAYOVER_PENALTY_HOURS", c.LayoverPenaltyHours},
		{"METRO_RADIUS_KM", c.MetroRadiusKm},
		{"COST_THRESHOLD", c.CostThreshold},
		{"TIME_THRESHOLD_HOURS", c.TimeThresholdHours},
	}
	for _, chk := range nonNegative {
		if math.IsNaN(chk.value) || math.IsInf(chk.value, 0) || chk.value < 0 {
			return fmt.Errorf("%s must be zero or positive, got %v", chk.name, chk.value)
		}
	}

	if _, err := currency.ParseISO(c.Currency); err != nil {
		return fmt.Errorf("CURRENCY %q is not an ISO 4217 code: %w", c.Currency, err)
	}
	return nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	initSchema, _ := strconv.ParseBool(getEnv("INIT_SCHEMA", "true"))

	loggingConfig := LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	storeConfig := StoreConfig{
		Backend: strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		Timeout: getDuration("STORE_TIMEOUT", 500*time.Millisecond),
	}
	switch storeConfig.Backend {
	case "postgres", "neo4j", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("STORE_BACKEND %q is not one of postgres, neo4j, sqlite, memory", storeConfig.Backend)
	}

	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	postgresConfig := PostgresConfig{
		Host:     getEnv("DB_HOST", "postgres"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "airports"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "airports"),
		SSLMode:  getEnv("DB_SSLMODE", "verify-full"),
		MaxConns: int32(maxConns),
	}

	neo4jConfig := Neo4jConfig{
		URI:      getEnv("NEO4J_URI", "bolt://neo4j:7687"),
		User:     getEnv("NEO4J_USER", "neo4j"),
		Password: getEnv("NEO4J_PASSWORD", ""),
		Database: getEnv("NEO4J_DATABASE", ""),
	}

	sqliteConfig := SQLiteConfig{
		Path: getEnv("SQLITE_PATH", "airports.db"),
	}

	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisConfig := RedisConfig{
		Enabled:            redisEnabled,
		Host:               getEnv("REDIS_HOST", "redis"),
		Port:               getEnv("REDIS_PORT", "6379"),
		Password:           getEnv("REDIS_PASSWORD", ""),
		DB:                 redisDB,
		KeyPrefix:          getEnv("REDIS_KEY_PREFIX", "flyordrive"),
		CandidateTTL:       getDuration("CANDIDATE_CACHE_TTL", time.Hour),
		GeocodeTTL:         getDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
		CachePurgeSchedule: getEnv("CACHE_PURGE_SCHEDULE", "0 3 * * *"),
	}

	geocoderEnabled, _ := strconv.ParseBool(getEnv("GEOCODER_ENABLED", "true"))
	geocoderRetryMax, _ := strconv.Atoi(getEnv("GEOCODER_RETRY_MAX", "2"))
	geocoderConfig := GeocoderConfig{
		Enabled:   geocoderEnabled,
		BaseURL:   getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		UserAgent: getEnv("GEOCODER_USER_AGENT", "fly-or-drive/1.0"),
		Timeout:   getDuration("GEOCODER_TIMEOUT", 5*time.Second),
		RetryMax:  geocoderRetryMax,
	}

	searchConfig := DefaultSearchConfig()
	searchConfig.DefaultRadiusKm = getFloat("SEARCH_DEFAULT_RADIUS_KM", searchConfig.DefaultRadiusKm)
	searchConfig.DefaultLimit = getInt("SEARCH_DEFAULT_LIMIT", searchConfig.DefaultLimit)
	searchConfig.MaxLimit = getInt("SEARCH_MAX_LIMIT", searchConfig.MaxLimit)
	if err := searchConfig.Validate(); err != nil {
		return nil, err
	}

	est := DefaultEstimatorConfig()
	est.RouteFactor = getFloat("ROUTE_FACTOR", est.RouteFactor)
	est.AvgSpeedKmh = getFloat("AVG_SPEED_KMH", est.AvgSpeedKmh)
	est.FuelEconomyLPer100Km = getFloat("FUEL_ECONOMY_L_PER_100KM", est.FuelEconomyLPer100Km)
	est.FuelPricePerLiter = getFloat("FUEL_PRICE_PER_LITER", est.FuelPricePerLiter)
	est.CruiseSpeedKmh = getFloat("CRUISE_SPEED_KMH", est.CruiseSpeedKmh)
	est.FlightBufferHours = getFloat("FLIGHT_BUFFER_HOURS", est.FlightBufferHours)
	est.LayoverPenaltyHours = getFloat("LAYOVER_PENALTY_HOURS", est.LayoverPenaltyHours)
	est.MetroRadiusKm = getFloat("METRO_RADIUS_KM", est.MetroRadiusKm)
	est.FarePerKm = getFloat("FARE_PER_KM", est.FarePerKm)
	est.CostThreshold = getFloat("COST_THRESHOLD", est.CostThreshold)
	est.TimeThresholdHours = getFloat("TIME_THRESHOLD_HOURS", est.TimeThresholdHours)
	est.AirportSearchRadiusKm = getFloat("AIRPORT_SEARCH_RADIUS_KM", est.AirportSearchRadiusKm)
	est.Currency = strings.ToUpper(getEnv("CURRENCY", est.Currency))
	if err := est.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		HTTPBindAddr:    getEnv("HTTP_BIND_ADDR", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LoggingConfig:   loggingConfig,
		StoreConfig:     storeConfig,
		PostgresConfig:  postgresConfig,
		Neo4jConfig:     neo4jConfig,
		SQLiteConfig:    sqliteConfig,
		RedisConfig:     redisConfig,
		GeocoderConfig:  geocoderConfig,
		SearchConfig:    searchConfig,
		EstimatorConfig: est,
		InitSchema:      initSchema,
	}, nil
}

// LoadTestConfig loads test configuration
func LoadTestConfig() *Config {
	return &Config{
		PostgresConfig: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "airports"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME_TEST", "airports_test"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: 4,
		},
		RedisConfig: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			KeyPrefix:    "flyordrive_test",
			CandidateTTL: time.Minute,
			GeocodeTTL:   time.Minute,
		},
		Neo4jConfig: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
		},
		StoreConfig:     StoreConfig{Backend: "memory", Timeout: 500 * time.Millisecond},
		SQLiteConfig:    SQLiteConfig{Path: ":memory:"},
		SearchConfig:    DefaultSearchConfig(),
		EstimatorConfig: DefaultEstimatorConfig(),
		Environment:     "test",
	}
}

// TestConfig returns a default test configuration
func TestConfig() *Config {
	cfg := LoadTestConfig()
	cfg.GeocoderConfig.Enabled = false
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if len(strings.TrimSpace(value)) == 0 {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
