package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends understood by the table transport factory.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageBolt     = "bolt"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Seed      SeedConfig
	Meals     MealConfig
	Plans     PlanConfig
	Artifacts ArtifactsConfig
}

// StorageConfig selects and tunes the table transport.
type StorageConfig struct {
	Backend  string
	Timeout  time.Duration
	BoltPath string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles caching of aggregation projections.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SeedConfig points at the YAML catalog provisioned on startup.
type SeedConfig struct {
	File            string
	ProvisionOnBoot bool
}

// MealConfig controls how absence events reduce meal counts.
type MealConfig struct {
	AbsenceKeyword string
}

// PlanConfig describes the weekly plan submission deadline rule.
type PlanConfig struct {
	StatusPolicy  string
	CutoffWeekday time.Weekday
	CutoffHour    int
	TermStart     *time.Time
	Weeks         int
}

// ArtifactsConfig controls storage of uploaded plan files.
type ArtifactsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedExts      []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = strings.TrimSpace(v.GetString("TIMEZONE"))
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return nil, errors.New("invalid TIMEZONE " + cfg.Timezone)
		}
	}

	cfg.Storage = StorageConfig{
		Backend:  strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		Timeout:  parseDuration(v.GetString("STORAGE_TIMEOUT"), 5*time.Second),
		BoltPath: v.GetString("BOLT_PATH"),
	}
	switch cfg.Storage.Backend {
	case StorageMemory, StoragePostgres, StorageBolt:
	default:
		return nil, errors.New("unsupported STORAGE_BACKEND " + cfg.Storage.Backend)
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Seed = SeedConfig{
		File:            v.GetString("SEED_FILE"),
		ProvisionOnBoot: v.GetBool("SEED_ON_BOOT"),
	}

	cfg.Meals = MealConfig{AbsenceKeyword: v.GetString("MEAL_ABSENCE_KEYWORD")}

	weekday, err := parseWeekday(v.GetString("PLAN_CUTOFF_WEEKDAY"))
	if err != nil {
		return nil, err
	}
	cfg.Plans = PlanConfig{
		StatusPolicy:  strings.ToLower(v.GetString("PLAN_STATUS_POLICY")),
		CutoffWeekday: weekday,
		CutoffHour:    v.GetInt("PLAN_CUTOFF_HOUR"),
		Weeks:         v.GetInt("PLAN_WEEKS"),
	}
	if raw := strings.TrimSpace(v.GetString("PLAN_TERM_START")); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errors.New("PLAN_TERM_START must be YYYY-MM-DD")
		}
		cfg.Plans.TermStart = &start
	}

	maxArtifact := v.GetInt64("ARTIFACTS_MAX_FILE_SIZE")
	if maxArtifact <= 0 {
		maxArtifact = 10 * 1024 * 1024
	}
	cfg.Artifacts = ArtifactsConfig{
		StorageDir:       v.GetString("ARTIFACTS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("ARTIFACTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("ARTIFACTS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxArtifact,
		AllowedExts:      splitAndTrim(v.GetString("ARTIFACTS_ALLOWED_EXTS")),
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load rejects unknown zones, so
// the UTC fallback only applies to an empty or hand-built Config.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "Asia/Ho_Chi_Minh")

	v.SetDefault("STORAGE_BACKEND", StorageMemory)
	v.SetDefault("STORAGE_TIMEOUT", "5s")
	v.SetDefault("BOLT_PATH", "./data/ledger.db")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "merit_ledger")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "sma-merit-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEED_FILE", "")
	v.SetDefault("SEED_ON_BOOT", true)

	v.SetDefault("MEAL_ABSENCE_KEYWORD", "Absent")

	v.SetDefault("PLAN_STATUS_POLICY", "cutoff")
	v.SetDefault("PLAN_CUTOFF_WEEKDAY", "monday")
	v.SetDefault("PLAN_CUTOFF_HOUR", 10)
	v.SetDefault("PLAN_TERM_START", "")
	v.SetDefault("PLAN_WEEKS", 20)

	v.SetDefault("ARTIFACTS_STORAGE_DIR", "./artifacts")
	v.SetDefault("ARTIFACTS_SIGNED_URL_SECRET", "dev_artifacts_secret")
	v.SetDefault("ARTIFACTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("ARTIFACTS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("ARTIFACTS_ALLOWED_EXTS", ".pdf,.docx")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	}
	return time.Monday, errors.New("invalid PLAN_CUTOFF_WEEKDAY " + raw)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
