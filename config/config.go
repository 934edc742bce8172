package config

import (
    "errors"
    "fmt"
    "os"
    "time"

    "github.com/caarlos0/env/v6"
    "github.com/joho/godotenv"
)

type Config struct {
    Server struct {
        Port string `env:"PORT" envDefault:"5250"`

        // Origins allowed by the CORS middleware
        AllowedOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
    }

    Log struct {
        Level  string `env:"LOG_LEVEL" envDefault:"info"`
        Format string `env:"LOG_FORMAT" envDefault:"json"`
    }

    // CityTablePath optionally replaces the built-in city table
    CityTablePath string `env:"CITY_TABLE_PATH"`

    Sources struct {
        RegistryURL        string `env:"REGISTRY_URL" envDefault:"https://www.nadlan.gov.il/Nadlan.REST/Main/GetAssestAndDeals"`
        OpenDataURL        string `env:"OPEN_DATA_URL" envDefault:"https://data.gov.il/api/3/action/datastore_search"`
        OpenDataResourceID string `env:"OPEN_DATA_RESOURCE_ID" envDefault:"5c78e9fa-c2e2-4771-93ff-7f400a12f7ba"`
        StatisticsURL      string `env:"STATISTICS_URL" envDefault:"https://api.cbs.gov.il/realestate/transactions"`

        // Hard ceiling for a single source call
        Timeout time.Duration `env:"SOURCE_TIMEOUT" envDefault:"30s"`

        // Maximum records requested from each source
        PageSize int `env:"SOURCE_PAGE_SIZE" envDefault:"500"`
    }

    Aggregator struct {
        // Minimum spacing between two searches hitting the sources
        MinInterval time.Duration `env:"SEARCH_MIN_INTERVAL" envDefault:"300ms"`
    }

    Synthesis struct {
        TotalBudget int `env:"SYNTH_TOTAL_BUDGET" envDefault:"100"`
        MinPerCity  int `env:"SYNTH_MIN_PER_CITY" envDefault:"3"`

        // Fixed seed for reproducible fallback data, 0 draws a seed per search
        Seed int64 `env:"SYNTH_SEED" envDefault:"0"`
    }

    Statistics struct {
        // Upper bounds of the deal amount histogram buckets
        PriceBuckets []float64 `env:"PRICE_BUCKETS" envSeparator:"," envDefault:"1000000,2000000,3000000,5000000"`
    }

    Store struct {
        // sqlite, redis or memory
        Driver     string        `env:"STORE_DRIVER" envDefault:"sqlite"`
        SQLitePath string        `env:"SQLITE_PATH" envDefault:"database/nadlan.db"`
        RedisAddr  string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
        RedisDB    int           `env:"REDIS_DB" envDefault:"0"`
        CacheTTL   time.Duration `env:"CACHE_TTL" envDefault:"15m"`
    }

    // CacheWriter configures the background writes of search results
    CacheWriter struct {
        // Pending writes held before new ones are dropped
        QueueSize int `env:"CACHE_QUEUE_SIZE" envDefault:"64"`

        // Number of concurrent writers
        WorkerCount int `env:"CACHE_WRITER_COUNT" envDefault:"2"`

        // Maximum number of retries for a failed write
        MaxRetries int `env:"CACHE_MAX_RETRIES" envDefault:"3"`

        // Delay between retries
        RetryDelay time.Duration `env:"CACHE_RETRY_DELAY" envDefault:"500ms"`
    }

    Scheduler struct {
        // How often expired cache entries are purged, 0 disables
        PurgeInterval time.Duration `env:"CACHE_PURGE_INTERVAL" envDefault:"10m"`

        // How often searches for WarmCities are refreshed, 0 disables
        WarmInterval time.Duration `env:"CACHE_WARM_INTERVAL" envDefault:"0s"`
        WarmCities   []string      `env:"CACHE_WARM_CITIES" envSeparator:","`
    }
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return nil, fmt.Errorf("failed to load .env file: %w", err)
    }

    cfg := &Config{}
    if err := env.Parse(cfg); err != nil {
        return nil, err
    }
    return cfg, nil
}
