package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"driftfeed" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"driftfeed" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"driftfeed" description:"Database name"`

	// Application configuration
	SourcesDir          string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing seed source definition files"`
	Port                string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SchedulerInterval   int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"15" description:"Crawl scheduler tick interval in minutes"`
	MaxConcurrentCrawls int    `long:"max-concurrent-crawls" env:"MAX_CONCURRENT_CRAWLS" default:"5" description:"Maximum number of crawls running at once"`
	DefaultCrawlDelay   int    `long:"default-crawl-delay" env:"DEFAULT_CRAWL_DELAY" default:"1000" description:"Fallback per-request crawl delay in milliseconds"`
	SitemapRecencyDays  int    `long:"sitemap-recency-days" env:"SITEMAP_RECENCY_DAYS" default:"30" description:"Only accept sitemap entries modified within this window"`
	APIAccessKey        string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"DriftfeedBot/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		SourcesDir:          raw.SourcesDir,
		Port:                raw.Port,
		SchedulerInterval:   raw.SchedulerInterval,
		MaxConcurrentCrawls: raw.MaxConcurrentCrawls,
		DefaultCrawlDelay:   raw.DefaultCrawlDelay,
		SitemapRecencyDays:  raw.SitemapRecencyDays,
		APIAccessKey:        raw.APIAccessKey,
		UserAgent:           raw.UserAgent,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}
