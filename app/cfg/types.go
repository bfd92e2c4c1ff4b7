package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	SourcesDir          string
	Port                string
	SchedulerInterval   int // minutes
	MaxConcurrentCrawls int
	DefaultCrawlDelay   int // milliseconds
	SitemapRecencyDays  int
	APIAccessKey        string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
