package crawler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/driftfeed/driftfeed/app/database"
)

// SeedSource is a source definition from a YAML file in the sources
// directory. Seed files let a fresh deployment start crawling without any
// API calls.
type SeedSource struct {
	Name                string   `yaml:"name"`
	Type                string   `yaml:"type"`
	URL                 string   `yaml:"url"`
	CrawlFrequencyHours int      `yaml:"crawl_frequency_hours"`
	Topics              []string `yaml:"topics"`
	ExtractLinks        bool     `yaml:"extract_links"`
	Disabled            bool     `yaml:"disabled"`
}

// LoadSeedSources reads every *.yml from dir and upserts them as sources,
// keyed by URL. A missing directory is not an error.
func LoadSeedSources(dir string, sourceRepo database.SourceRepository) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return 0, fmt.Errorf("failed to find seed files: %w", err)
	}

	registered := 0
	for _, file := range files {
		seed, err := parseSeedFile(file)
		if err != nil {
			slog.Warn("Skipping invalid seed source file", "file", file, "error", err)
			continue
		}

		source, err := seed.toSource()
		if err != nil {
			slog.Warn("Skipping invalid seed source", "file", file, "error", err)
			continue
		}

		if _, err := sourceRepo.UpsertSeedSource(*source); err != nil {
			slog.Warn("Failed to register seed source", "file", file, "error", err)
			continue
		}

		slog.Debug("Seed source registered", "name", source.Name, "type", source.Type, "url", source.URL)
		registered++
	}

	return registered, nil
}

func parseSeedFile(path string) (*SeedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed SeedSource
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &seed, nil
}

func (s *SeedSource) toSource() (*database.Source, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	sourceType := database.SourceType(s.Type)
	switch sourceType {
	case database.SourceTypeFeed, database.SourceTypeSitemap, database.SourceTypeSite:
	case "":
		sourceType = database.SourceTypeFeed
	default:
		return nil, fmt.Errorf("unknown source type: %s", s.Type)
	}

	domain := urlDomain(s.URL)
	if domain == "" {
		return nil, fmt.Errorf("url has no valid host: %s", s.URL)
	}

	name := s.Name
	if name == "" {
		name = domain
	}

	frequency := s.CrawlFrequencyHours
	if frequency <= 0 {
		frequency = 24
	}

	return &database.Source{
		Name:                name,
		Type:                sourceType,
		URL:                 s.URL,
		Domain:              domain,
		CrawlFrequencyHours: frequency,
		Enabled:             !s.Disabled,
		Topics:              s.Topics,
		ExtractLinks:        s.ExtractLinks,
	}, nil
}
