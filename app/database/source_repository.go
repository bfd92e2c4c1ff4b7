package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type PostgresSourceRepository struct {
	db *DB
}

var _ SourceRepository = (*PostgresSourceRepository)(nil)

func NewSourceRepository(db *DB) *PostgresSourceRepository {
	return &PostgresSourceRepository{db: db}
}

const sourceColumns = `id, name, type, url, domain, crawl_frequency_hours, enabled,
	topics, extract_links, last_crawled_at, next_crawl_at, created_at, updated_at`

func (r *PostgresSourceRepository) scanSource(row interface{ Scan(...any) error }) (*Source, error) {
	var s Source
	err := row.Scan(&s.ID, &s.Name, &s.Type, &s.URL, &s.Domain, &s.CrawlFrequencyHours,
		&s.Enabled, pq.Array(&s.Topics), &s.ExtractLinks, &s.LastCrawledAt,
		&s.NextCrawlAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSourceRepository) GetSource(id string) (*Source, error) {
	row := r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	s, err := r.scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return s, nil
}

func (r *PostgresSourceRepository) ListSources() ([]Source, error) {
	rows, err := r.db.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	return r.collectSources(rows)
}

func (r *PostgresSourceRepository) GetSourcesDueForCrawl(now time.Time) ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT `+sourceColumns+`
		FROM sources
		WHERE enabled = TRUE
		  AND (next_crawl_at IS NULL OR next_crawl_at <= $1)
		ORDER BY next_crawl_at NULLS FIRST
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due sources: %w", err)
	}
	defer rows.Close()

	return r.collectSources(rows)
}

func (r *PostgresSourceRepository) collectSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		s, err := r.scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

func (r *PostgresSourceRepository) CreateSource(s Source) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO sources (name, type, url, domain, crawl_frequency_hours, enabled, topics, extract_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, s.Name, s.Type, s.URL, s.Domain, s.CrawlFrequencyHours, s.Enabled,
		pq.Array(s.Topics), s.ExtractLinks).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create source: %w", err)
	}
	return id, nil
}

// UpdateSource applies every non-nil field of the update. COALESCE keeps the
// stored value where the caller left a field nil.
func (r *PostgresSourceRepository) UpdateSource(id string, update SourceUpdate) (*Source, error) {
	var topics any
	if update.Topics != nil {
		topics = pq.Array(*update.Topics)
	}

	row := r.db.QueryRow(`
		UPDATE sources SET
			name = COALESCE($2, name),
			type = COALESCE($3, type),
			url = COALESCE($4, url),
			domain = COALESCE($5, domain),
			crawl_frequency_hours = COALESCE($6, crawl_frequency_hours),
			enabled = COALESCE($7, enabled),
			topics = COALESCE($8, topics),
			extract_links = COALESCE($9, extract_links),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+sourceColumns+`
	`, id, update.Name, (*string)(update.Type), update.URL, update.Domain,
		update.CrawlFrequencyHours, update.Enabled, topics, update.ExtractLinks)

	s, err := r.scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}
	return s, nil
}

func (r *PostgresSourceRepository) DeleteSource(id string) error {
	result, err := r.db.Exec(`DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertSeedSource registers a source from a seed definition file, keyed by
// URL. Timestamps and enabled state of an existing source are preserved.
func (r *PostgresSourceRepository) UpsertSeedSource(s Source) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO sources (name, type, url, domain, crawl_frequency_hours, enabled, topics, extract_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			domain = EXCLUDED.domain,
			crawl_frequency_hours = EXCLUDED.crawl_frequency_hours,
			topics = EXCLUDED.topics,
			extract_links = EXCLUDED.extract_links,
			updated_at = NOW()
		RETURNING id
	`, s.Name, s.Type, s.URL, s.Domain, s.CrawlFrequencyHours, s.Enabled,
		pq.Array(s.Topics), s.ExtractLinks).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert seed source: %w", err)
	}
	return id, nil
}

func (r *PostgresSourceRepository) UpdateCrawlTimestamps(id string, lastCrawledAt, nextCrawlAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_crawled_at = $2, next_crawl_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, lastCrawledAt, nextCrawlAt)
	if err != nil {
		return fmt.Errorf("failed to update crawl timestamps: %w", err)
	}
	return nil
}

func (r *PostgresSourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sources`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}
