package database

import (
	"database/sql"
	"fmt"
)

type PostgresCrawlJobRepository struct {
	db *DB
}

var _ CrawlJobRepository = (*PostgresCrawlJobRepository)(nil)

func NewCrawlJobRepository(db *DB) *PostgresCrawlJobRepository {
	return &PostgresCrawlJobRepository{db: db}
}

const jobColumns = `id, source_id, status, started_at, completed_at,
	items_found, items_submitted, items_failed, COALESCE(error_message, '')`

func (r *PostgresCrawlJobRepository) CreateJob(sourceID string) (*CrawlJob, error) {
	row := r.db.QueryRow(`
		INSERT INTO crawl_jobs (source_id, status)
		VALUES ($1, 'running')
		RETURNING `+jobColumns, sourceID)

	job, err := r.scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create crawl job: %w", err)
	}
	return job, nil
}

func (r *PostgresCrawlJobRepository) CompleteJob(id string, found, submitted, failed int) error {
	_, err := r.db.Exec(`
		UPDATE crawl_jobs
		SET status = 'completed', completed_at = NOW(),
		    items_found = $2, items_submitted = $3, items_failed = $4
		WHERE id = $1 AND status = 'running'
	`, id, found, submitted, failed)
	if err != nil {
		return fmt.Errorf("failed to complete crawl job: %w", err)
	}
	return nil
}

func (r *PostgresCrawlJobRepository) FailJob(id string, errorMessage string, found, submitted, failed int) error {
	_, err := r.db.Exec(`
		UPDATE crawl_jobs
		SET status = 'failed', completed_at = NOW(), error_message = $2,
		    items_found = $3, items_submitted = $4, items_failed = $5
		WHERE id = $1 AND status = 'running'
	`, id, errorMessage, found, submitted, failed)
	if err != nil {
		return fmt.Errorf("failed to mark crawl job failed: %w", err)
	}
	return nil
}

func (r *PostgresCrawlJobRepository) GetJob(id string) (*CrawlJob, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM crawl_jobs WHERE id = $1`, id)
	job, err := r.scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl job: %w", err)
	}
	return job, nil
}

func (r *PostgresCrawlJobRepository) ListJobsBySource(sourceID string, limit int) ([]CrawlJob, error) {
	rows, err := r.db.Query(`
		SELECT `+jobColumns+`
		FROM crawl_jobs
		WHERE source_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl jobs: %w", err)
	}
	defer rows.Close()

	var jobs []CrawlJob
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crawl jobs: %w", err)
	}
	return jobs, nil
}

// FailOrphanedJobs marks every job still in 'running' status as failed.
// Called once at startup, before the scheduler ticks: a running job at that
// point can only be a leftover from a crashed process.
func (r *PostgresCrawlJobRepository) FailOrphanedJobs() (int, error) {
	result, err := r.db.Exec(`
		UPDATE crawl_jobs
		SET status = 'failed', completed_at = NOW(),
		    error_message = 'orphaned by process restart'
		WHERE status = 'running'
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to fail orphaned jobs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check orphaned job result: %w", err)
	}
	return int(affected), nil
}

func (r *PostgresCrawlJobRepository) GetJobCounts() (int, int, int, error) {
	var running, completed, failed int
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'running'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM crawl_jobs
	`).Scan(&running, &completed, &failed)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count crawl jobs: %w", err)
	}
	return running, completed, failed, nil
}

func (r *PostgresCrawlJobRepository) scanJob(row interface{ Scan(...any) error }) (*CrawlJob, error) {
	var job CrawlJob
	err := row.Scan(&job.ID, &job.SourceID, &job.Status, &job.StartedAt, &job.CompletedAt,
		&job.ItemsFound, &job.ItemsSubmitted, &job.ItemsFailed, &job.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
