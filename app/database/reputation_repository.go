package database

import (
	"database/sql"
	"fmt"
)

type PostgresReputationRepository struct {
	db *DB
}

var _ ReputationRepository = (*PostgresReputationRepository)(nil)

func NewReputationRepository(db *DB) *PostgresReputationRepository {
	return &PostgresReputationRepository{db: db}
}

const reputationColumns = `domain, score, trust_score, approved_count, rejected_count,
	flagged_count, avg_quality_score, avg_engagement_rate, total_content,
	is_blacklisted, COALESCE(blacklist_reason, ''), last_updated`

func (r *PostgresReputationRepository) scanReputation(row interface{ Scan(...any) error }) (*DomainReputation, error) {
	var rep DomainReputation
	err := row.Scan(&rep.Domain, &rep.Score, &rep.TrustScore, &rep.ApprovedCount,
		&rep.RejectedCount, &rep.FlaggedCount, &rep.AvgQualityScore,
		&rep.AvgEngagementRate, &rep.TotalContent, &rep.IsBlacklisted,
		&rep.BlacklistReason, &rep.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *PostgresReputationRepository) GetReputation(domain string) (*DomainReputation, error) {
	row := r.db.QueryRow(`SELECT `+reputationColumns+` FROM domain_reputations WHERE domain = $1`, domain)
	rep, err := r.scanReputation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain reputation: %w", err)
	}
	return rep, nil
}

func (r *PostgresReputationRepository) UpsertReputation(rep DomainReputation) error {
	_, err := r.db.Exec(`
		INSERT INTO domain_reputations (domain, score, trust_score, approved_count,
			rejected_count, flagged_count, avg_quality_score, avg_engagement_rate,
			total_content, is_blacklisted, blacklist_reason, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NOW())
		ON CONFLICT (domain) DO UPDATE SET
			score = EXCLUDED.score,
			trust_score = EXCLUDED.trust_score,
			approved_count = EXCLUDED.approved_count,
			rejected_count = EXCLUDED.rejected_count,
			flagged_count = EXCLUDED.flagged_count,
			avg_quality_score = EXCLUDED.avg_quality_score,
			avg_engagement_rate = EXCLUDED.avg_engagement_rate,
			total_content = EXCLUDED.total_content,
			is_blacklisted = EXCLUDED.is_blacklisted,
			blacklist_reason = EXCLUDED.blacklist_reason,
			last_updated = NOW()
	`, rep.Domain, rep.Score, rep.TrustScore, rep.ApprovedCount, rep.RejectedCount,
		rep.FlaggedCount, rep.AvgQualityScore, rep.AvgEngagementRate, rep.TotalContent,
		rep.IsBlacklisted, rep.BlacklistReason)
	if err != nil {
		return fmt.Errorf("failed to upsert domain reputation: %w", err)
	}
	return nil
}

func (r *PostgresReputationRepository) TopDomains(limit int) ([]DomainReputation, error) {
	rows, err := r.db.Query(`
		SELECT `+reputationColumns+`
		FROM domain_reputations
		WHERE is_blacklisted = FALSE
		ORDER BY score DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top domains: %w", err)
	}
	defer rows.Close()

	return r.collectReputations(rows)
}

func (r *PostgresReputationRepository) ListBlacklisted() ([]DomainReputation, error) {
	rows, err := r.db.Query(`
		SELECT ` + reputationColumns + `
		FROM domain_reputations
		WHERE is_blacklisted = TRUE
		ORDER BY domain
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklisted domains: %w", err)
	}
	defer rows.Close()

	return r.collectReputations(rows)
}

func (r *PostgresReputationRepository) SetBlacklisted(domain string, blacklisted bool, reason string) error {
	_, err := r.db.Exec(`
		INSERT INTO domain_reputations (domain, is_blacklisted, blacklist_reason)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (domain) DO UPDATE SET
			is_blacklisted = EXCLUDED.is_blacklisted,
			blacklist_reason = EXCLUDED.blacklist_reason,
			last_updated = NOW()
	`, domain, blacklisted, reason)
	if err != nil {
		return fmt.Errorf("failed to set blacklist flag: %w", err)
	}
	return nil
}

func (r *PostgresReputationRepository) collectReputations(rows *sql.Rows) ([]DomainReputation, error) {
	var reps []DomainReputation
	for rows.Next() {
		rep, err := r.scanReputation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain reputation: %w", err)
		}
		reps = append(reps, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain reputations: %w", err)
	}
	return reps, nil
}
