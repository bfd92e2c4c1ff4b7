package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type PostgresContentRepository struct {
	db *DB
}

var _ ContentRepository = (*PostgresContentRepository)(nil)

func NewContentRepository(db *DB) *PostgresContentRepository {
	return &PostgresContentRepository{db: db}
}

const contentColumns = `id, url, title, COALESCE(description, ''), domain, topics,
	COALESCE(image_url, ''), COALESCE(author, ''), published_at,
	quality_score, base_score, popularity_score, moderation_status,
	likes_count, saves_count, shares_count, views_count, is_active, created_at`

func (r *PostgresContentRepository) scanItem(row interface{ Scan(...any) error }) (*ContentItem, error) {
	var item ContentItem
	err := row.Scan(&item.ID, &item.URL, &item.Title, &item.Description, &item.Domain,
		pq.Array(&item.Topics), &item.ImageURL, &item.Author, &item.PublishedAt,
		&item.QualityScore, &item.BaseScore, &item.PopularityScore, &item.ModerationStatus,
		&item.LikesCount, &item.SavesCount, &item.SharesCount, &item.ViewsCount,
		&item.IsActive, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PostgresContentRepository) GetItem(id string) (*ContentItem, error) {
	row := r.db.QueryRow(`SELECT `+contentColumns+` FROM content_items WHERE id = $1`, id)
	item, err := r.scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return item, nil
}

func (r *PostgresContentRepository) GetItemByURL(url string) (*ContentItem, error) {
	row := r.db.QueryRow(`SELECT `+contentColumns+` FROM content_items WHERE url = $1`, url)
	item, err := r.scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item by url: %w", err)
	}
	return item, nil
}

// CreateItemWithTopics inserts the item and its topic assignments in a single
// transaction. The assignment rows are the source of truth; the denormalized
// topics column is derived from the same assignment list so the two cannot
// diverge on this write path.
func (r *PostgresContentRepository) CreateItemWithTopics(item ContentItem, assignments []TopicAssignment) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	topicNames := make([]string, 0, len(assignments))
	for _, a := range assignments {
		topicNames = append(topicNames, a.TopicName)
	}

	var id string
	err = tx.QueryRow(`
		INSERT INTO content_items (url, title, description, domain, topics, published_at, quality_score, base_score)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`, item.URL, item.Title, item.Description, item.Domain, pq.Array(topicNames),
		item.PublishedAt, item.QualityScore, item.BaseScore).Scan(&id)
	if err == sql.ErrNoRows {
		// URL already exists; duplicate submission, not an error
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert content item: %w", err)
	}

	for _, a := range assignments {
		_, err = tx.Exec(`
			INSERT INTO topic_assignments (content_id, topic_id, confidence)
			VALUES ($1, $2, $3)
			ON CONFLICT (content_id, topic_id) DO UPDATE SET confidence = EXCLUDED.confidence
		`, id, a.TopicID, a.Confidence)
		if err != nil {
			return "", fmt.Errorf("failed to insert topic assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit content item: %w", err)
	}
	return id, nil
}

func (r *PostgresContentRepository) GetCandidates(limit int) ([]ContentItem, error) {
	rows, err := r.db.Query(`
		SELECT `+contentColumns+`
		FROM content_items
		WHERE is_active = TRUE
		  AND moderation_status <> 'rejected'
		ORDER BY RANDOM()
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return items, nil
}

func (r *PostgresContentRepository) GetAssignments(contentID string) ([]TopicAssignment, error) {
	rows, err := r.db.Query(`
		SELECT ta.content_id, ta.topic_id, t.name, ta.confidence
		FROM topic_assignments ta
		JOIN topics t ON t.id = ta.topic_id
		WHERE ta.content_id = $1
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get topic assignments: %w", err)
	}
	defer rows.Close()

	var assignments []TopicAssignment
	for rows.Next() {
		var a TopicAssignment
		if err := rows.Scan(&a.ContentID, &a.TopicID, &a.TopicName, &a.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan topic assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topic assignments: %w", err)
	}
	return assignments, nil
}

// UpdateMetadata fills in enrichment fields, never overwriting an existing
// value with an empty one.
func (r *PostgresContentRepository) UpdateMetadata(id string, description, imageURL, author string, publishedAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE content_items SET
			description = COALESCE(NULLIF($2, ''), description),
			image_url = COALESCE(NULLIF($3, ''), image_url),
			author = COALESCE(NULLIF($4, ''), author),
			published_at = COALESCE($5, published_at)
		WHERE id = $1
	`, id, description, imageURL, author, publishedAt)
	if err != nil {
		return fmt.Errorf("failed to update content metadata: %w", err)
	}
	return nil
}

func (r *PostgresContentRepository) GetGlobalAvgEngagement() (float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRow(`
		SELECT AVG((likes_count + 1.2 * saves_count + 0.8 * shares_count) / GREATEST(views_count, 1))
		FROM content_items
		WHERE is_active = TRUE AND views_count > 0
	`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to compute global engagement: %w", err)
	}
	return avg.Float64, nil
}

func (r *PostgresContentRepository) GetActiveDomains(since time.Time) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT domain FROM content_items WHERE created_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get active domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domains: %w", err)
	}
	return domains, nil
}

func (r *PostgresContentRepository) GetDomainStats(domain string) (*DomainStats, error) {
	var stats DomainStats
	err := r.db.QueryRow(`
		SELECT $1,
			COUNT(*),
			COUNT(*) FILTER (WHERE moderation_status = 'approved'),
			COUNT(*) FILTER (WHERE moderation_status = 'rejected'),
			COUNT(*) FILTER (WHERE moderation_status = 'flagged'),
			COALESCE(AVG(quality_score), 0),
			COALESCE(AVG((likes_count + 1.2 * saves_count + 0.8 * shares_count) / GREATEST(views_count, 1)), 0),
			MAX(created_at)
		FROM content_items
		WHERE domain = $1
	`, domain).Scan(&stats.Domain, &stats.TotalContent, &stats.ApprovedCount,
		&stats.RejectedCount, &stats.FlaggedCount, &stats.AvgQualityScore,
		&stats.AvgEngagementRate, &stats.LastContentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get domain stats: %w", err)
	}
	return &stats, nil
}

// RecordFeedback stores the event and bumps the denormalized engagement
// counters that the scoring engine reads.
func (r *PostgresContentRepository) RecordFeedback(userID, contentID string, action FeedbackAction) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO feedback_events (user_id, content_id, action)
		VALUES ($1, $2, $3)
	`, userID, contentID, action)
	if err != nil {
		return fmt.Errorf("failed to insert feedback event: %w", err)
	}

	var counter string
	switch action {
	case FeedbackLike:
		counter = "likes_count"
	case FeedbackSave:
		counter = "saves_count"
	case FeedbackShare:
		counter = "shares_count"
	case FeedbackView:
		counter = "views_count"
	}

	if counter != "" {
		_, err = tx.Exec(`UPDATE content_items SET `+counter+` = `+counter+` + 1 WHERE id = $1`, contentID)
		if err != nil {
			return fmt.Errorf("failed to increment %s: %w", counter, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback: %w", err)
	}
	return nil
}

// GetUserHistory aggregates past feedback into topic and domain weights.
// Positive actions (like, save, share) feed the liked maps; dislike and skip
// feed the disliked map.
func (r *PostgresContentRepository) GetUserHistory(userID string) (*UserInteractionHistory, error) {
	rows, err := r.db.Query(`
		SELECT fe.action, ci.topics, ci.domain
		FROM feedback_events fe
		JOIN content_items ci ON ci.id = fe.content_id
		WHERE fe.user_id = $1
		ORDER BY fe.created_at DESC
		LIMIT 500
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user history: %w", err)
	}
	defer rows.Close()

	history := &UserInteractionHistory{
		LikedTopics:    make(map[string]float64),
		DislikedTopics: make(map[string]float64),
		LikedDomains:   make(map[string]float64),
	}

	var likes, skips, total int
	for rows.Next() {
		var action FeedbackAction
		var topics []string
		var domain string
		if err := rows.Scan(&action, pq.Array(&topics), &domain); err != nil {
			return nil, fmt.Errorf("failed to scan feedback event: %w", err)
		}

		var weight float64
		switch action {
		case FeedbackLike:
			weight = 1.0
			likes++
		case FeedbackSave:
			weight = 1.2
			likes++
		case FeedbackShare:
			weight = 0.8
			likes++
		case FeedbackDislike:
			weight = -1.0
		case FeedbackSkip:
			weight = -0.3
			skips++
		case FeedbackView:
			continue
		}
		total++

		for _, topic := range topics {
			if weight > 0 {
				history.LikedTopics[topic] += weight
			} else {
				history.DislikedTopics[topic] += -weight
			}
		}
		if weight > 0 {
			history.LikedDomains[domain] += weight
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user history: %w", err)
	}

	history.TotalEvents = total
	if total > 0 {
		history.LikeRate = float64(likes) / float64(total)
		history.SkipRate = float64(skips) / float64(total)
	}
	return history, nil
}

func (r *PostgresContentRepository) GetBlockedDomains(userID string) ([]string, error) {
	rows, err := r.db.Query(`SELECT domain FROM user_blocked_domains WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan blocked domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocked domains: %w", err)
	}
	return domains, nil
}

func (r *PostgresContentRepository) BlockDomain(userID, domain string) error {
	_, err := r.db.Exec(`
		INSERT INTO user_blocked_domains (user_id, domain)
		VALUES ($1, $2)
		ON CONFLICT (user_id, domain) DO NOTHING
	`, userID, domain)
	if err != nil {
		return fmt.Errorf("failed to block domain: %w", err)
	}
	return nil
}

// VerifyTopicConsistency returns ids of items whose denormalized topic array
// disagrees with their assignment rows.
func (r *PostgresContentRepository) VerifyTopicConsistency(limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT ci.id
		FROM content_items ci
		WHERE (
			SELECT COALESCE(ARRAY_AGG(t.name ORDER BY t.name), '{}')
			FROM topic_assignments ta
			JOIN topics t ON t.id = ta.topic_id
			WHERE ta.content_id = ci.id
		) IS DISTINCT FROM (
			SELECT COALESCE(ARRAY_AGG(x ORDER BY x), '{}') FROM UNNEST(ci.topics) AS x
		)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to verify topic consistency: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan inconsistent item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inconsistent items: %w", err)
	}
	return ids, nil
}

// RepairTopicConsistency rewrites the denormalized array from the assignment
// rows, which are the source of truth.
func (r *PostgresContentRepository) RepairTopicConsistency(contentID string) error {
	_, err := r.db.Exec(`
		UPDATE content_items ci
		SET topics = (
			SELECT COALESCE(ARRAY_AGG(t.name), '{}')
			FROM topic_assignments ta
			JOIN topics t ON t.id = ta.topic_id
			WHERE ta.content_id = ci.id
		)
		WHERE ci.id = $1
	`, contentID)
	if err != nil {
		return fmt.Errorf("failed to repair topic consistency: %w", err)
	}
	return nil
}

func (r *PostgresContentRepository) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content items: %w", err)
	}
	return count, nil
}
