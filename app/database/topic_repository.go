package database

import (
	"fmt"

	"github.com/lib/pq"
)

type PostgresTopicRepository struct {
	db *DB
}

var _ TopicRepository = (*PostgresTopicRepository)(nil)

func NewTopicRepository(db *DB) *PostgresTopicRepository {
	return &PostgresTopicRepository{db: db}
}

func (r *PostgresTopicRepository) ListActiveTopicNames() ([]string, error) {
	rows, err := r.db.Query(`SELECT name FROM topics WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}
	return names, nil
}

func (r *PostgresTopicRepository) GetTopicIDsByName(names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	rows, err := r.db.Query(`SELECT id, name FROM topics WHERE name = ANY($1)`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to get topic ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string, len(names))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan topic id: %w", err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topic ids: %w", err)
	}
	return ids, nil
}
