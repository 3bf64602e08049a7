package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chompy-labs/chompy/internal/domain"
)

// ─── Document Gateway ───────────────────────────────────────────────────────

// Load returns the document stored under (userID, entity, key).
func (d *DB) Load(ctx context.Context, userID string, entity domain.EntityType, key string) ([]byte, bool, error) {
	var body []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE user_id = ? AND entity = ? AND key = ?`,
		userID, string(entity), key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil // Absent, not an error
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Save upserts a document. The first write fixes its position in List.
func (d *DB) Save(ctx context.Context, userID string, entity domain.EntityType, key string, doc []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO documents (user_id, entity, key, body, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, entity, key) DO UPDATE SET
			body=excluded.body,
			updated_at=excluded.updated_at`,
		userID, string(entity), key, doc, time.Now().Unix(),
	)
	return err
}

// List returns every document of an entity type in insertion order.
func (d *DB) List(ctx context.Context, userID string, entity domain.EntityType) ([][]byte, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE user_id = ? AND entity = ? ORDER BY seq`,
		userID, string(entity),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		docs = append(docs, body)
	}
	return docs, rows.Err()
}
