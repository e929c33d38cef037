package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// FetchContentHashes returns the stored (id -> content_hash) pairs that the
// change detector diffs against.
func (r *PostgresRepo) FetchContentHashes(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, content_hash FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, err
		}
		hashes[id] = hash
	}
	return hashes, rows.Err()
}

// SyncBatch writes the changed work set in one transaction: upsert the
// document rows, delete every existing chunk of those documents, then insert
// the freshly computed chunk sets. A reader never observes a document with a
// partially replaced chunk set. Rerunning the same batch after a crash
// reproduces the same end state, so at-least-once delivery is enough.
func (r *PostgresRepo) SyncBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO documents (id, source, title, url, content_hash, retrieved_at, is_active)
		VALUES ($1, $2, $3, $4, $5, NOW(), TRUE)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			content_hash = EXCLUDED.content_hash,
			retrieved_at = NOW(),
			is_active = TRUE
		WHERE documents.content_hash IS DISTINCT FROM EXCLUDED.content_hash`

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, upsert, d.ID, d.Source, d.Title, d.URL, d.ContentHash); err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
		ids = append(ids, d.ID)
	}

	// The whole chunk set of a changed document is rebuilt, so leftover
	// indexes from a previous, longer chunking cannot survive.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (doc_id, chunk_index, content, content_hash, embedding) VALUES ($1, $2, $3, $4, $5::vector)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		for _, c := range d.Chunks {
			if _, err := stmt.ExecContext(ctx, c.DocID, c.Index, c.Content, c.ContentHash, vecLiteral(c.Embedding)); err != nil {
				return fmt.Errorf("insert chunk %s/%d: %w", c.DocID, c.Index, err)
			}
		}
	}

	return tx.Commit()
}

// DeactivateMissing flips is_active off for documents of a source that were
// not seen this run. Nothing is ever hard-deleted by the sync path.
func (r *PostgresRepo) DeactivateMissing(ctx context.Context, source string, seenIDs []string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET is_active = FALSE WHERE source = $1 AND is_active AND NOT (id = ANY($2))`,
		source, pq.Array(seenIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// vecLiteral renders a pgvector literal: [0.100000,0.200000,...]
func vecLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(x), 'f', 6, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
