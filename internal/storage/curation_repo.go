package storage

import (
	"context"
	"fmt"

	"curator/internal/models"
)

// BadHashError reports a curation submitted against a statement hash
// the store does not know.
type BadHashError struct {
	Hash int64
}

func (e *BadHashError) Error() string {
	return fmt.Sprintf("invalid statement hash: %d", e.Hash)
}

type CurationRepo struct {
	db *DB
}

func NewCurationRepo(db *DB) *CurationRepo {
	return &CurationRepo{db: db}
}

// ListAll returns every curation row in insertion order. The store
// columns pa_hash/tag/text/curator map to stmt_hash/error_type/
// comment/email on the record.
func (r *CurationRepo) ListAll(ctx context.Context) ([]models.CurationRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, pa_hash, source_hash, tag, COALESCE(text, ''), curator,
       COALESCE(ip, ''), COALESCE(source, ''), created_at
FROM curations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list curations: %w", err)
	}
	defer rows.Close()

	out := make([]models.CurationRecord, 0)
	for rows.Next() {
		var rec models.CurationRecord
		if err := rows.Scan(&rec.ID, &rec.StmtHash, &rec.SourceHash, &rec.ErrorType,
			&rec.Comment, &rec.Email, &rec.IP, &rec.Source, &rec.Date); err != nil {
			return nil, fmt.Errorf("scan curation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curations: %w", err)
	}
	return out, nil
}

// Insert validates the statement hash and persists a new curation row,
// returning its generated id. An unknown hash yields BadHashError.
func (r *CurationRepo) Insert(ctx context.Context, rec models.CurationRecord) (int64, error) {
	var known bool
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM statements WHERE stmt_hash = $1)`,
		rec.StmtHash).Scan(&known); err != nil {
		return 0, fmt.Errorf("check statement hash: %w", err)
	}
	if !known {
		return 0, &BadHashError{Hash: rec.StmtHash}
	}

	var id int64
	if err := r.db.Pool.QueryRow(ctx, `
INSERT INTO curations (pa_hash, source_hash, tag, text, curator, ip, source)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		rec.StmtHash, rec.SourceHash, rec.ErrorType, rec.Comment,
		rec.Email, rec.IP, rec.Source).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert curation: %w", err)
	}
	return id, nil
}
