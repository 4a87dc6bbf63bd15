package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"plate-api/api/internal/ocr"
)

var ErrNotFound = sql.ErrNoRows

// RecognitionRepo is an append-only history of completed requests.
// Per-request data still lives and dies inside the request; this is a
// record of what happened, keyed by image hash.
type RecognitionRepo struct{ DB *sql.DB }

func NewRecognitionRepo(db *sql.DB) *RecognitionRepo { return &RecognitionRepo{DB: db} }

type RecognitionRow struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	ImageHash string          `json:"image_hash"`
	Engine    string          `json:"engine"`
	Model     string          `json:"model"`
	Outcome   string          `json:"outcome"`
	Plate     ocr.PlateRecord `json:"plate"`
	Tokens    int             `json:"total_tokens"`
}

// Record inserts one completed recognition. Outcome is "ok" or the
// failure code; Plate is zero-valued on failures.
func (r *RecognitionRepo) Record(
	ctx context.Context,
	imageHash, engine, model, outcome string,
	plate ocr.PlateRecord,
	totalTokens int,
) error {
	js, _ := json.Marshal(plate)
	const q = `
insert into recognitions (image_hash, engine, model, outcome, plate_json, total_tokens)
values ($1,$2,$3,$4,$5,$6)`
	_, err := r.DB.ExecContext(ctx, q, imageHash, engine, model, outcome, js, totalTokens)
	return err
}

// Recent returns the newest recognitions, newest first.
func (r *RecognitionRepo) Recent(ctx context.Context, limit int) ([]RecognitionRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `
select id, created_at, image_hash, engine, model, outcome,
       coalesce(plate_json, '{}'::jsonb), coalesce(total_tokens, 0)
from recognitions
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecognitionRow
	for rows.Next() {
		var (
			row RecognitionRow
			js  []byte
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.ImageHash, &row.Engine,
			&row.Model, &row.Outcome, &js, &row.Tokens); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(js, &row.Plate)
		out = append(out, row)
	}
	return out, rows.Err()
}
