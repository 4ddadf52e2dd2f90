package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the slice of pgx that queries need, satisfied by *pgx.Conn,
// pgxpool.Pool, and pgx.Tx alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// VoiceRequest is one processed voice or text input: who sent it, what we
// heard, what came back, and how long it took.
type VoiceRequest struct {
	ID          string
	UserID      string
	InputMethod string
	Transcript  string
	Result      string
	ElapsedMs   int64
	CreatedAt   time.Time
}

const insertVoiceRequest = `
INSERT INTO voice_requests (id, user_id, input_method, transcript, result, elapsed_ms)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertVoiceRequestParams struct {
	ID          string
	UserID      string
	InputMethod string
	Transcript  string
	Result      string
	ElapsedMs   int64
}

func (q *Queries) InsertVoiceRequest(
	ctx context.Context,
	arg InsertVoiceRequestParams,
) error {
	_, err := q.db.Exec(ctx, insertVoiceRequest,
		arg.ID,
		arg.UserID,
		arg.InputMethod,
		arg.Transcript,
		arg.Result,
		arg.ElapsedMs,
	)
	return err
}

const listVoiceRequests = `
SELECT id, user_id, input_method, transcript, result, elapsed_ms, created_at
FROM voice_requests
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListVoiceRequests(
	ctx context.Context,
	limit int32,
) ([]VoiceRequest, error) {
	rows, err := q.db.Query(ctx, listVoiceRequests, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []VoiceRequest
	for rows.Next() {
		var i VoiceRequest
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.InputMethod,
			&i.Transcript,
			&i.Result,
			&i.ElapsedMs,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
