package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/viper"
)

// Schema creates the voice_requests table. It is written to be safe to
// re-apply on every connect.
//
//go:embed db_init.sql
var Schema string

// OpenDatabase connects to the Postgres given by DATABASE_URL and applies
// the embedded schema.
func OpenDatabase() (*pgx.Conn, *Queries, error) {
	conn, err := pgx.Connect(
		context.Background(),
		viper.GetString("DATABASE_URL")+"?sslmode=disable",
	)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	queries := New(conn)

	_, err = conn.Exec(context.Background(), Schema)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"failed to execute embedded db_init.sql: %w",
			err,
		)
	}

	return conn, queries, nil
}
