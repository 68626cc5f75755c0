package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Connect opens the Postgres pool and applies migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// users is owned by the account service; the table is created here only so a
// fresh database can boot.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id SERIAL PRIMARY KEY,
        username TEXT NOT NULL UNIQUE,
        email TEXT NOT NULL UNIQUE,
        created_at TIMESTAMPTZ DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS friend_requests (
        id SERIAL PRIMARY KEY,
        from_user_id INT NOT NULL,
        to_user_id INT NOT NULL,
        status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted')),
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE(from_user_id, to_user_id),
        CHECK (from_user_id <> to_user_id)
    );`,
	`CREATE INDEX IF NOT EXISTS idx_friend_requests_from_created
        ON friend_requests (from_user_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_friend_requests_to_status
        ON friend_requests (to_user_id, status, created_at);`,
}

func runMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	logrus.WithField("count", len(migrations)).Info("database migrations applied")
	return nil
}
