package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// schema задает таблицу links. Уникальность custom_code обеспечивает
// сама БД - это единственное место где проверяется занятость кода.
const schema = `
CREATE TABLE IF NOT EXISTS links (
	id           BIGSERIAL PRIMARY KEY,
	custom_code  VARCHAR(32) NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	click_count  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_links_created_at ON links (created_at DESC, id DESC);
`

// Migrate создает схему если её еще нет
func Migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}
