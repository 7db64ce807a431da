package journal

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// migrate creates the schema on a new database and checks the version of
// an existing one.
func (j *Journal) migrate() error {
	version, err := j.schemaVersion()
	if err != nil {
		return err
	}
	switch {
	case version == currentSchemaVersion:
		j.logger.Debug("Journal schema is up to date", "version", version)
		return nil
	case version > currentSchemaVersion:
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	tx, err := j.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := createTables(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	j.logger.Info("Journal schema initialized", "path", j.path, "version", currentSchemaVersion)
	return nil
}

// schemaVersion returns 0 for a database without a schema_version table.
func (j *Journal) schemaVersion() (int, error) {
	var name string
	err := j.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&name)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	var version int
	err = j.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func createTables(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS completions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			completion_id TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL,
			model TEXT NOT NULL,
			engine TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_session ON completions(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create journal tables: %w", err)
		}
	}
	return nil
}
