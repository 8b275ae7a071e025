package backend_postgres_migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInitial, downInitial)
}

func upInitial(tx *sql.Tx) error {
	// Ensure UUID extension is available
	if _, err := tx.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	createStatements := []string{
		`CREATE TYPE principal_kind AS ENUM ('user', 'system');`,

		// Principals table
		`CREATE TABLE IF NOT EXISTS principal (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			kind principal_kind NOT NULL DEFAULT 'user',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE UNIQUE INDEX idx_principal_name_lower ON principal(LOWER(name));`,

		// Objects table. The payload is kept as text so undecodable records survive.
		`CREATE TABLE IF NOT EXISTS object (
			id SERIAL PRIMARY KEY,
			external_id UUID DEFAULT uuid_generate_v4() UNIQUE NOT NULL,
			intid BIGINT UNIQUE,
			owner_id INT NOT NULL REFERENCES principal(id) ON DELETE CASCADE,
			class VARCHAR(128) NOT NULL,
			mime_type VARCHAR(255) NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '{}',
			broken BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE SEQUENCE IF NOT EXISTS object_intid_seq OWNED BY object.intid;`,

		// Indexes
		`CREATE INDEX idx_object_owner_id ON object(owner_id);`,
		`CREATE INDEX idx_object_external_id ON object(external_id);`,

		// System principal
		`INSERT INTO principal (name, kind) VALUES ('system.user', 'system') ON CONFLICT DO NOTHING;`,
	}

	for _, stmt := range createStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func downInitial(tx *sql.Tx) error {
	dropStatements := []string{
		"DROP TABLE IF EXISTS object;",
		"DROP TABLE IF EXISTS principal;",
		"DROP TYPE IF EXISTS principal_kind;",
	}

	for _, stmt := range dropStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
