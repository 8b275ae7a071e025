package backend_postgres_migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upObjectShare, downObjectShare)
}

func upObjectShare(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS object_share (
			object_id INT NOT NULL REFERENCES object(id) ON DELETE CASCADE,
			principal_id INT NOT NULL REFERENCES principal(id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (object_id, principal_id)
		);`,
		`CREATE INDEX idx_object_share_principal_id ON object_share(principal_id);`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func downObjectShare(tx *sql.Tx) error {
	_, err := tx.Exec("DROP TABLE IF EXISTS object_share;")
	return err
}
