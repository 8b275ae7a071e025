package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Object methods on PostgresBackend

const selectObject = `
	SELECT o.id, o.external_id, COALESCE(o.intid, 0), p.name, o.class, o.mime_type, o.payload, o.broken,
		o.created_at, o.updated_at,
		COALESCE(ARRAY(
			SELECT sp.name FROM object_share s
			JOIN principal sp ON sp.id = s.principal_id
			WHERE s.object_id = o.id
			ORDER BY sp.name
		), '{}')
	FROM object o
	JOIN principal p ON p.id = o.owner_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*objectRecord, error) {
	rec := &objectRecord{}
	err := row.Scan(
		&rec.Id,
		&rec.ExternalId,
		&rec.IntID,
		&rec.Owner,
		&rec.Class,
		&rec.Mime,
		&rec.Payload,
		&rec.Broken,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		pq.Array(&rec.SharedWith),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Resolve returns the object registered under id, or nil when there is none
func (b *PostgresBackend) Resolve(ctx context.Context, id catalog.IntID) (catalog.Object, error) {
	rec, err := scanRecord(b.db.QueryRowContext(ctx, selectObject+` WHERE o.intid = $1`, int64(id)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %d: %w", id, err)
	}

	obj, err := rec.decode()
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// GetObject returns the decoded object registered under id
func (b *PostgresBackend) GetObject(ctx context.Context, id catalog.IntID) (*types.Object, error) {
	obj, err := b.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, catalog.NewResolutionError(id, catalog.Missing, "", nil)
	}
	return obj.(*types.Object), nil
}

// GetObjectByExternalId returns the object with the given external id, or nil when there is none
func (b *PostgresBackend) GetObjectByExternalId(ctx context.Context, externalId string) (*types.Object, error) {
	rec, err := scanRecord(b.db.QueryRowContext(ctx, selectObject+` WHERE o.external_id = $1`, externalId))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", externalId, err)
	}
	return rec.decode()
}

// SaveObject inserts or updates an object, registering an id when it has none
func (b *PostgresBackend) SaveObject(ctx context.Context, obj *types.Object) (*types.Object, error) {
	payload, err := encodePayload(obj)
	if err != nil {
		return nil, err
	}

	var query string
	args := []any{obj.Owner, obj.Class, obj.Mime, payload, obj.Broken}
	if obj.ExternalId == "" {
		query = `
			INSERT INTO object (intid, owner_id, class, mime_type, payload, broken)
			SELECT nextval('object_intid_seq'), p.id, $2, $3, $4, $5
			FROM principal p WHERE p.name = $1
			RETURNING id, external_id, intid, created_at, updated_at
		`
	} else {
		query = `
			UPDATE object SET
				owner_id = (SELECT id FROM principal WHERE name = $1),
				class = $2,
				mime_type = $3,
				payload = $4,
				broken = $5,
				intid = COALESCE(intid, nextval('object_intid_seq')),
				updated_at = CURRENT_TIMESTAMP
			WHERE external_id = $6
			RETURNING id, external_id, intid, created_at, updated_at
		`
		args = append(args, obj.ExternalId)
	}

	saved := *obj
	err = b.db.QueryRowContext(ctx, query, args...).Scan(
		&saved.Id,
		&saved.ExternalId,
		&saved.IntID,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &types.ErrPrincipalNotFound{Name: obj.Owner}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save object: %w", err)
	}

	return &saved, nil
}

// DeleteObject removes the object registered under id
func (b *PostgresBackend) DeleteObject(ctx context.Context, id catalog.IntID) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM object WHERE intid = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// ShareObject shares the object registered under id with a principal
func (b *PostgresBackend) ShareObject(ctx context.Context, id catalog.IntID, principal string) error {
	res, err := b.db.ExecContext(ctx, `
		INSERT INTO object_share (object_id, principal_id)
		SELECT o.id, p.id FROM object o, principal p
		WHERE o.intid = $1 AND p.name = $2
		ON CONFLICT DO NOTHING
	`, int64(id), principal)
	if err != nil {
		return fmt.Errorf("failed to share object: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		log.Debug().Int64("id", int64(id)).Str("principal", principal).Msg("share not recorded")
	}
	return nil
}

// IDOf returns the id currently registered for obj
func (b *PostgresBackend) IDOf(ctx context.Context, obj catalog.Object) (catalog.IntID, bool, error) {
	o, ok := obj.(*types.Object)
	if !ok || o.ExternalId == "" {
		return 0, false, nil
	}

	var intid sql.NullInt64
	err := b.db.QueryRowContext(ctx, `SELECT intid FROM object WHERE external_id = $1`, o.ExternalId).Scan(&intid)
	if err == sql.ErrNoRows || (err == nil && !intid.Valid) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get object id: %w", err)
	}
	return catalog.IntID(intid.Int64), true, nil
}

// ForceUnregister drops id from the id table; the object itself is kept
func (b *PostgresBackend) ForceUnregister(ctx context.Context, id catalog.IntID) error {
	_, err := b.db.ExecContext(ctx, `UPDATE object SET intid = NULL WHERE intid = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to unregister %d: %w", id, err)
	}
	return nil
}

// OwnedObjects enumerates the registered objects owned by or shared with p
func (b *PostgresBackend) OwnedObjects(ctx context.Context, p catalog.Principal, fn func(catalog.Object, error) error) error {
	rows, err := b.db.QueryContext(ctx, selectObject+`
		WHERE o.intid IS NOT NULL AND (
			p.name = $1 OR EXISTS (
				SELECT 1 FROM object_share s
				JOIN principal sp ON sp.id = s.principal_id
				WHERE s.object_id = o.id AND sp.name = $1
			)
		)
		ORDER BY o.id
	`, p.Name())
	if err != nil {
		return fmt.Errorf("failed to list objects of %s: %w", p.Name(), err)
	}

	// Drain the rows first, fn may query the database
	var records []*objectRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan object: %w", err)
		}
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	for _, rec := range records {
		obj, err := rec.decode()
		if err != nil {
			if err := fn(nil, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(obj, nil); err != nil {
			return err
		}
	}
	return nil
}
