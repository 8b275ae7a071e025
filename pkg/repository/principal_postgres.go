package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// Principal methods on PostgresBackend

// CreatePrincipal creates a principal
func (b *PostgresBackend) CreatePrincipal(ctx context.Context, name string, kind types.PrincipalKind) (*types.Principal, error) {
	query := `
		INSERT INTO principal (name, kind)
		VALUES ($1, $2)
		RETURNING id, name, kind, created_at
	`

	p := &types.Principal{}
	err := b.db.QueryRowContext(ctx, query, name, kind).Scan(&p.Id, &p.Username, &p.Kind, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	b.principals.Add(strings.ToLower(name), p)
	return p, nil
}

// Lookup returns the user principal named name (case insensitive)
func (b *PostgresBackend) Lookup(ctx context.Context, name string) (catalog.Principal, error) {
	key := strings.ToLower(name)
	if p, ok := b.principals.Get(key); ok {
		return p, nil
	}

	query := `
		SELECT id, name, kind, created_at
		FROM principal
		WHERE LOWER(name) = $1 AND kind = 'user'
	`

	p := &types.Principal{}
	err := b.db.QueryRowContext(ctx, query, key).Scan(&p.Id, &p.Username, &p.Kind, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &types.ErrPrincipalNotFound{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	b.principals.Add(key, p)
	return p, nil
}

// AllPrincipalNames lists every user principal
func (b *PostgresBackend) AllPrincipalNames(ctx context.Context) ([]string, error) {
	return b.queryNames(ctx, `
		SELECT name FROM principal
		WHERE kind = 'user'
		ORDER BY name
	`)
}

// SearchPrincipalNames lists user principals whose name starts with prefix
func (b *PostgresBackend) SearchPrincipalNames(ctx context.Context, prefix string) ([]string, error) {
	return b.queryNames(ctx, `
		SELECT name FROM principal
		WHERE kind = 'user' AND LOWER(name) LIKE $1 ESCAPE '\'
		ORDER BY name
	`, likePrefix(prefix))
}

func (b *PostgresBackend) SystemPrincipal() catalog.Principal {
	return &types.Principal{Username: types.SystemPrincipalName, Kind: types.PrincipalKindSystem}
}

func (b *PostgresBackend) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(prefix)) + "%"
}
