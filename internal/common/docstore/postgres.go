// internal/common/docstore/postgres.go
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "innovation-crm/internal/common/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops);`

// PostgresStore keeps every collection in one JSONB table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return apperrors.NewDocumentStoreError("ensure_schema", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewDocumentNotFoundError(collection, id)
		}
		return nil, apperrors.NewDocumentStoreError("get", err)
	}

	data := map[string]interface{}{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperrors.NewDocumentStoreError("get", err)
	}
	return &Document{ID: id, Data: data}, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.NewDocumentStoreError("set", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, raw,
	)
	if err != nil {
		return apperrors.NewDocumentStoreError("set", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return apperrors.NewDocumentStoreError("update", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return apperrors.NewDocumentStoreError("update", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDocumentStoreError("update", err)
	}
	if affected == 0 {
		return apperrors.NewDocumentNotFoundError(collection, id)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	); err != nil {
		return apperrors.NewDocumentStoreError("delete", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Document, error) {
	stmt, args, err := buildQuery(q)
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("query", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("query", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, apperrors.NewDocumentStoreError("query", err)
		}
		data := map[string]interface{}{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, apperrors.NewDocumentStoreError("query", err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDocumentStoreError("query", err)
	}
	return docs, nil
}

// buildQuery renders a Query as SQL. Equality filters become one JSONB
// containment check so the GIN index serves them.
func buildQuery(q Query) (string, []interface{}, error) {
	var sb strings.Builder
	args := []interface{}{q.Collection}

	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	if len(q.Filters) > 0 {
		raw, err := json.Marshal(nestFilters(q.Filters))
		if err != nil {
			return "", nil, fmt.Errorf("encode filters: %w", err)
		}
		args = append(args, raw)
		fmt.Fprintf(&sb, ` AND data @> $%d::jsonb`, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, pq.Array(splitPath(q.OrderBy)))
		fmt.Fprintf(&sb, ` ORDER BY data #> $%d::text[]`, len(args))
		if q.Descending {
			sb.WriteString(` DESC`)
		}
		// ties keep insertion order, as in MemoryStore
		sb.WriteString(`, created_at`)
	} else {
		sb.WriteString(` ORDER BY created_at`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	return sb.String(), args, nil
}
