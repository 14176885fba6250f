// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Postgres stores documents as JSONB rows in the documents table created by
// the database migrations.
type Postgres struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, collection, id string, dst any) error {
	query, args, err := p.psql.Select("data").
		From("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build get query: %w", err)
	}

	var data []byte
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set implements Store.
func (p *Postgres) Set(ctx context.Context, collection, id string, doc any) error {
	return p.apply(ctx, p.db, SetOp(collection, id, doc))
}

// Update implements Store.
func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return p.apply(ctx, p.db, UpdateOp(collection, id, fields))
}

// Query implements Store.
func (p *Postgres) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	sel := p.psql.Select("id", "data").
		From("documents").
		Where(sq.Eq{"collection": q.Collection}).
		OrderBy("id")

	for _, f := range q.Filters {
		cond, err := filterExpr(f)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(cond)
	}
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Commit implements Store. All ops run in one transaction.
func (p *Postgres) Commit(ctx context.Context, ops []Op) error {
	if err := validateBatch(ops); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if err := p.apply(ctx, tx, op); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) apply(ctx context.Context, ex execer, op Op) error {
	if op.Kind == OpDelete {
		query, args, err := p.psql.Delete("documents").
			Where(sq.Eq{"collection": op.Collection, "id": op.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build %s/%s: %w", op.Collection, op.ID, err)
		}
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
		}
		return nil
	}

	var (
		payload map[string]any
		err     error
	)
	if op.Kind == OpSet {
		payload, err = toMap(op.Doc)
	} else {
		payload, err = toMap(op.Fields)
	}
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
	}

	var b interface{ ToSql() (string, []any, error) }
	switch op.Kind {
	case OpSet:
		b = p.psql.Insert("documents").
			Columns("collection", "id", "data").
			Values(op.Collection, op.ID, string(data)).
			Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()")
	case OpMerge:
		b = p.psql.Insert("documents").
			Columns("collection", "id", "data").
			Values(op.Collection, op.ID, string(data)).
			Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()")
	case OpUpdate:
		b = p.psql.Update("documents").
			Set("data", sq.Expr("data || ?::jsonb", string(data))).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"collection": op.Collection, "id": op.ID})
	default:
		return fmt.Errorf("postgres: unknown op kind %d", op.Kind)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s/%s: %w", op.Collection, op.ID, err)
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", op.Collection, op.ID, err)
	}
	if op.Kind == OpUpdate {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", op.Collection, op.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
		}
	}
	return nil
}

// filterExpr turns a Filter into a JSONB predicate, casting by value type.
func filterExpr(f Filter) (sq.Sqlizer, error) {
	switch f.Op {
	case Eq, Lt, Lte, Gt, Gte:
	default:
		return nil, fmt.Errorf("postgres: unsupported operator %q", f.Op)
	}
	op := string(f.Op)
	if f.Op == Eq {
		op = "="
	}

	v, err := toScalar(f.Value)
	if err != nil {
		return nil, fmt.Errorf("postgres filter %s: %w", f.Field, err)
	}
	switch t := v.(type) {
	case int64, float64:
		n, _ := toFloat(t)
		return sq.Expr("(data->>(?::text))::double precision "+op+" ?", f.Field, n), nil
	case string:
		return sq.Expr("data->>(?::text) "+op+" ?", f.Field, t), nil
	case bool:
		if f.Op != Eq {
			return nil, fmt.Errorf("postgres: operator %q on boolean field %s", f.Op, f.Field)
		}
		return sq.Expr("(data->>(?::text))::boolean = ?", f.Field, t), nil
	}
	return nil, fmt.Errorf("postgres: unsupported filter value %T for %s", f.Value, f.Field)
}
