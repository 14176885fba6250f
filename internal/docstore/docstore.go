// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package docstore is a small transactional document store abstraction.
// Documents are JSON objects addressed by (collection, id). Multi-document
// writes go through Commit, which applies a batch atomically: either every
// operation lands or none does.
//
// Three backends are provided: an in-memory store (tests and local runs),
// PostgreSQL JSONB and MongoDB.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxBatchOps is the largest number of operations a single Commit accepts.
const MaxBatchOps = 500

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrBatchTooLarge is returned when a Commit exceeds MaxBatchOps.
	ErrBatchTooLarge = errors.New("docstore: batch exceeds maximum size")
)

// Store is implemented by every backend.
type Store interface {
	// Get decodes the document into dst. Returns ErrNotFound if missing.
	Get(ctx context.Context, collection, id string, dst any) error

	// Set replaces (or creates) the whole document.
	Set(ctx context.Context, collection, id string, doc any) error

	// Update merges top-level fields into an existing document. Returns
	// ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Query returns the documents of a collection matching every filter,
	// ordered by id.
	Query(ctx context.Context, q Query) ([]Snapshot, error)

	// Commit applies ops atomically.
	Commit(ctx context.Context, ops []Op) error
}

// Operator is a comparison used in query filters.
type Operator string

const (
	Eq  Operator = "=="
	Lt  Operator = "<"
	Lte Operator = "<="
	Gt  Operator = ">"
	Gte Operator = ">="
)

// Filter compares one top-level field against a scalar value.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Query selects documents from one collection. Limit <= 0 means no limit.
type Query struct {
	Collection string
	Filters    []Filter
	Limit      int
}

// Where returns a copy of q with an additional filter.
func (q Query) Where(field string, op Operator, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot is a raw document returned by Query.
type Snapshot struct {
	ID   string
	Data []byte
}

// Decode unmarshals the document into dst.
func (s Snapshot) Decode(dst any) error {
	if err := json.Unmarshal(s.Data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", s.ID, err)
	}
	return nil
}

// OpKind is the kind of write in a batch.
type OpKind int

const (
	// OpSet replaces the whole document.
	OpSet OpKind = iota
	// OpUpdate merges fields into an existing document.
	OpUpdate
	// OpMerge merges fields, creating the document if needed.
	OpMerge
	// OpDelete removes a document. Deleting a missing document is not an error.
	OpDelete
)

// Op is one write in a batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Doc        any
	Fields     map[string]any
}

// SetOp builds a replace operation.
func SetOp(collection, id string, doc any) Op {
	return Op{Kind: OpSet, Collection: collection, ID: id, Doc: doc}
}

// UpdateOp builds a merge into an existing document.
func UpdateOp(collection, id string, fields map[string]any) Op {
	return Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}
}

// MergeOp builds an upserting merge.
func MergeOp(collection, id string, fields map[string]any) Op {
	return Op{Kind: OpMerge, Collection: collection, ID: id, Fields: fields}
}

// DeleteOp builds a delete operation.
func DeleteOp(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

func validateBatch(ops []Op) error {
	if len(ops) > MaxBatchOps {
		return fmt.Errorf("%w: %d ops", ErrBatchTooLarge, len(ops))
	}
	for _, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return fmt.Errorf("docstore: op without collection or id")
		}
	}
	return nil
}
