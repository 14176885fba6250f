// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores each collection as a MongoDB collection keyed by _id.
// Commit needs a replica set or sharded cluster for multi-document
// transactions.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo opens a client and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("mongo connected")
	return client, nil
}

// NewMongo creates a store over the named database.
func NewMongo(client *mongo.Client, database string) *Mongo {
	return &Mongo{client: client, db: client.Database(database)}
}

// Get implements Store.
func (m *Mongo) Get(ctx context.Context, collection, id string, dst any) error {
	raw, err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mongo get %s/%s: %w", collection, id, err)
	}
	return decodeRaw(raw, id, dst)
}

// Set implements Store.
func (m *Mongo) Set(ctx context.Context, collection, id string, doc any) error {
	return m.apply(ctx, SetOp(collection, id, doc))
}

// Update implements Store.
func (m *Mongo) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return m.apply(ctx, UpdateOp(collection, id, fields))
}

// Query implements Store.
func (m *Mongo) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	filter := bson.D{}
	for _, f := range q.Filters {
		v, err := toScalar(f.Value)
		if err != nil {
			return nil, fmt.Errorf("mongo filter %s: %w", f.Field, err)
		}
		switch f.Op {
		case Eq:
			filter = append(filter, bson.E{Key: f.Field, Value: v})
		case Lt:
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$lt": v}})
		case Lte:
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$lte": v}})
		case Gt:
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$gt": v}})
		case Gte:
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$gte": v}})
		default:
			return nil, fmt.Errorf("mongo: unsupported operator %q", f.Op)
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := m.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo query %s: %w", q.Collection, err)
	}
	defer cur.Close(ctx)

	var out []Snapshot
	for cur.Next(ctx) {
		id, _ := cur.Current.Lookup("_id").StringValueOK()
		data, err := bson.MarshalExtJSON(cur.Current, false, false)
		if err != nil {
			return nil, fmt.Errorf("mongo query %s: %w", q.Collection, err)
		}
		out = append(out, Snapshot{ID: id, Data: data})
	}
	return out, cur.Err()
}

// Commit implements Store using a session transaction.
func (m *Mongo) Commit(ctx context.Context, ops []Op) error {
	if err := validateBatch(ops); err != nil {
		return err
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			if err := m.apply(sc, op); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("mongo commit: %w", err)
	}
	return nil
}

func (m *Mongo) apply(ctx context.Context, op Op) error {
	coll := m.db.Collection(op.Collection)

	switch op.Kind {
	case OpSet:
		doc, err := toMap(op.Doc)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
		}
		doc["_id"] = op.ID
		_, err = coll.ReplaceOne(ctx, bson.M{"_id": op.ID}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongo set %s/%s: %w", op.Collection, op.ID, err)
		}
	case OpUpdate, OpMerge:
		fields, err := toMap(op.Fields)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
		}
		opts := options.Update().SetUpsert(op.Kind == OpMerge)
		res, err := coll.UpdateOne(ctx, bson.M{"_id": op.ID}, bson.M{"$set": fields}, opts)
		if err != nil {
			return fmt.Errorf("mongo update %s/%s: %w", op.Collection, op.ID, err)
		}
		if op.Kind == OpUpdate && res.MatchedCount == 0 {
			return fmt.Errorf("mongo update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
		}
	case OpDelete:
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": op.ID}); err != nil {
			return fmt.Errorf("mongo delete %s/%s: %w", op.Collection, op.ID, err)
		}
	default:
		return fmt.Errorf("mongo: unknown op kind %d", op.Kind)
	}
	return nil
}

func decodeRaw(raw bson.Raw, id string, dst any) error {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return fmt.Errorf("mongo decode %s: %w", id, err)
	}
	return Snapshot{ID: id, Data: data}.Decode(dst)
}
