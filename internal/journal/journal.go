// Package journal appends attendance events to a MongoDB collection. The
// relational store stays the source of truth; the journal is a history
// feed for other tools.
package journal

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "attendance"

type Kind string

const (
	KindCheckIn  Kind = "checkin"
	KindCheckOut Kind = "checkout"
	KindLeave    Kind = "leave"
)

type Entry struct {
	ID        primitive.ObjectID `bson:"_id"`
	RecordID  uint64             `bson:"record_id"`
	UserEmail string             `bson:"user_email"`
	Kind      Kind               `bson:"kind"`
	At        time.Time          `bson:"at"`
	Reason    string             `bson:"reason,omitempty"`
}

// Journal records attendance events.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop drops every entry. Used when MONGODB_URI is unset.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

// Connect opens the journal collection in database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{client: client, col: client.Database(dbName).Collection(collectionName)}, nil
}

func (m *Mongo) Record(ctx context.Context, entry Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.At = entry.At.UTC()
	if _, err := m.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// forUser returns the user's most recent entries, newest first.
func (m *Mongo) forUser(ctx context.Context, email string, limit int64) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := m.col.Find(ctx, bson.M{"user_email": email}, opts)
	if err != nil {
		return nil, fmt.Errorf("find journal entries: %w", err)
	}
	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode journal entries: %w", err)
	}
	return entries, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
