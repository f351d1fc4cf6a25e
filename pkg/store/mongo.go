package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotFound is returned when an update or delete matched no
// document in the target collection. Callers use it to decide to
// probe the next candidate collection.
var ErrNotFound = errors.New("document not found")

// Document is one record read from a collection: its id plus the raw
// field map, exactly as the store returned it.
type Document struct {
	ID     string
	Fields map[string]any
}

// Client wraps the MongoDB connection behind the store contract the
// lead service needs: ordered read, unordered read, field update and
// delete, all addressed by collection name.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewClient connects to MongoDB and verifies the connection.
func NewClient(uri, database string) (*Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed connecting to mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed pinging mongodb: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(database),
	}, nil
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// ReadOrdered reads every document in the collection, ordered by the
// given recency field, newest first.
func (c *Client) ReadOrdered(ctx context.Context, collection, orderField string) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: orderField, Value: -1}})
	cursor, err := c.db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("ordered read of %s failed: %w", collection, err)
	}
	return decodeAll(ctx, cursor, collection)
}

// Read reads every document in the collection in store order.
func (c *Client) Read(ctx context.Context, collection string) ([]Document, error) {
	cursor, err := c.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("read of %s failed: %w", collection, err)
	}
	return decodeAll(ctx, cursor, collection)
}

// Update sets fields on one document. Returns ErrNotFound when the
// collection has no document with that id.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	result, err := c.db.Collection(collection).UpdateOne(ctx, idFilter(id), bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update in %s failed: %w", collection, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one document. Returns ErrNotFound when the
// collection has no document with that id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	result, err := c.db.Collection(collection).DeleteOne(ctx, idFilter(id))
	if err != nil {
		return fmt.Errorf("delete in %s failed: %w", collection, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor, collection string) ([]Document, error) {
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decoding documents from %s failed: %w", collection, err)
	}

	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		id := idToString(m["_id"])
		delete(m, "_id")
		docs = append(docs, Document{ID: id, Fields: map[string]any(m)})
	}
	return docs, nil
}

// idFilter matches both string ids (Firestore-style imports) and
// native ObjectIDs whose hex form equals the given id.
func idFilter(id string) bson.M {
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func idToString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case bson.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprintf("%v", id)
	}
}
