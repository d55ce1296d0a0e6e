package tabular

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCatalog = "tabular_collections"

type mongoCatalogDoc struct {
	Name   string   `bson:"_id"`
	Header []string `bson:"header"`
}

// Rows are ordered by ObjectID, which follows insertion order for a single
// writer process.
type mongoRowDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Cells []string           `bson:"cells"`
}

// MongoBackend keeps a catalog document per collection and stores the rows
// of each collection in their own document collection.
type MongoBackend struct {
	client  *mongo.Client
	db      *mongo.Database
	catalog *mongo.Collection
}

// NewMongoBackend connects and pings the server.
func NewMongoBackend(ctx context.Context, uri, database string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("tabular/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("tabular/mongo: ping: %w", err)
	}

	db := client.Database(database)
	return &MongoBackend{client: client, db: db, catalog: db.Collection(mongoCatalog)}, nil
}

func (b *MongoBackend) Collection(ctx context.Context, name string) (Collection, error) {
	var doc mongoCatalogDoc
	err := b.catalog.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("tabular/mongo: %q: %w", name, ErrCollectionNotFound)
	}
	if err != nil {
		return nil, mongoErr("find collection", err)
	}
	return b.handle(name), nil
}

func (b *MongoBackend) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	_, err := b.catalog.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$setOnInsert": bson.M{"header": []string{}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, mongoErr("ensure collection", err)
	}
	return b.handle(name), nil
}

func (b *MongoBackend) handle(name string) *mongoCollection {
	return &mongoCollection{b: b, name: name, rows: b.db.Collection("rows_" + name)}
}

func (b *MongoBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx, nil); err != nil {
		return mongoErr("ping", err)
	}
	return nil
}

func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

// ─── Collection ──────────────────────────────────────────────────────────────

type mongoCollection struct {
	b    *MongoBackend
	name string
	rows *mongo.Collection
}

func (c *mongoCollection) Name() string { return c.name }

func (c *mongoCollection) ReadHeader(ctx context.Context) ([]string, error) {
	var doc mongoCatalogDoc
	err := c.b.catalog.FindOne(ctx, bson.M{"_id": c.name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("tabular/mongo: %q: %w", c.name, ErrStaleHandle)
	}
	if err != nil {
		return nil, mongoErr("read header", err)
	}
	if doc.Header == nil {
		return []string{}, nil
	}
	return doc.Header, nil
}

func (c *mongoCollection) WriteHeader(ctx context.Context, header []string) error {
	res, err := c.b.catalog.UpdateOne(ctx, bson.M{"_id": c.name}, bson.M{"$set": bson.M{"header": header}})
	if err != nil {
		return mongoErr("write header", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("tabular/mongo: %q: %w", c.name, ErrStaleHandle)
	}
	return nil
}

func (c *mongoCollection) ReadAllRows(ctx context.Context) ([][]string, error) {
	if _, err := c.ReadHeader(ctx); err != nil {
		return nil, err
	}

	cur, err := c.rows.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongoErr("read rows", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRowDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode rows", err)
	}

	out := make([][]string, 0, len(docs))
	for _, d := range docs {
		if d.Cells == nil {
			d.Cells = []string{}
		}
		out = append(out, d.Cells)
	}
	return out, nil
}

func (c *mongoCollection) AppendRow(ctx context.Context, values []string) error {
	if _, err := c.ReadHeader(ctx); err != nil {
		return err
	}
	if _, err := c.rows.InsertOne(ctx, mongoRowDoc{ID: primitive.NewObjectID(), Cells: values}); err != nil {
		return mongoErr("append row", err)
	}
	return nil
}

func (c *mongoCollection) nth(ctx context.Context, row int) (mongoRowDoc, error) {
	var doc mongoRowDoc
	if row <= HeaderRow {
		return doc, fmt.Errorf("tabular/mongo: row %d: %w", row, ErrRowOutOfRange)
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(row - HeaderRow - 1))
	err := c.rows.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, fmt.Errorf("tabular/mongo: row %d: %w", row, ErrRowOutOfRange)
	}
	if err != nil {
		return doc, mongoErr("locate row", err)
	}
	return doc, nil
}

func (c *mongoCollection) UpdateCell(ctx context.Context, row, col int, value string) error {
	if col < 1 {
		return fmt.Errorf("tabular/mongo: column %d: %w", col, ErrRowOutOfRange)
	}
	if row == HeaderRow {
		header, err := c.ReadHeader(ctx)
		if err != nil {
			return err
		}
		header = padTo(header, col)
		header[col-1] = value
		return c.WriteHeader(ctx, header)
	}

	doc, err := c.nth(ctx, row)
	if err != nil {
		return err
	}
	cells := padTo(doc.Cells, col)
	cells[col-1] = value
	return c.setCells(ctx, doc.ID, cells)
}

func (c *mongoCollection) UpdateRow(ctx context.Context, row int, values []string) error {
	doc, err := c.nth(ctx, row)
	if err != nil {
		return err
	}
	return c.setCells(ctx, doc.ID, values)
}

func (c *mongoCollection) setCells(ctx context.Context, id primitive.ObjectID, cells []string) error {
	if _, err := c.rows.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"cells": cells}}); err != nil {
		return mongoErr("update row", err)
	}
	return nil
}

func (c *mongoCollection) DeleteRow(ctx context.Context, row int) error {
	doc, err := c.nth(ctx, row)
	if err != nil {
		return err
	}
	if _, err := c.rows.DeleteOne(ctx, bson.M{"_id": doc.ID}); err != nil {
		return mongoErr("delete row", err)
	}
	return nil
}

func mongoErr(op string, err error) error {
	return fmt.Errorf("tabular/mongo: %s: %w: %w", op, ErrUnavailable, err)
}
