package backup

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoSink copies each table into a collection of the same name. Every
// document carries the snapshot id and time.
type MongoSink struct {
	client *mongo.Client
	db     string
}

func NewMongoSink(ctx context.Context, uri, db string) (*MongoSink, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(20 * time.Second).
		SetServerSelectionTimeout(15 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &MongoSink{client: client, db: db}, nil
}

func (s *MongoSink) Name() string { return "mongo" }

func (s *MongoSink) Write(ctx context.Context, snap *Snapshot) error {
	db := s.client.Database(s.db)

	meta := bson.M{
		"_id":      snap.ID,
		"taken_at": snap.TakenAt,
		"rows":     snap.Rows(),
	}
	if _, err := db.Collection("snapshots").InsertOne(ctx, meta); err != nil {
		return fmt.Errorf("writing snapshot record: %w", err)
	}

	for table, rows := range snap.Tables {
		if len(rows) == 0 {
			continue
		}
		docs := make([]any, 0, len(rows))
		for _, row := range rows {
			doc := bson.M{"snapshot_id": snap.ID, "snapshot_at": snap.TakenAt}
			for k, v := range row {
				doc[k] = v
			}
			docs = append(docs, doc)
		}
		if _, err := db.Collection(table).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("writing %s: %w", table, err)
		}
	}
	return nil
}

func (s *MongoSink) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		log.Printf("mongo backup disconnect: %v", err)
	}
}
