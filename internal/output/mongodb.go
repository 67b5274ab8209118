// internal/output/mongodb.go
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

const (
	defaultMongoDatabase   = "tours"
	defaultMongoCollection = "tours"
)

// MongoDBWriter upserts one document per tour, keyed by tour_id.
type MongoDBWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     utils.Logger
}

// NewMongoDBWriter connects to uri and ensures the tour_id index exists.
func NewMongoDBWriter(ctx context.Context, uri, database, collection string, logger utils.Logger) (*MongoDBWriter, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tour_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("tour_id_unique"),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoDBWriter{
		client:     client,
		collection: coll,
		logger:     logger.WithFields(map[string]interface{}{"sink": "mongodb", "collection": database + "." + collection}),
	}, nil
}

// Name implements Writer.
func (w *MongoDBWriter) Name() string { return "mongodb" }

// Write implements Writer.
func (w *MongoDBWriter) Write(ctx context.Context, ds *tour.Dataset) error {
	records := ds.Records()
	if len(records) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		doc, err := recordDocument(rec)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"tour_id": rec.TourID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := w.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk write failed: %w", err)
	}
	w.logger.Debugf("upserted %d, modified %d", result.UpsertedCount, result.ModifiedCount)
	return nil
}

// recordDocument converts a record through its JSON form so field order
// and names match the canonical file.
func recordDocument(rec *tour.Record) (bson.D, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tour %s: %w", rec.TourID, err)
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert tour %s: %w", rec.TourID, err)
	}
	return doc, nil
}

// Close implements Writer.
func (w *MongoDBWriter) Close() error {
	if w.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := w.client.Disconnect(ctx)
	w.client = nil
	return err
}
