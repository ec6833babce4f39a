// Package mongodb implements the cache store on MongoDB, using a TTL
// index so expired entries are collected by the server.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gjovs/serverkit/internal/cache"
	"github.com/gjovs/serverkit/pkg/config"
)

// document is the stored shape of one cache entry
type document struct {
	Key       string     `bson:"_id"`
	Value     any        `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	SavedAt   time.Time  `bson:"saved_at"`
}

// Store implements the cache contract on MongoDB
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewStore connects to MongoDB and prepares the cache collection
func NewStore(ctx context.Context, cfg *config.MongoDBConfig) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(time.Duration(cfg.Timeout) * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collectionName := cfg.Collection
	if collectionName == "" {
		collectionName = "cache"
	}

	s := &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(collectionName),
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create cache indexes: %w", err)
	}
	return s, nil
}

// createIndexes installs the TTL index on expires_at. Documents without
// the field never expire.
func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// Save upserts value under key
func (s *Store) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	doc := document{
		Key:     key,
		Value:   value,
		SavedAt: time.Now(),
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		doc.ExpiresAt = &expires
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", cache.ErrSaveInCache, err)
	}
	return nil
}

// Ping checks the MongoDB connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
