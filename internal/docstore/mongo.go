// Package docstore persists game documents in MongoDB, one document per
// game keyed by its code.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/jason-s-yu/mickarin/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "games"

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Store implements game.Store on a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{coll: client.Database(dbName).Collection(collectionName)}
}

// EnsureIndexes creates the unique index on gameCode.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "gameCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) Load(ctx context.Context, code string) (*models.Game, error) {
	var g models.Game
	err := s.coll.FindOne(ctx, bson.M{"gameCode": code}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find game %s: %w", code, err)
	}
	return &g, nil
}

func (s *Store) Save(ctx context.Context, code string, g *models.Game) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"gameCode": code}, g, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace game %s: %w", code, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"gameCode": code}); err != nil {
		return fmt.Errorf("delete game %s: %w", code, err)
	}
	return nil
}
