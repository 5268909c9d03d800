package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tunebridge-go/domain/settings"
)

// settingDocument is the MongoDB document structure for settings.
// The setting key is the document _id; the value is kept as its JSON text so
// arbitrary structured values round-trip unchanged.
type settingDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoSettingsRepository implements settings.Repository using MongoDB.
type MongoSettingsRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoSettingsRepository creates a new MongoDB-based settings repository.
func NewMongoSettingsRepository(db *MongoDB, logger *slog.Logger) *MongoSettingsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoSettingsRepository{
		collection: db.Collection("settings"),
		logger:     logger,
	}
}

// Find retrieves a setting by key.
func (r *MongoSettingsRepository) Find(ctx context.Context, key string) (*settings.Setting, error) {
	var doc settingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find setting: %w", err)
	}
	return documentToSetting(&doc), nil
}

// FindAll retrieves all settings, sorted by key.
func (r *MongoSettingsRepository) FindAll(ctx context.Context) ([]*settings.Setting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find settings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []settingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	out := make([]*settings.Setting, len(docs))
	for i := range docs {
		out[i] = documentToSetting(&docs[i])
	}
	return out, nil
}

// Upsert creates or replaces a setting.
func (r *MongoSettingsRepository) Upsert(ctx context.Context, s *settings.Setting) error {
	doc := settingToDocument(s)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}

	r.logger.Debug("Setting saved", "key", s.Key)
	return nil
}

// Delete removes a setting by key.
func (r *MongoSettingsRepository) Delete(ctx context.Context, key string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}

	r.logger.Debug("Setting deleted", "key", key, "existed", result.DeletedCount > 0)
	return nil
}

func documentToSetting(doc *settingDocument) *settings.Setting {
	return &settings.Setting{
		Key:       doc.Key,
		Value:     json.RawMessage(doc.Value),
		UpdatedAt: doc.UpdatedAt,
	}
}

func settingToDocument(s *settings.Setting) *settingDocument {
	return &settingDocument{
		Key:       s.Key,
		Value:     string(s.Value),
		UpdatedAt: s.UpdatedAt,
	}
}
