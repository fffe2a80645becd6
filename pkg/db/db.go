package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"podscribe/pkg/domain"
)

// DefaultCollection holds one document per transcribed audio file.
const DefaultCollection = "podcast_transcripts"

var errNotConnected = errors.New("collection not initialized")

// Client wraps the MongoDB client and the transcripts collection
type Client struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
}

// NewClient creates a new database client. The driver connects lazily; call Connect to
// verify the server is reachable.
func NewClient(connectionString, databaseName, collectionName string) (*Client, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("mongo connection string is required")
	}
	if collectionName == "" {
		collectionName = DefaultCollection
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}

	return &Client{
		mongoClient: mongoClient,
		collection:  mongoClient.Database(databaseName).Collection(collectionName),
	}, nil
}

// Connect verifies the connection to MongoDB
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SavePodcastTranscript upserts a transcript, keyed by its audio filename
func (c *Client) SavePodcastTranscript(ctx context.Context, t *domain.PodcastTranscript) error {
	if c.collection == nil {
		return errNotConnected
	}

	filter := bson.M{"audio_file": t.AudioFile}
	update := bson.M{"$set": t}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetTranscribedAudioFiles returns the audio filenames that already have a complete
// transcript stored, as a set
func (c *Client) GetTranscribedAudioFiles(ctx context.Context) (map[string]bool, error) {
	if c.collection == nil {
		return nil, errNotConnected
	}

	cursor, err := c.collection.Find(ctx,
		bson.M{"partial": bson.M{"$ne": true}},
		options.Find().SetProjection(bson.M{"audio_file": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer cursor.Close(ctx)

	files := make(map[string]bool)
	for cursor.Next(ctx) {
		var result struct {
			AudioFile string `bson:"audio_file"`
		}
		if err := cursor.Decode(&result); err != nil {
			continue // Skip invalid documents
		}
		if result.AudioFile != "" {
			files[result.AudioFile] = true
		}
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return files, nil
}

// EnsureIndexes creates the unique index on audio_file
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if c.collection == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "audio_file", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
