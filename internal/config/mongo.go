package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Videos collection indexes
	videosCollection := db.Collection("videos")
	videoIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "course_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "uploaded_at", Value: -1}},
		},
	}
	_, err := videosCollection.Indexes().CreateMany(context.Background(), videoIndexes)
	if err != nil {
		return err
	}

	// Segments collection indexes: interval queries filter on video_id and
	// both time bounds, ordering is always by start_time.
	segmentsCollection := db.Collection("segments")
	segmentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "video_id", Value: 1}, {Key: "start_time", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "video_id", Value: 1}, {Key: "end_time", Value: 1}},
		},
	}
	_, err = segmentsCollection.Indexes().CreateMany(context.Background(), segmentIndexes)
	if err != nil {
		return err
	}

	return nil
}
