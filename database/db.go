package database

import (
	"context"
	"fmt"
	"time"

	"servicehub/config"
	"servicehub/store"
	"servicehub/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient is the global MongoDB client instance.
var MongoClient *mongo.Client

// InitDB initializes the MongoDB connection.
func InitDB(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.AppConfig.DatabaseURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	MongoClient = client
	utils.GetLogger().Info("Connected to MongoDB successfully!")
	return nil
}

// OpenStore connects the configured backend and returns it as a store.Store.
func OpenStore(ctx context.Context) (store.Store, error) {
	timeout := config.AppConfig.StoreTimeout
	switch config.AppConfig.StoreBackend {
	case "", "mongo":
		if err := InitDB(ctx); err != nil {
			return nil, err
		}
		return store.NewMongoStore(MongoClient, config.AppConfig.DatabaseName, timeout), nil
	case "firestore":
		app, err := utils.FirebaseInit(ctx)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
		}
		return store.NewFirestoreStore(client, timeout), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.AppConfig.StoreBackend)
	}
}
