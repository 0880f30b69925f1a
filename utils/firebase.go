// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"servicehub/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FirebaseApp is shared by the Firestore store and the FCM client.
var FirebaseApp *firebase.App

// FirebaseInit initializes the Firebase App from the configured service account.
func FirebaseInit(ctx context.Context) (*firebase.App, error) {
	if FirebaseApp != nil {
		return FirebaseApp, nil
	}
	opt := option.WithCredentialsFile(config.AppConfig.FirebaseCredentialsFile)

	var fbConfig *firebase.Config
	if config.AppConfig.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: config.AppConfig.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	FirebaseApp = app
	return app, nil
}

// MessagingClient returns an FCM client for the initialized app.
func MessagingClient(ctx context.Context) (*messaging.Client, error) {
	app, err := FirebaseInit(ctx)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}
	return client, nil
}
