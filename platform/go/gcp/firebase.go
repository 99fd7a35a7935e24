package gcp

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const (
	// CredentialsPathEnv points at a service account JSON file for local runs.
	CredentialsPathEnv = "FIREBASE_CONFIG"
	// ProjectEnv overrides the Google Cloud project.
	ProjectEnv = "GCLOUD_PROJECT"
)

func credentialsPath() *string {
	if path, found := os.LookupEnv(CredentialsPathEnv); found && path != "" {
		return &path
	}
	return nil
}

// GetApp creates a Firebase App instance, using a credentials file when one is configured.
func GetApp(ctx context.Context, pathToJson *string) (*firebase.App, error) {
	var cfg *firebase.Config
	if project := os.Getenv(ProjectEnv); project != "" {
		cfg = &firebase.Config{ProjectID: project}
	}

	if pathToJson != nil {
		return firebase.NewApp(ctx, cfg, option.WithCredentialsFile(*pathToJson))
	}
	return firebase.NewApp(ctx, cfg)
}

// InitFirebaseAuth initializes the Firebase App and returns an Auth client.
func InitFirebaseAuth(ctx context.Context) (*firebase.App, *firebaseauth.Client, error) {
	app, err := GetApp(ctx, credentialsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	fbAuth, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}

	return app, fbAuth, nil
}

// InitFirestore returns a Firestore client from an initialized app. Callers close it.
func InitFirestore(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore [%w]", err)
	}
	return client, nil
}
