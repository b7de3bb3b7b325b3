// Package firebase builds the Firebase Admin SDK clients the server depends on.
// Clients is passed explicitly to the components that need it; there are no globals.
package firebase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/config"
)

// Clients groups the initialized Firebase clients.
type Clients struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *auth.Client
	Storage   *storage.Client
}

// credentialsOption picks the credentials source: a service account file, a base64
// encoded service account JSON, or Application Default Credentials (nil option).
func credentialsOption(cfg *config.Config, logger *zap.Logger) (option.ClientOption, error) {
	if cfg.GoogleApplicationCredentials != "" {
		if _, err := os.Stat(cfg.GoogleApplicationCredentials); os.IsNotExist(err) {
			logger.Warn("Credentials file specified in GOOGLE_APPLICATION_CREDENTIALS does not exist",
				zap.String("path", cfg.GoogleApplicationCredentials))
		}
		logger.Info("Initializing Firebase with credentials file", zap.String("path", cfg.GoogleApplicationCredentials))
		return option.WithCredentialsFile(cfg.GoogleApplicationCredentials), nil
	}
	if cfg.FirebaseServiceAccountJSONBase64 != "" {
		jsonKey, err := base64.StdEncoding.DecodeString(cfg.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, errors.New("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is not a valid base64 string")
		}
		logger.Info("Initializing Firebase with Base64 encoded service account JSON")
		return option.WithCredentialsJSON(jsonKey), nil
	}
	logger.Info("Initializing Firebase using Application Default Credentials (ADC)")
	return nil, nil
}

// NewClients initializes the Firebase app and the clients selected by cfg.
// Firestore is created only for the firestore store backend and Storage only for the
// firebase blob backend; Auth is always created because token verification and the
// anonymous identity depend on it.
func NewClients(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Clients, error) {
	if cfg == nil {
		return nil, errors.New("firebase: config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	credsOption, err := credentialsOption(cfg, logger)
	if err != nil {
		return nil, err
	}
	conf := &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.FirebaseStorageBucket,
	}

	var opts []option.ClientOption
	if credsOption != nil {
		opts = append(opts, credsOption)
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	c := &Clients{App: app}

	c.Auth, err = app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Auth: %w", err)
	}
	logger.Info("Firebase Auth client initialized successfully")

	if cfg.StoreBackend == config.StoreFirestore {
		c.Firestore, err = app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("app.Firestore: %w", err)
		}
		logger.Info("Firestore client initialized successfully")
	}

	if cfg.BlobBackend == config.BlobFirebase {
		c.Storage, err = app.Storage(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("app.Storage: %w", err)
		}
		logger.Info("Firebase Storage client initialized successfully", zap.String("bucket", cfg.FirebaseStorageBucket))
	}
	return c, nil
}

// Bucket returns the handle of the configured storage bucket.
func (c *Clients) Bucket(name string) (*gcs.BucketHandle, error) {
	if c == nil || c.Storage == nil {
		return nil, errors.New("firebase: storage client not initialized")
	}
	if name == "" {
		return c.Storage.DefaultBucket()
	}
	return c.Storage.Bucket(name)
}

// Close releases the Firestore client. Auth and Storage hold no resources to release.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
