package mongo

import (
	"context"
	"errors"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config describes the document store. An empty URL selects the in-memory store.
type Config struct {
	URL      string `envconfig:"MONGO_URL"`
	Database string `envconfig:"MONGO_DATABASE" default:"kairon"`
	Timeout  int    `envconfig:"MONGO_TIMEOUT" default:"5"`
}

// Enabled reports whether a Mongo URL was configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// New connects to MongoDB and verifies the primary is reachable.
func (c *Config) New(ctx context.Context) (*mongodriver.Client, error) {
	if c.URL == "" {
		return nil, errors.New("mongo url is required")
	}
	timeout := time.Duration(c.Timeout) * time.Second
	opts := options.Client().
		ApplyURI(c.URL).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongodriver.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
