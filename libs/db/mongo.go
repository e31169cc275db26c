package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Client struct {
	*mongo.Client
	database string
}

func Open(ctx context.Context, uri string, database string) (*Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Client{Client: client, database: database}, nil
}

func (c *Client) Collection(name string) *mongo.Collection {
	return c.Database(c.database).Collection(name)
}

func (c *Client) Close(ctx context.Context) {
	if c != nil && c.Client != nil {
		_ = c.Disconnect(ctx)
	}
}

func ReadyCheck(c *Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if c == nil || c.Client == nil {
			return errors.New("db not configured")
		}
		return c.Ping(ctx, readpref.Primary())
	}
}
