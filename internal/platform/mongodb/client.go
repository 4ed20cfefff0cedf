// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mongodb provides a managed client for the document database backend.

It is the infrastructure half of the primary store: the package owns connection
construction and the single bounded-timeout reachability probe performed at
startup. Whether the database is actually used afterwards is decided one layer
up, by the storage selector.

Core Responsibilities:

  - Probing: One ping with a hard deadline; an unreachable server is reported
    to the caller, never retried in a loop.
  - Pooling: Connection pool management is delegated to the official driver.
  - Silence: No business logic, no collection knowledge.
*/
package mongodb

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Opinionated default timeouts for MongoDB connectivity.
const (
	// serverSelectionTimeout bounds how long the driver hunts for a usable server.
	serverSelectionTimeout = 5 * time.Second
	// connectTimeout bounds the TCP/TLS handshake per server.
	connectTimeout = 5 * time.Second
	// pingTimeout is the deadline for the startup reachability probe.
	pingTimeout = 5 * time.Second
)

// NewClient connects to MongoDB and verifies reachability with one bounded probe.
//
// # Parameters
//   - context: Context for the initial ping.
//   - uri: MongoDB connection string.
//   - logger: Structured logger for connection events.
//
// # Returns
//   - A connected client, or an error when the server cannot be reached within
//     the probe deadline. The caller treats that error as a backend-selection
//     signal, not a fatal condition.
func NewClient(context stdctx.Context, uri string, logger *slog.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb: invalid client configuration: %w", err)
	}

	// Validate connectivity immediately at startup.
	if err := Ping(context, client); err != nil {
		disconnectCtx, cancel := stdctx.WithTimeout(stdctx.Background(), connectTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	logger.Info("mongodb client connected")

	return client, nil
}

// Ping verifies that the MongoDB deployment is reachable.
func Ping(context stdctx.Context, client *mongo.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb: ping failed: %w", err)
	}

	return nil
}
