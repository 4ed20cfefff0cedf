// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// # Database Store

// MongoStore persists users and sessions in two MongoDB collections using the
// same canonical document shape as the file store.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
	log      *slog.Logger
}

/*
NewMongoStore initializes the database backend and ensures its indexes.

Unique indexes on username, email and token make the database the enforcement
point for identity uniqueness; secondary indexes on expires_at and created_at
back the expiry sweep and listing queries. Index creation failures are logged
and tolerated so an under-privileged connection still serves traffic.

Parameters:
  - ctx: bounds the index creation round-trips.
  - client: a connected MongoDB client.
  - database: the database name.
  - usersCollection, sessionsCollection: collection names.
  - log: structured logger for store diagnostics.

Returns:
  - *MongoStore: the ready store.
*/
func NewMongoStore(
	ctx context.Context,
	client *mongo.Client,
	database, usersCollection, sessionsCollection string,
	log *slog.Logger,
) *MongoStore {
	store := &MongoStore{
		client:   client,
		users:    client.Database(database).Collection(usersCollection),
		sessions: client.Database(database).Collection(sessionsCollection),
		log:      log.With("store", "mongodb"),
	}
	store.ensureIndexes(ctx)
	return store
}

func (store *MongoStore) ensureIndexes(ctx context.Context) {
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}
	if _, err := store.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		store.log.Warn("could not ensure user indexes", "error", err)
	}

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	}
	if _, err := store.sessions.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		store.log.Warn("could not ensure session indexes", "error", err)
	}
}

// Name identifies the backend in logs and health output.
func (store *MongoStore) Name() string { return "mongodb" }

// Ping verifies the deployment is still reachable.
func (store *MongoStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// # User Records

func (store *MongoStore) CreateUser(ctx context.Context, user *User) error {
	document := encodeUser(user, true, time.Now())
	if _, err := store.users.InsertOne(ctx, bson.M(document)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateUser()
		}
		return fmt.Errorf("%w: insert user: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (store *MongoStore) GetUser(ctx context.Context, username string) (*User, error) {
	var document bson.M
	err := store.users.FindOne(ctx, bson.M{"username": username}).Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrBackendUnavailable, err)
	}
	user, err := decodeUser(document, username)
	if err != nil {
		store.log.Error("skipping malformed user record", "username", username, "error", err)
		return nil, errUserNotFound()
	}
	return user, nil
}

func (store *MongoStore) UpdateUser(ctx context.Context, user *User) error {
	document := encodeUser(user, true, time.Now())
	delete(document, fieldRecordCreatedAt) // Creation bookkeeping survives updates.

	result, err := store.users.UpdateOne(ctx,
		bson.M{"username": user.Username},
		bson.M{"$set": bson.M(document)},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateUser()
		}
		return fmt.Errorf("%w: update user: %v", ErrBackendUnavailable, err)
	}
	if result.MatchedCount == 0 {
		return errUserNotFound()
	}
	return nil
}

func (store *MongoStore) ListUsers(ctx context.Context) ([]*User, error) {
	cursor, err := store.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrBackendUnavailable, err)
	}
	var documents []bson.M
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, fmt.Errorf("%w: read users: %v", ErrBackendUnavailable, err)
	}
	users := make([]*User, 0, len(documents))
	for _, document := range documents {
		user, err := decodeUser(document, "")
		if err != nil {
			store.log.Error("skipping malformed user record", "error", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// # Session Records

func (store *MongoStore) CreateSession(ctx context.Context, session *Session) error {
	document := encodeSession(session, true, time.Now())
	if _, err := store.sessions.InsertOne(ctx, bson.M(document)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateSession()
		}
		return fmt.Errorf("%w: insert session: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (store *MongoStore) GetSession(ctx context.Context, token string) (*Session, error) {
	var document bson.M
	err := store.sessions.FindOne(ctx, bson.M{"token": token}).Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errSessionNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find session: %v", ErrBackendUnavailable, err)
	}
	session, err := decodeSession(document, token)
	if err != nil {
		store.log.Error("skipping malformed session record", "error", err)
		return nil, errSessionNotFound()
	}
	return session, nil
}

func (store *MongoStore) UpdateSession(ctx context.Context, session *Session) error {
	document := encodeSession(session, true, time.Now())
	delete(document, fieldRecordCreatedAt)

	result, err := store.sessions.UpdateOne(ctx,
		bson.M{"token": session.Token},
		bson.M{"$set": bson.M(document)},
	)
	if err != nil {
		return fmt.Errorf("%w: update session: %v", ErrBackendUnavailable, err)
	}
	if result.MatchedCount == 0 {
		return errSessionNotFound()
	}
	return nil
}

func (store *MongoStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := store.sessions.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (store *MongoStore) DeleteUserSessions(ctx context.Context, username string) (int, error) {
	result, err := store.sessions.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		return 0, fmt.Errorf("%w: delete user sessions: %v", ErrBackendUnavailable, err)
	}
	return int(result.DeletedCount), nil
}

func (store *MongoStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	// Fixed-width UTC timestamps compare lexicographically, so a string
	// range filter selects exactly the expired sessions.
	result, err := store.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": encodeTime(now)}})
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %v", ErrBackendUnavailable, err)
	}
	return int(result.DeletedCount), nil
}

func (store *MongoStore) ListSessions(ctx context.Context) ([]*Session, error) {
	cursor, err := store.sessions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrBackendUnavailable, err)
	}
	var documents []bson.M
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, fmt.Errorf("%w: read sessions: %v", ErrBackendUnavailable, err)
	}
	sessions := make([]*Session, 0, len(documents))
	for _, document := range documents {
		session, err := decodeSession(document, "")
		if err != nil {
			store.log.Error("skipping malformed session record", "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
