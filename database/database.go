package database

import (
	"context"
	"fmt"
	"time"

	"qbank/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DB bundles the client (for sessions) with the question bank database.
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func Connect(ctx context.Context, uri, name string, timeout time.Duration) (*DB, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &DB{Client: client, Database: client.Database(name)}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

func OpenCollection(db *DB, collectionName string) *mongo.Collection {
	return db.Database.Collection(collectionName)
}

// WithTransaction runs fn inside a transaction on a fresh session. The
// transaction commits when fn returns nil and aborts otherwise; the session is
// always ended. fn must issue every operation with the SessionContext it gets.
func (db *DB) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := db.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(context.Background())
			return err
		}
		if err := sc.CommitTransaction(sc); err != nil {
			_ = sc.AbortTransaction(context.Background())
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// EnsureIndexes creates the indexes the question bank relies on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := OpenCollection(db, models.SubjectCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("subjects index: %w", err)
	}

	_, err = OpenCollection(db, models.UnitCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "subjectId", Value: 1}, {Key: "unit", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("units index: %w", err)
	}

	for _, kind := range models.Kinds {
		_, err := OpenCollection(db, kind.Collection()).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "unitId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "subjectId", Value: 1}}},
		})
		if err != nil {
			return fmt.Errorf("%s indexes: %w", kind.Collection(), err)
		}
	}
	return nil
}
