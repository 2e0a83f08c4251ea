// Package mongostore connects the document-store backend used when the
// server runs with STORE_DRIVER=mongo.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/clinicbook/clinic/internal/platform/db"
)

type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store owns the client and the clinic database handle.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(opts.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{client: client, database: client.Database(opts.Database)}, nil
}

func (s *Store) Database() *mongo.Database { return s.database }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Check exposes the store to the health endpoint.
func (s *Store) Check() db.Check {
	return db.Check{Name: "mongo", Ping: s.Ping}
}

// IndexSpec is one index the application relies on for uniqueness or lookup.
type IndexSpec struct {
	Collection string
	Keys       bson.D
	Unique     bool
}

// Indexes lists the indexes EnsureIndexes creates. The unique ones back the
// duplicate-booking and duplicate-transaction guarantees.
func Indexes() []IndexSpec {
	return []IndexSpec{
		{Collection: "users", Keys: bson.D{{Key: "email", Value: 1}}, Unique: true},
		{Collection: "users", Keys: bson.D{{Key: "role", Value: 1}}},
		{Collection: "services", Keys: bson.D{{Key: "name", Value: 1}}, Unique: true},
		{Collection: "bookings", Keys: bson.D{
			{Key: "treatment", Value: 1},
			{Key: "date", Value: 1},
			{Key: "patient", Value: 1},
		}, Unique: true},
		{Collection: "bookings", Keys: bson.D{{Key: "date", Value: 1}}},
		{Collection: "bookings", Keys: bson.D{{Key: "doctor", Value: 1}}},
		{Collection: "payments", Keys: bson.D{{Key: "transactionId", Value: 1}}, Unique: true},
	}
}

// EnsureIndexes creates every index from Indexes. Creating an index that
// already exists with the same definition is a no-op on the server.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	byCollection := make(map[string][]mongo.IndexModel)
	var order []string
	for _, ix := range Indexes() {
		if _, ok := byCollection[ix.Collection]; !ok {
			order = append(order, ix.Collection)
		}
		model := mongo.IndexModel{Keys: ix.Keys}
		if ix.Unique {
			model.Options = options.Index().SetUnique(true)
		}
		byCollection[ix.Collection] = append(byCollection[ix.Collection], model)
	}

	for _, name := range order {
		if _, err := s.database.Collection(name).Indexes().CreateMany(ctx, byCollection[name]); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
