// internal/testutil/db.go
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// SetupTestDB connects to the Mongo instance named by MAKTABHUB_TEST_MONGO_URI
// (default mongodb://localhost:27017) and returns a fresh database that is
// dropped when the test finishes. Tests are skipped when no server is
// reachable, so the suite runs without external services.
//
// Transactional tests need the server to be a replica set (a single-node
// replica set is fine for local runs).
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MAKTABHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("skipping: cannot create mongo client: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("skipping: no test mongo at %s: %v", uri, err)
	}

	db := client.Database(fmt.Sprintf("maktabhub_test_%d", time.Now().UnixNano()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}

// TestContext returns a context with a generous timeout for test database
// operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// RequireReplicaSet skips the test unless the server supports
// multi-document transactions (i.e. it is a replica set member). Atomicity
// and lost-update tests are meaningless against the standalone fallback.
func RequireReplicaSet(t *testing.T, db *mongo.Database) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var hello struct {
		SetName string `bson:"setName"`
	}
	res := db.Client().Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}})
	if err := res.Decode(&hello); err != nil {
		t.Skipf("skipping: cannot inspect server topology: %v", err)
	}
	if hello.SetName == "" {
		t.Skip("skipping: test mongo is not a replica set; transactions unavailable")
	}
}
