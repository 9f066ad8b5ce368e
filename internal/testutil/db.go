// Package testutil holds MongoDB, HTTP and blob-storage helpers shared by
// store and handler tests.
package testutil

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vicarhk/vicarapi/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TestDBURIEnv overrides the MongoDB URI used by tests.
const TestDBURIEnv = "VICAR_TEST_MONGO_URI"

const (
	defaultTestURI = "mongodb://localhost:27017"
	dbPrefix       = "vicar_test_"
	// Mongo database names are capped at 63 bytes.
	maxDBName = 63
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func testURI() string {
	if uri := strings.TrimSpace(os.Getenv(TestDBURIEnv)); uri != "" {
		return uri
	}
	return defaultTestURI
}

// sharedClient connects once per test binary.
func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		opts := options.Client().
			ApplyURI(testURI()).
			SetMaxPoolSize(100).
			SetServerSelectionTimeout(5 * time.Second)

		client, clientErr = mongo.Connect(ctx, opts)
		if clientErr != nil {
			return
		}
		clientErr = client.Ping(ctx, nil)
	})
	return client, clientErr
}

// SetupTestDB returns an empty database private to t with the production
// indexes in place, so unique (page, slotIndex) and username rules apply.
// The test is skipped when MongoDB cannot be reached. The database is
// dropped on cleanup.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", testURI(), err)
	}

	db := c.Database(DBName(t.Name()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})
	return db
}

// DBName maps a test name to a valid, unique database name. Long names are
// truncated and suffixed with a hash of the full name so subtests with a
// shared prefix do not collide.
func DBName(testName string) string {
	var b strings.Builder
	for _, r := range testName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := dbPrefix + b.String()
	if len(name) <= maxDBName {
		return name
	}
	sum := sha1.Sum([]byte(testName))
	suffix := "_" + hex.EncodeToString(sum[:])[:8]
	return name[:maxDBName-len(suffix)] + suffix
}

// TestContext returns a context suitable for a single store call in tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
