// Package dbtest backs tests with a disposable MongoDB server. One container
// is started per test binary and every caller gets a database of its own.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/database"
)

const image = "mongo:7.0"

var (
	once      sync.Once
	container *mongodb.MongoDBContainer
	uri       string
	startErr  error
)

// Open connects to a fresh database with the production indexes in place.
// The database is dropped when t finishes. Without a container runtime, or
// under -short, the test is skipped.
func Open(t *testing.T) *database.DBClient {
	t.Helper()
	if testing.Short() {
		t.Skip("MongoDB tests need a container runtime")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	once.Do(start)
	require.NoError(t, startErr, "starting %s", image)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	name := "natours_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db, err := database.NewMongoClient(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), uri, name)
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(ctx))
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.OpenCollection(constants.TourCollection).Database().Drop(ctx)
		_ = db.Disconnect(ctx)
	})
	return db
}

func start() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	container, startErr = mongodb.Run(ctx, image)
	if startErr != nil {
		return
	}
	uri, startErr = container.ConnectionString(ctx)
}

// Terminate stops the shared server. Call it from TestMain once m.Run returns.
func Terminate() {
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}
