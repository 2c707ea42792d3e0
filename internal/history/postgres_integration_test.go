//go:build integration
// +build integration

package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoapply/internal/types"
)

func setupTestDB(t *testing.T) *PostgresStore {
	dbURL := os.Getenv("AUTOAPPLY_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: AUTOAPPLY_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := ConnectPostgres(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	return s
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	url := "https://boards.greenhouse.io/it-" + uuid.NewString() + "/jobs/1"

	applied, err := s.Applied(ctx, url)
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, s.Record(ctx, types.ApplicationResult{
		JobURL: url, Platform: types.PlatformGreenhouse, Status: types.StatusSubmitted,
		Success: true, ConfirmationID: "GH-1", Duration: 2 * time.Second,
	}))

	applied, err = s.Applied(ctx, url+"#apply")
	require.NoError(t, err)
	assert.True(t, applied)

	entries, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, url, entries[0].JobURL)
	assert.Equal(t, 2*time.Second, entries[0].Duration)
}
