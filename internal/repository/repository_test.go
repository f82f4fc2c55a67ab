package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"invoice-pipeline/pkg/database"
)

func newTestDB(t *testing.T) {
	t.Helper()
	db := database.Init(t.TempDir(), "")
	require.NoError(t, database.Migrate(db))
}
