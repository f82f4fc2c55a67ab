package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nowMinusDays(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

func newTestSupervisor(t *testing.T, liveDBPath string) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	opts := Options{
		Prefix:              "invoices",
		BackupPath:          dir,
		IntervalHours:       24,
		RetentionDays:       30,
		CompressThresholdMB: 5,
		LiveDBPath:          func() string { return liveDBPath },
	}
	return NewSupervisor(opts, zap.NewNop())
}

func TestCreateSnapshot_CopiesLiveFile(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "invoices.db")
	require.NoError(t, os.WriteFile(dbFile, []byte("sqlite-data"), 0644))

	sup := newTestSupervisor(t, dbFile)
	snap, err := sup.CreateSnapshot()
	require.NoError(t, err)

	assert.False(t, snap.Compressed)
	data, err := os.ReadFile(snap.Path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite-data", string(data))
}

func TestCreateSnapshot_CompressesAboveThreshold(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "invoices.db")
	big := make([]byte, 6*1024*1024)
	require.NoError(t, os.WriteFile(dbFile, big, 0644))

	sup := newTestSupervisor(t, dbFile)
	snap, err := sup.CreateSnapshot()
	require.NoError(t, err)

	assert.True(t, snap.Compressed)
	assert.True(t, filepath_hasSuffix(snap.Name, ".db.gz"))
}

func TestCreateSnapshot_MissingLiveFileErrors(t *testing.T) {
	sup := newTestSupervisor(t, filepath.Join(t.TempDir(), "missing.db"))
	_, err := sup.CreateSnapshot()
	assert.Error(t, err)
}

func TestCleanup_RemovesExpiredSnapshots(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "invoices-2020-01-01T00-00-00Z.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	oldTime := nowMinusDays(400)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))

	opts := Options{Prefix: "invoices", BackupPath: dir, RetentionDays: 30, LiveDBPath: func() string { return "" }}
	sup := NewSupervisor(opts, zap.NewNop())

	removed, err := sup.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, statErr := os.Stat(old)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRestore_CreatesPreRestoreSnapshotAndSwapsFile(t *testing.T) {
	dir := t.TempDir()
	liveDB := filepath.Join(dir, "live.db")
	require.NoError(t, os.WriteFile(liveDB, []byte("old-data"), 0644))

	opts := Options{Prefix: "invoices", BackupPath: dir, LiveDBPath: func() string { return liveDB }}
	sup := NewSupervisor(opts, zap.NewNop())

	backupName := "invoices-2024-01-01T00-00-00Z.db"
	require.NoError(t, os.WriteFile(filepath.Join(dir, backupName), []byte("restored-data"), 0644))

	result, err := sup.Restore(backupName)
	require.NoError(t, err)
	assert.Equal(t, backupName, result.RestoredFrom)
	assert.NotEmpty(t, result.PreRestoreSnapshot)

	data, err := os.ReadFile(liveDB)
	require.NoError(t, err)
	assert.Equal(t, "restored-data", string(data))

	preData, err := os.ReadFile(filepath.Join(dir, result.PreRestoreSnapshot))
	require.NoError(t, err)
	assert.Equal(t, "old-data", string(preData))
}

func filepath_hasSuffix(name, suffix string) bool {
	if len(name) < len(suffix) {
		return false
	}
	return name[len(name)-len(suffix):] == suffix
}
