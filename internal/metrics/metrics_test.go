package metrics_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"fontwatch/internal/logger"
	"fontwatch/internal/metrics"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(family, status string) *metrics.DetectionSnapshot {
	return &metrics.DetectionSnapshot{
		Timestamp:  time.Now(),
		Family:     family,
		Variation:  "n4",
		Status:     status,
		DurationMs: 325,
		Polls:      14,
		TimeoutMs:  5000,
		IntervalMs: 25,
		TestString: "BESbswy",
	}
}

func TestRepositoryPersistsDetections(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	cfg := metrics.Config{
		DBPath:       dbPath,
		BatchSize:    2,
		BatchTimeout: 60,
		Enabled:      true,
	}

	repo, err := metrics.NewRepository(cfg, logger.Default())
	require.NoError(t, err)

	require.NoError(t, repo.Record(testSnapshot("Open Sans", "active")))
	require.NoError(t, repo.Record(testSnapshot("Lora", "inactive")))
	require.NoError(t, repo.Record(testSnapshot("Roboto", "active")))

	// The last record is still buffered; Close flushes it.
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM detections").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var family, status string
	err = db.QueryRow(`
        SELECT family, status FROM detections ORDER BY id LIMIT 1
    `).Scan(&family, &status)
	require.NoError(t, err)
	assert.Equal(t, "Open Sans", family)
	assert.Equal(t, "active", status)

	version, err := metrics.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, metrics.SchemaVersion, version)
}

func TestRepositoryFlushesOnBatchThreshold(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	cfg := metrics.Config{
		DBPath:       dbPath,
		BatchSize:    2,
		BatchTimeout: 60,
		Enabled:      true,
	}

	repo, err := metrics.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Record(testSnapshot("Open Sans", "active")))
	require.NoError(t, repo.Record(testSnapshot("Lora", "inactive")))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM detections").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewServiceDisabledReturnsNoop(t *testing.T) {
	collector, err := metrics.NewService(metrics.DefaultConfig(), logger.Default())
	require.NoError(t, err)

	assert.NoError(t, collector.Record(context.Background(), testSnapshot("Open Sans", "active")))
	assert.NoError(t, collector.Close())
}

func TestServiceRejectsNilSnapshot(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "metrics.db")

	collector, err := metrics.NewService(cfg, logger.Default())
	require.NoError(t, err)
	defer collector.Close()

	err = collector.Record(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics_invalid_snapshot")
}

func TestServiceRecordHonorsContext(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "metrics.db")

	collector, err := metrics.NewService(cfg, logger.Default())
	require.NoError(t, err)
	defer collector.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = collector.Record(ctx, testSnapshot("Open Sans", "active"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.Config{Enabled: true}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics_invalid_db_path")

	cfg = metrics.Config{Enabled: false}
	assert.NoError(t, cfg.Validate())
}
