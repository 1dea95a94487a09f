package workers

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moonhole0512/TagGallery-Web/media"
	"github.com/moonhole0512/TagGallery-Web/models"
	"github.com/moonhole0512/TagGallery-Web/repository"
)

func newTestRepository(t *testing.T) *repository.ImageRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// every pooled connection to :memory: would open its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Image{}))
	return repository.NewImageRepository(db)
}

func writePlainPNG(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func countRecords(t *testing.T, repo *repository.ImageRepository) int64 {
	t.Helper()
	var count int64
	require.NoError(t, repo.DB.Model(&models.Image{}).Count(&count).Error)
	return count
}

func TestRunScan(t *testing.T) {
	a := assert.New(t)
	repo := newTestRepository(t)
	s := &Scanner{Repo: repo}

	src := t.TempDir()
	dest := t.TempDir()
	modTime := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

	writePlainPNG(t, filepath.Join(src, "one.png"), modTime)
	writePlainPNG(t, filepath.Join(src, "two.png"), modTime)
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("not an image"), 0644))

	s.runScan(ScanJob{RunID: uuid.New(), SourceDir: src, DestDir: dest})

	a.EqualValues(2, countRecords(t, repo))
	for _, name := range []string{"one.png", "two.png"} {
		_, err := os.Stat(filepath.Join(dest, media.PlatformUnknown, "250314", name))
		a.NoError(err, "%s should be relocated", name)
		_, err = os.Stat(filepath.Join(src, name))
		a.True(os.IsNotExist(err), "%s should be gone from the source", name)
	}
	_, err := os.Stat(filepath.Join(src, "notes.txt"))
	a.NoError(err, "non-image files must be left alone")

	t.Run("rescan of duplicates changes nothing", func(t *testing.T) {
		writePlainPNG(t, filepath.Join(src, "one.png"), modTime)
		s.runScan(ScanJob{RunID: uuid.New(), SourceDir: src, DestDir: dest})

		a.EqualValues(2, countRecords(t, repo))
		_, err := os.Stat(filepath.Join(src, "one.png"))
		a.NoError(err, "duplicate source must stay in place")
	})

	t.Run("unreadable source tree processes nothing", func(t *testing.T) {
		before := countRecords(t, repo)
		s.runScan(ScanJob{RunID: uuid.New(), SourceDir: filepath.Join(src, "missing"), DestDir: dest})
		a.Equal(before, countRecords(t, repo))
	})
}

func TestQueueScan_SingleFlight(t *testing.T) {
	a := assert.New(t)
	// no worker draining the queue, so the first job stays in flight
	s := &Scanner{Repo: newTestRepository(t), JobQueue: make(chan ScanJob, 4)}

	runID, ok := s.QueueScan("/src", "/dest")
	a.True(ok)
	a.NotEqual(uuid.Nil, runID)

	_, ok = s.QueueScan("/src", "/dest")
	a.False(ok, "a second scan must be refused while one is in flight")
}

func TestScannerEndToEnd(t *testing.T) {
	a := assert.New(t)
	repo := newTestRepository(t)
	s := NewScanner(repo, nil, 4)
	defer s.Stop()

	src := t.TempDir()
	dest := t.TempDir()
	writePlainPNG(t, filepath.Join(src, "e2e.png"), time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local))

	_, ok := s.QueueScan(src, dest)
	require.True(t, ok)

	deadline := time.Now().Add(5 * time.Second)
	for {
		s.Mutex.Lock()
		running := s.running
		s.Mutex.Unlock()
		if !running {
			break
		}
		require.True(t, time.Now().Before(deadline), "scan did not finish in time")
		time.Sleep(10 * time.Millisecond)
	}

	a.EqualValues(1, countRecords(t, repo))
	_, err := os.Stat(filepath.Join(dest, media.PlatformUnknown, "250102", "e2e.png"))
	a.NoError(err)
}
