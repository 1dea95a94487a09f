package workers

import (
	"encoding/json"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/facette/natsort"
	"github.com/google/uuid"

	"github.com/moonhole0512/TagGallery-Web/media"
	"github.com/moonhole0512/TagGallery-Web/models"
	"github.com/moonhole0512/TagGallery-Web/repository"
	"github.com/moonhole0512/TagGallery-Web/utils"
)

type ScanJob struct {
	RunID     uuid.UUID
	SourceDir string
	DestDir   string
}

// Scanner is the ingest orchestrator: it walks a source tree in the
// background and runs extract -> classify -> catalog per file. Files are
// processed strictly one at a time; the stealth codec is CPU-bound per
// pixel and relocation does exclusive moves, so a single worker keeps the
// decoder single-threaded with no synchronization inside it.
type Scanner struct {
	JobQueue chan ScanJob
	Repo     repository.ImageRepositoryInterface
	ThumbGen *ThumbnailGenerator
	Wg       sync.WaitGroup
	StopChan chan struct{}
	running  bool
	Mutex    sync.Mutex
}

func NewScanner(repo repository.ImageRepositoryInterface, thumbGen *ThumbnailGenerator, queueSize int) *Scanner {
	if queueSize <= 0 {
		queueSize = 1
	}
	s := &Scanner{
		JobQueue: make(chan ScanJob, queueSize),
		Repo:     repo,
		ThumbGen: thumbGen,
		StopChan: make(chan struct{}),
	}
	s.Wg.Add(1)
	go s.worker()
	log.Printf("Started scan worker with queue size %d", queueSize)
	return s
}

func (s *Scanner) worker() {
	defer s.Wg.Done()
	for {
		select {
		case job, ok := <-s.JobQueue:
			if !ok {
				log.Printf("Scan worker stopping: job queue closed")
				return
			}
			s.runScan(job)
			s.Mutex.Lock()
			s.running = false
			s.Mutex.Unlock()

		case <-s.StopChan:
			log.Printf("Scan worker stopping: stop signal received")
			return
		}
	}
}

// QueueScan starts a background scan unless one is already in flight.
// Two concurrent scans must never race over the same destination root.
func (s *Scanner) QueueScan(sourceDir, destDir string) (uuid.UUID, bool) {
	s.Mutex.Lock()
	if s.running {
		s.Mutex.Unlock()
		log.Printf("Scan already in progress, refusing to queue another")
		return uuid.Nil, false
	}
	s.running = true
	s.Mutex.Unlock()

	job := ScanJob{RunID: uuid.New(), SourceDir: sourceDir, DestDir: destDir}
	select {
	case s.JobQueue <- job:
		log.Printf("Scan %s: queued for %s -> %s", job.RunID, sourceDir, destDir)
		return job.RunID, true
	default:
		s.Mutex.Lock()
		s.running = false
		s.Mutex.Unlock()
		log.Printf("WARNING: scan job queue full, failed to queue scan of %s", sourceDir)
		return uuid.Nil, false
	}
}

// runScan walks the source tree and ingests every recognized image.
// Per-file failures are logged and skipped; they never halt the walk.
func (s *Scanner) runScan(job ScanJob) {
	log.Printf("Scan %s: starting in %s", job.RunID, job.SourceDir)

	var files []string
	err := filepath.WalkDir(job.SourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.Printf("Scan %s: skipping unreadable entry %s: %v", job.RunID, path, walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if utils.IsIngestableImage(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Printf("Scan %s: ERROR walking source tree %s: %v", job.RunID, job.SourceDir, err)
		return
	}
	natsort.Sort(files)

	processed := 0
	for _, file := range files {
		result, err := media.ProcessImage(file, job.DestDir)
		if err != nil {
			log.Printf("Scan %s: failed to process %s: %v", job.RunID, file, err)
			continue
		}
		if result == nil {
			// duplicate destination, source left in place
			continue
		}

		metadataJSON, err := json.Marshal(result.Metadata)
		if err != nil {
			log.Printf("Scan %s: failed to serialize metadata for %s: %v", job.RunID, file, err)
			metadataJSON = []byte("{}")
		}

		record := &models.Image{
			Filepath: result.NewPath,
			MakeTime: result.MakeTime,
			Platform: result.Platform,
			Metadata: string(metadataJSON),
		}
		if err := s.Repo.Upsert(record); err != nil {
			log.Printf("Scan %s: ERROR storing record for %s: %v", job.RunID, result.NewPath, err)
			continue
		}
		processed++
		log.Printf("Scan %s: processed %s -> %s", job.RunID, file, result.NewPath)

		if s.ThumbGen != nil {
			modTime := int64(0)
			if fi, statErr := os.Stat(filepath.FromSlash(result.NewPath)); statErr == nil {
				modTime = fi.ModTime().Unix()
			}
			s.ThumbGen.QueueJob(ThumbnailJob{
				ImagePath:   result.NewPath,
				ModTimeUnix: modTime,
			})
		}
	}

	log.Printf("Scan %s: finished. Processed %d of %d candidate image(s)", job.RunID, processed, len(files))
}

func (s *Scanner) Stop() {
	log.Println("Stopping scan worker...")
	close(s.StopChan)
	s.Wg.Wait()
	log.Println("Scan worker stopped")
}
