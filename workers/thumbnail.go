package workers

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/moonhole0512/TagGallery-Web/config"
	"github.com/moonhole0512/TagGallery-Web/database"
	"github.com/moonhole0512/TagGallery-Web/utils"
)

type ThumbnailJob struct {
	ImagePath   string // archived image path (catalog key)
	ModTimeUnix int64
}

type ThumbnailGenerator struct {
	JobQueue chan ThumbnailJob
	Config   config.Config
	DB       *sql.DB
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewThumbnailGenerator(cfg config.Config, db *sql.DB, queueSize, numWorkers int) *ThumbnailGenerator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	gen := &ThumbnailGenerator{
		JobQueue: make(chan ThumbnailJob, queueSize),
		Config:   cfg,
		DB:       db,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}

	gen.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go gen.worker(i)
	}
	log.Printf("started %d thumbnail worker(s) with queue size %d", numWorkers, queueSize)

	return gen
}

func (tg *ThumbnailGenerator) worker(id int) {
	defer tg.Wg.Done()
	log.Printf("thumbnail worker %d started", id)
	for {
		select {
		case job, ok := <-tg.JobQueue:
			if !ok {
				log.Printf("thumbnail worker %d stopping: job queue closed", id)
				return
			}
			log.Printf("worker %d processing thumbnail for: %s", id, job.ImagePath)
			tg.processJob(job)
			tg.Mutex.Lock()
			delete(tg.Pending, job.ImagePath)
			tg.Mutex.Unlock()

		case <-tg.StopChan:
			log.Printf("thumbnail worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (tg *ThumbnailGenerator) processJob(job ThumbnailJob) {
	fullPath := filepath.FromSlash(job.ImagePath)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		log.Printf("archived file %s not found, skipping thumbnail generation", job.ImagePath)
		return
	} else if err != nil {
		log.Printf("error stating archived file %s before thumbnail generation: %v", job.ImagePath, err)
	}

	thumbSavePath, err := utils.GenerateThumbnail(
		fullPath,
		tg.Config.ThumbnailsPath,
		tg.Config.ThumbnailMaxSize,
	)

	if err != nil {
		log.Printf("ERROR generating thumbnail for %s: %v", job.ImagePath, err)
		return
	}

	err = database.SetThumbnailInfo(tg.DB, job.ImagePath, thumbSavePath, job.ModTimeUnix)
	if err != nil {
		log.Printf("ERROR updating thumbnail DB record for %s after generation: %v", job.ImagePath, err)
		return
	}

	log.Printf("successfully generated thumbnail and updated DB for: %s", job.ImagePath)
}

// QueueJob queues thumbnail generation if not already pending
func (tg *ThumbnailGenerator) QueueJob(job ThumbnailJob) bool {
	tg.Mutex.Lock()
	if tg.Pending[job.ImagePath] {
		tg.Mutex.Unlock()
		log.Printf("thumbnail generation for %s already pending, skipping queue", job.ImagePath)
		return false
	}

	tg.Pending[job.ImagePath] = true
	tg.Mutex.Unlock()

	select {
	case tg.JobQueue <- job:
		return true
	default:
		log.Printf("WARNING: thumbnail job queue full, failed to queue: %s", job.ImagePath)
		tg.Mutex.Lock()
		delete(tg.Pending, job.ImagePath)
		tg.Mutex.Unlock()
		return false
	}
}

func (tg *ThumbnailGenerator) Stop() {
	log.Println("Stopping thumbnail workers...")
	close(tg.StopChan)
	tg.Wg.Wait()
	log.Println("All thumbnail workers stopped")
}
