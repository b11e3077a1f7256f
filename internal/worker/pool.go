package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"linguadeck-backend/internal/models"
	"linguadeck-backend/internal/repository"
	"linguadeck-backend/internal/services"
)

type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
	jobRepo     *repository.JobRepo
	setRepo     *repository.StudySetRepo
	storagePath string
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	fileExtract *services.FileExtractService,
	jobRepo *repository.JobRepo,
	setRepo *repository.StudySetRepo,
	storagePath string,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		fileExtract: fileExtract,
		jobRepo:     jobRepo,
		setRepo:     setRepo,
		storagePath: storagePath,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		"queue:card-generation",
		"queue:document-import",
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     1,
				StepName: "Preparing material",
			},
		})

		var cardCount int
		var processErr error
		switch job.Type {
		case "card-generation":
			cardCount, processErr = p.processGeneration(ctx, &job)
		case "document-import":
			cardCount, processErr = p.processImport(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, cardCount)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// processGeneration creates cards for a topic-only job. The study set must
// still exist; the owner may have deleted it while the job sat in the queue.
func (p *Pool) processGeneration(ctx context.Context, job *models.Job) (int, error) {
	if _, err := p.setRepo.GetByID(ctx, job.ReferenceID); err != nil {
		return 0, fmt.Errorf("failed to get study set: %w", err)
	}

	return p.gemini.GenerateCards(ctx, job, "")
}

// processImport extracts text from the uploaded document and feeds it to card
// generation as source material.
func (p *Pool) processImport(ctx context.Context, job *models.Job) (int, error) {
	var config struct {
		FilePath string `json:"file_path"`
	}
	json.Unmarshal(job.ConfigJSON, &config)

	if config.FilePath == "" {
		return 0, fmt.Errorf("import job has no file path")
	}

	if _, err := p.setRepo.GetByID(ctx, job.ReferenceID); err != nil {
		return 0, fmt.Errorf("failed to get study set: %w", err)
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     1,
			StepName: "Extracting document text",
		},
	})

	fullPath := filepath.Join(p.storagePath, config.FilePath)
	source, err := p.fileExtract.ExtractTextFromPath(fullPath)
	if err != nil {
		return 0, fmt.Errorf("failed to extract document text: %w", err)
	}

	log.Printf("Extracted document text for job %s (%d chars)", job.ID, len(source))

	return p.gemini.GenerateCards(ctx, job, source)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, cardCount int) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: "study_set",
			CardCount:  cardCount,
		},
	})

	log.Printf("Job %s completed successfully (%d cards)", job.ID, cardCount)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < 3 {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), jobQueueName(job.Type), string(jobBytes))
		})
	} else {
		// Max retries reached
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				JobID:        job.ID,
				ErrorCode:    "JOB_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}

func jobQueueName(jobType string) string {
	return "queue:" + jobType
}
