package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/storage"
)

const dequeueTimeout = 5 * time.Second

// jobStore is the slice of the database the controller needs. *db.DB
// implements it; tests substitute an in-memory fake.
type jobStore interface {
	CreateJob(ctx context.Context, job *models.MovieJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.MovieJob, error)
	GetJobByMovieID(ctx context.Context, movieID string) (*models.MovieJob, error)
	AdvanceStage(ctx context.Context, id uuid.UUID, stage models.Stage) error
	UpdateSceneCount(ctx context.Context, id uuid.UUID, count int) error
	MarkFailed(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error
	ListResumable(ctx context.Context) ([]models.MovieJob, error)
}

// jobQueue is the routing-queue surface. *queue.Queue implements it.
type jobQueue interface {
	EnqueueProcessMovie(ctx context.Context, jobID uuid.UUID, movieID string) error
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
	Purge(ctx context.Context, queueName string) error
}

var (
	_ jobStore = (*db.DB)(nil)
	_ jobQueue = (*queue.Queue)(nil)
)

// Worker is the batch controller. It discovers new source movies, drives
// each one through the pipeline stage by stage, and persists every stage
// transition so a restart resumes from the last completed stage.
type Worker struct {
	cfg   *config.Config
	db    jobStore
	queue jobQueue
	lib   *storage.Library
	pipe  *pipeline.Pipeline
}

func New(cfg *config.Config, database *db.DB, q *queue.Queue, lib *storage.Library, pipe *pipeline.Pipeline) *Worker {
	return &Worker{
		cfg:   cfg,
		db:    database,
		queue: q,
		lib:   lib,
		pipe:  pipe,
	}
}

// Start rebuilds the routing queue from Postgres, scans the library for new
// movies, then runs the processing loops until the context is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if err := w.queue.Purge(ctx, queue.QueueProcessMovie); err != nil {
		log.Printf("[Worker] purge queue: %v", err)
	}
	if n, err := w.ResumeInterrupted(ctx); err != nil {
		log.Printf("[Worker] resume: %v", err)
	} else if n > 0 {
		log.Printf("[Worker] re-enqueued %d interrupted jobs", n)
	}
	if n, err := w.Scan(ctx); err != nil {
		log.Printf("[Worker] initial scan: %v", err)
	} else if n > 0 {
		log.Printf("[Worker] discovered %d new movies", n)
	}

	log.Printf("[Worker] starting %d processing loops", concurrency)
	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, i)
	}
}

// Scan walks the movies directory and creates a job for every source that
// has neither a finished horizontal render nor an existing job row. Failed
// jobs are left alone; retry is an explicit operator action.
func (w *Worker) Scan(ctx context.Context) (int, error) {
	movies, err := w.lib.DiscoverMovies()
	if err != nil {
		return 0, fmt.Errorf("discover movies: %w", err)
	}

	created := 0
	for _, movie := range movies {
		existing, err := w.db.GetJobByMovieID(ctx, movie.ID)
		if err != nil {
			log.Printf("[Worker] lookup %s: %v", movie.ID, err)
			continue
		}
		if existing != nil {
			continue
		}

		job := &models.MovieJob{
			ID:         uuid.New(),
			MovieID:    movie.ID,
			Title:      movie.Title,
			SourcePath: movie.Path,
			Stage:      models.StagePlanned,
		}
		if err := w.db.CreateJob(ctx, job); err != nil {
			log.Printf("[Worker] create job for %s: %v", movie.ID, err)
			continue
		}
		if err := w.queue.EnqueueProcessMovie(ctx, job.ID, job.MovieID); err != nil {
			log.Printf("[Worker] enqueue %s: %v", movie.ID, err)
			continue
		}
		log.Printf("[Worker] new movie %q (%s)", movie.Title, movie.ID)
		created++
	}
	return created, nil
}

// ResumeInterrupted re-enqueues every job that is mid-pipeline. Called once
// at startup, after the routing queue has been purged.
func (w *Worker) ResumeInterrupted(ctx context.Context) (int, error) {
	jobs, err := w.db.ListResumable(ctx)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, job := range jobs {
		if err := w.queue.EnqueueProcessMovie(ctx, job.ID, job.MovieID); err != nil {
			log.Printf("[Worker] re-enqueue %s: %v", job.MovieID, err)
			continue
		}
		log.Printf("[Worker] resuming %s at stage %s", job.MovieID, job.Stage)
		resumed++
	}
	return resumed, nil
}

func (w *Worker) processQueue(ctx context.Context, id int) {
	log.Printf("[Worker %d] started", id)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker %d] shutting down", id)
			return
		default:
		}

		qj, err := w.queue.Dequeue(ctx, queue.QueueProcessMovie, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Worker %d] dequeue: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if qj == nil {
			continue
		}

		if err := w.handleMovie(ctx, qj); err != nil {
			log.Printf("[Worker %d] movie %s: %v", id, qj.MovieID, err)
		}
	}
}

// handleMovie drives one movie from its current stage to a terminal stage.
// Each stage transition is committed to Postgres before the next stage
// starts, so a crash at any point resumes at the last completed stage.
func (w *Worker) handleMovie(ctx context.Context, qj *queue.Job) error {
	job, err := w.db.GetJob(ctx, qj.ID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Stage.Terminal() {
		log.Printf("[Worker] %s already %s, skipping", job.MovieID, job.Stage)
		return nil
	}
	if _, err := w.lib.EnsureJobWorkDir(job.MovieID); err != nil {
		return fmt.Errorf("workdir: %w", err)
	}

	log.Printf("[Worker] processing %q from stage %s", job.Title, job.Stage)
	for !job.Stage.Terminal() {
		if ctx.Err() != nil {
			// Shutdown mid-pipeline: the job stays at its last committed
			// stage and is re-enqueued on the next startup.
			return ctx.Err()
		}

		next, err := w.runStage(ctx, job)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			kind := models.ErrorKindToolFailure
			var se *pipeline.StageError
			if errors.As(err, &se) {
				kind = se.Kind
			}
			log.Printf("[Worker] %s failed at stage %s (%s): %v", job.MovieID, job.Stage, kind, err)
			if dbErr := w.db.MarkFailed(ctx, job.ID, kind, err.Error()); dbErr != nil {
				return fmt.Errorf("mark failed: %w", dbErr)
			}
			return nil
		}

		if err := w.db.AdvanceStage(ctx, job.ID, next); err != nil {
			return fmt.Errorf("advance to %s: %w", next, err)
		}
		job.Stage = next
	}

	log.Printf("[Worker] %q complete", job.Title)
	return nil
}

// runStage executes the work that takes the job from its current stage to
// the returned one. Stage artifacts are persisted in the job's workdir so
// each case can load exactly what the previous stage committed.
func (w *Worker) runStage(ctx context.Context, job *models.MovieJob) (models.Stage, error) {
	movieID := job.MovieID
	switch job.Stage {
	case models.StagePlanned:
		plan, err := w.pipe.Plan(ctx, job)
		if err != nil {
			return "", err
		}
		if err := w.pipe.SavePlan(movieID, plan); err != nil {
			return "", err
		}
		scenes, assets, err := w.pipe.RenderNarrations(ctx, job, plan)
		if err != nil {
			return "", err
		}
		if err := w.pipe.SaveNarrations(movieID, scenes, assets); err != nil {
			return "", err
		}
		if err := w.db.UpdateSceneCount(ctx, job.ID, len(scenes)); err != nil {
			log.Printf("[Worker] update scene count %s: %v", movieID, err)
		}
		return models.StageNarrated, nil

	case models.StageNarrated:
		scenes, assets, err := w.pipe.LoadNarrations(movieID)
		if err != nil {
			return "", err
		}
		reconciled, err := w.pipe.Reconcile(scenes, assets)
		if err != nil {
			return "", err
		}
		if err := w.pipe.SaveReconciled(movieID, reconciled); err != nil {
			return "", err
		}
		return models.StageReconciled, nil

	case models.StageReconciled:
		_, assets, err := w.pipe.LoadNarrations(movieID)
		if err != nil {
			return "", err
		}
		reconciled, err := w.pipe.LoadReconciled(movieID)
		if err != nil {
			return "", err
		}
		clips, err := w.pipe.ExtractClips(ctx, job, reconciled, assets)
		if err != nil {
			return "", err
		}
		if err := w.pipe.SaveClips(movieID, clips); err != nil {
			return "", err
		}
		return models.StageExtracted, nil

	case models.StageExtracted:
		clips, err := w.pipe.LoadClips(movieID)
		if err != nil {
			return "", err
		}
		if _, err := w.pipe.Assemble(ctx, job, clips); err != nil {
			return "", err
		}
		return models.StageAssembled, nil

	case models.StageAssembled:
		// The assembled stage is committed, so the clips consumed by the
		// concat are no longer resumption inputs and can go.
		w.pipe.RemoveIntermediateClips(movieID)
		if _, err := w.pipe.Mix(ctx, job, w.pipe.MasterPath(movieID)); err != nil {
			return "", err
		}
		return models.StageMixed, nil

	case models.StageMixed:
		// Same for the master once the mixed stage is committed.
		w.pipe.RemoveMaster(movieID)
		if _, err := w.pipe.Reframe(ctx, job); err != nil {
			return "", err
		}
		return models.StageReframed, nil

	case models.StageReframed:
		// Completion actions: the source is consumed, the workdir is scratch.
		if _, err := os.Stat(job.SourcePath); err == nil {
			if err := w.lib.RetireSource(job.SourcePath, movieID); err != nil {
				log.Printf("[Worker] retire %s: %v", movieID, err)
			}
		}
		if err := w.lib.PurgeJobWorkDir(movieID); err != nil {
			log.Printf("[Worker] purge workdir %s: %v", movieID, err)
		}
		return models.StageDone, nil

	default:
		return "", fmt.Errorf("unexpected stage %q", job.Stage)
	}
}
