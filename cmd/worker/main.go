package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pulsecheck-labs/pulsecheck-backend/config"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/analysis/inference"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/analysis/pipeline"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/lifecycle"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/repository"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/bootstrap"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/cache"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/documents"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN()})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var progressCache *cache.ProgressCache
	if rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis); err != nil {
		log.Printf("redis unavailable, cache invalidation disabled: %v", err)
	} else {
		progressCache = cache.NewProgressCache(rdb)
	}

	cat, err := bootstrap.LoadCatalog(cfg.App.CatalogFile)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	assessmentRepo := repository.NewAssessmentRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	documentRepo := documents.NewRepo(db)
	jobRepo := repository.NewJobRepository(db)

	machine := lifecycle.NewMachine(assessmentRepo, responseRepo, cat, nil)
	inf := inference.NewClient(inference.Options{
		BaseURL:      cfg.Inference.BaseURL,
		TokenURL:     cfg.Inference.TokenURL,
		ClientID:     cfg.Inference.ClientID,
		ClientSecret: cfg.Inference.ClientSecret,
		RateLimit:    cfg.Inference.RateLimit,
	})
	store := pipeline.NewRepoStore(assessmentRepo, responseRepo, analysisRepo, documentRepo)
	pipe := pipeline.New(store, inf, machine, cat)

	w := &worker{
		jobs:     jobRepo,
		pipeline: pipe,
		machine:  machine,
		cache:    progressCache,
	}

	// Jobs whose worker died mid-run go back to the queue.
	sweeper := cron.New(cron.WithSeconds())
	if _, err := sweeper.AddFunc("0 * * * * *", func() {
		n, err := jobRepo.RequeueStuck(context.Background(), cfg.Worker.StuckAfter)
		if err != nil {
			log.Printf("[sweeper] requeue failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[sweeper] requeued %d stuck job(s)", n)
		}
	}); err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	log.Printf("worker polling every %s env=%s", cfg.Worker.PollInterval, cfg.App.Environment)
	w.run(ctx, cfg.Worker.PollInterval)
	log.Println("worker stopped")
}

type worker struct {
	jobs     *repository.JobRepository
	pipeline *pipeline.Pipeline
	machine  *lifecycle.Machine
	cache    *cache.ProgressCache
}

// run drains the queue, then sleeps for the poll interval before checking
// again. One job at a time; the pipeline fans out internally.
func (w *worker) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for w.runOne(ctx) {
			if ctx.Err() != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *worker) runOne(ctx context.Context) bool {
	job, err := w.jobs.ClaimNext(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[worker] claim failed: %v", err)
		}
		return false
	}
	if job == nil {
		return false
	}

	log.Printf("[worker] assessment=%s attempt=%d starting", job.AssessmentID, job.Attempts)
	start := time.Now()

	if err := w.pipeline.Run(ctx, job.AssessmentID); err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-run: leave the job marked running for the sweeper.
			return false
		}
		log.Printf("[worker] assessment=%s failed after %s: %v", job.AssessmentID, time.Since(start), err)
		if ferr := w.machine.MarkFailed(ctx, job.AssessmentID, err); ferr != nil {
			log.Printf("[worker] assessment=%s could not mark failed: %v", job.AssessmentID, ferr)
		}
		if jerr := w.jobs.MarkFailed(ctx, job.AssessmentID); jerr != nil {
			log.Printf("[worker] assessment=%s job bookkeeping failed: %v", job.AssessmentID, jerr)
		}
		w.dropSnapshot(ctx, job)
		return true
	}

	if err := w.jobs.MarkDone(ctx, job.AssessmentID); err != nil {
		log.Printf("[worker] assessment=%s job bookkeeping failed: %v", job.AssessmentID, err)
	}
	w.dropSnapshot(ctx, job)
	log.Printf("[worker] assessment=%s done in %s", job.AssessmentID, time.Since(start))
	return true
}

// dropSnapshot clears the cached progress view so the next read reflects the
// post-run status.
func (w *worker) dropSnapshot(ctx context.Context, job *repository.AnalysisJob) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Invalidate(ctx, job.AssessmentID); err != nil {
		log.Printf("[worker] assessment=%s cache invalidation failed: %v", job.AssessmentID, err)
	}
}
