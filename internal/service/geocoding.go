package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/rdgeo/internal/geocoding"
	"github.com/UnknownOlympus/rdgeo/internal/metrics"
	"github.com/UnknownOlympus/rdgeo/internal/models"
	"github.com/UnknownOlympus/rdgeo/internal/repository"
)

// taskLimit is the maximum number of addresses fetched per polling round.
const taskLimit = 100

// GeocodingService polls the repository for addresses without a location,
// resolves them through a geocoding provider and stores the result.
type GeocodingService struct {
	log          *slog.Logger         // Logger for logging service activities
	repo         repository.Interface // Interface for data repository access
	provider     geocoding.Provider   // Geocoding provider for external geocoding services
	providerName string               // Name of the provider for metrics labeling
	metrics      *metrics.Metrics     // Metrics for tracking service performance
	numWorkers   int                  // Number of concurrent workers for processing
	pollInterval time.Duration        // Interval for polling new addresses
}

// NewGeocodingService creates a new instance of GeocodingService.
func NewGeocodingService(
	log *slog.Logger,
	repo repository.Interface,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	numWorkers int,
	pollInterval time.Duration,
) *GeocodingService {
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &GeocodingService{
		log:          log,
		repo:         repo,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
	}
}

// Run starts the geocoding service, which periodically polls for new addresses to geocode.
// It returns when the context is cancelled.
func (gs *GeocodingService) Run(ctx context.Context) {
	ticker := time.NewTicker(gs.pollInterval)
	defer ticker.Stop()

	gs.log.InfoContext(ctx, "Geocoding service started...")

	for {
		select {
		case <-ctx.Done():
			gs.log.InfoContext(ctx, "Geocoding service stopped.")
			return
		case <-ticker.C:
			gs.log.InfoContext(ctx, "Polling for new addresses to geocode...")
			gs.processTask(ctx)
		}
	}
}

// processTask fetches addresses from the repository, starts a worker pool to process them,
// and waits for all workers to finish.
func (gs *GeocodingService) processTask(ctx context.Context) {
	tasks, err := gs.repo.FetchTasksForGeocoding(ctx, taskLimit)
	if err != nil {
		gs.log.ErrorContext(ctx, "Failed to fetch tasks", "error", err)
		return
	}
	if len(tasks) == 0 {
		gs.log.InfoContext(ctx, "No tasks to process.")
		return
	}

	gs.log.InfoContext(
		ctx,
		"Found tasks to process. Starting worker pool.",
		"jobs", len(tasks),
		"num_workers", gs.numWorkers,
	)

	jobs := make(chan models.Task, len(tasks))
	var wgr sync.WaitGroup

	for i := 1; i <= gs.numWorkers; i++ {
		wgr.Add(1)
		go gs.worker(ctx, i, &wgr, jobs)
	}

	for _, task := range tasks {
		jobs <- task
	}
	close(jobs)

	wgr.Wait()
	gs.log.InfoContext(ctx, "Processing batch finished")
}

// worker geocodes tasks from the jobs channel until it is closed.
// Failures increment the attempt count of the address; successes store its location.
func (gs *GeocodingService) worker(ctx context.Context, idx int, wg *sync.WaitGroup, jobs <-chan models.Task) {
	defer wg.Done()
	for task := range jobs {
		gs.handle(ctx, idx, task)
	}
}

func (gs *GeocodingService) handle(ctx context.Context, idx int, task models.Task) {
	gs.metrics.ActiveWorkers.Inc()
	defer gs.metrics.ActiveWorkers.Dec()

	gs.log.DebugContext(ctx, "Processing task", "worker", idx, "task", task.ID)

	startTime := time.Now()
	loc, err := gs.provider.Geocode(ctx, task.Address)
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		gs.log.ErrorContext(ctx, "Failed to geocode", "worker", idx, "task", task.ID, "error", err)
		gs.metrics.TaskProcessed.WithLabelValues("failure").Inc()
		gs.metrics.APIErrors.Inc()

		if err = gs.repo.IncrementFailureCount(ctx, task.ID, err.Error()); err != nil {
			gs.log.ErrorContext(
				ctx,
				"Could not update failure count for task",
				"worker", idx,
				"task", task.ID,
				"error", err,
			)
		}
		return
	}

	gs.metrics.TaskProcessed.WithLabelValues("success").Inc()

	if err = gs.repo.UpdateTaskLocation(ctx, task.ID, *loc); err != nil {
		gs.log.ErrorContext(
			ctx,
			"Failed to update location for task",
			"worker", idx,
			"task", task.ID,
			"error", err,
		)
		return
	}

	gs.log.DebugContext(ctx, "Worker successfully processed the task",
		"worker", idx, "task", task.ID, "rd_x", loc.RD.X, "rd_y", loc.RD.Y)
}
