package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/epocher/internal/app"
	"github.com/okian/epocher/internal/config"
	"github.com/okian/epocher/internal/domain/model"
	pipeline "github.com/okian/epocher/internal/domain/pipeline"
	"github.com/okian/epocher/internal/domain/types"
	"github.com/okian/epocher/pkg/logger"
)

// Run matches every input recording against the template. A recording or
// condition that fails is counted and the run continues. Recordings cut short
// by cancellation, or never dispatched, count as aborted. An error is returned
// when the run cannot start or ctx is done.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.TemplatePath == "" {
		return nil, ErrNoTemplate
	}
	if len(cfg.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	tpl, err := config.LoadTemplate(ctx, cfg.TemplatePath)
	if err != nil {
		return nil, err
	}
	for _, n := range cfg.Conditions {
		if !tpl.Has(n) {
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownCondition, n)
		}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	stats := &Stats{RunID: uuid.NewString(), StartTime: time.Now()}
	log := logger.Named("batch")
	log.Info(ctx, "starting batch run",
		logger.String("run_id", stats.RunID),
		logger.String("template", cfg.TemplatePath),
		logger.Int("recordings", len(cfg.Inputs)),
		logger.Int("workers", workers))

	inputs := make(chan string, workers*2)
	reports := make(chan fileResult, workers*2)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Each worker owns its runner so no state is shared between recordings.
			p := service.NewProcessor(tpl, pipeline.NewRunner(), log.Named(fmt.Sprintf("worker-%d", workerID)))
			for path := range inputs {
				reports <- processFile(ctx, p, cfg, path, log)
			}
		}(i)
	}

	var dispatched int
	go func() {
		defer close(inputs)
		for _, path := range cfg.Inputs {
			select {
			case inputs <- path:
				dispatched++
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(reports)
	}()

	for res := range reports {
		stats.Recordings++
		if !res.readable {
			stats.Unreadable++
			continue
		}
		r := res.report
		if res.aborted {
			stats.Aborted++
		}
		tally := r.Tally()
		stats.OK += tally[types.StatusOK]
		stats.Skipped += tally[types.StatusSkipped]
		stats.Failed += tally[types.StatusFailed]
		if cfg.OutDir != "" {
			path, err := writeResult(cfg.OutDir, stats.RunID, r)
			if err != nil {
				log.Error(ctx, "failed to write result", logger.String("recording", r.Recording), logger.Error(err))
				continue
			}
			log.Debug(ctx, "result written", logger.String("path", path))
		}
	}

	stats.Aborted += len(cfg.Inputs) - dispatched
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, ctx.Err()
}

type fileResult struct {
	report   types.JobReport
	readable bool
	aborted  bool
}

func processFile(ctx context.Context, p *service.Processor, cfg *Config, path string, log logger.Logger) fileResult {
	rec, err := readRecording(path)
	if err != nil {
		log.Error(ctx, "skipping recording", logger.String("path", path), logger.Error(err))
		return fileResult{}
	}
	report, err := p.Process(ctx, model.Job{ID: rec.Name, Recording: rec, Conditions: cfg.Conditions})
	if err != nil {
		log.Error(ctx, "recording aborted", logger.String("recording", rec.Name), logger.Error(err))
		report.Status = types.StatusFailed
		return fileResult{report: report, readable: true, aborted: true}
	}
	return fileResult{report: report, readable: true}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.String("run_id", stats.RunID),
		logger.Int("recordings", stats.Recordings),
		logger.Int("unreadable", stats.Unreadable),
		logger.Int("aborted", stats.Aborted),
		logger.Int("conditionsOK", stats.OK),
		logger.Int("conditionsSkipped", stats.Skipped),
		logger.Int("conditionsFailed", stats.Failed),
		logger.String("duration", stats.Duration.String()))
}
