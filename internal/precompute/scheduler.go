package precompute

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/lingualens/lingualens/internal/cache"
	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/history"
	"github.com/lingualens/lingualens/internal/orchestrator"
	"github.com/lingualens/lingualens/pkg/icron"
	"github.com/lingualens/lingualens/pkg/log"
)

type historyLister interface {
	List(ctx context.Context) ([]history.Entry, error)
}

type quickReader interface {
	ReadQuick(ctx context.Context, key string) (*explain.QuickPayload, error)
}

type explainCaller interface {
	ExplainQuick(ctx context.Context, req explain.Request, opts ...orchestrator.CallOption) orchestrator.Outcome
}

// Scheduler periodically scans history for subtitles whose quick entry has
// expired and enqueues warm jobs for them.
type Scheduler struct {
	cronExpr string
	limit    int

	queue   *Queue
	history historyLister
	cache   quickReader
	caller  explainCaller
	cron    *cron.Cron
}

func NewScheduler(cronExpr string, limit int, queue *Queue, hist historyLister, cacheStore quickReader, caller explainCaller) *Scheduler {
	if limit <= 0 {
		limit = 20
	}
	return &Scheduler{
		cronExpr: cronExpr,
		limit:    limit,
		queue:    queue,
		history:  hist,
		cache:    cacheStore,
		caller:   caller,
	}
}

// Start launches the worker pool and, when a cron expression is configured,
// the periodic scan.
func (s *Scheduler) Start() error {
	s.queue.Start(s.execute)

	if s.cronExpr == "" {
		log.Info("Precompute scan disabled, no cron expression configured")
		return nil
	}

	if info, err := icron.GetTriggerInfo(s.cronExpr, time.Now()); err == nil {
		log.Info("Precompute scan scheduled: %s", info)
	}

	runner := cron.New(cron.WithSeconds())
	if _, err := runner.AddFunc(s.cronExpr, s.Scan); err != nil {
		return err
	}
	runner.Start()
	s.cron = runner
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	s.queue.Stop()
}

// Scan walks recent history and enqueues a warm job for every entry whose
// quick cache slot is missing or expired, up to the per-run limit.
func (s *Scheduler) Scan() {
	ctx := context.Background()
	entries, err := s.history.List(ctx)
	if err != nil {
		log.Warn("Precompute scan failed to list history: %v", err)
		return
	}

	enqueued := 0
	for _, entry := range entries {
		if enqueued >= s.limit {
			break
		}
		key := cache.Key(entry.Query, entry.ProfileID)
		cached, err := s.cache.ReadQuick(ctx, key)
		if err != nil {
			log.Warn("Precompute scan cache read failed for %s: %v", key, err)
			continue
		}
		if cached != nil {
			continue
		}
		if _, fresh := s.queue.Enqueue(key, entry.Query, entry.ProfileID); fresh {
			enqueued++
		}
	}
	if enqueued > 0 {
		log.Info("Precompute scan enqueued %d warm jobs", enqueued)
	}
}

func (s *Scheduler) execute(ctx context.Context, job *WarmJob) error {
	req := explain.Request{
		RequestID:    "warm-" + uuid.NewString(),
		Mode:         explain.ModeQuick,
		SubtitleText: job.Query,
		Timestamp:    time.Now().UnixMilli(),
		ProfileID:    job.ProfileID,
	}
	outcome := s.caller.ExplainQuick(ctx, req)
	if outcome.Err != nil {
		return outcome.Err
	}
	log.Debug("Warmed quick entry for %s (cached=%v)", job.CacheKey, outcome.Cached)
	return nil
}
