package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	JobTrialExpiry       = "trial-expiry-sweep"
	JobDevicePresence    = "device-presence-sweep"
	jobTimeout           = time.Minute
	defaultTrialEvery    = time.Hour
	defaultPresenceEvery = time.Minute
)

// Intervals controls how often each sweep runs; zero picks the default.
type Intervals struct {
	TrialSweep    time.Duration
	PresenceSweep time.Duration
}

// JobScheduler runs the periodic maintenance sweeps.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	subscriptions repositories.SubscriptionRepository
	devices       repositories.DeviceRepository
	clock         clockwork.Clock
	metrics       *metrics.Metrics
	log           *zap.Logger
	jobs          map[string]gocron.Job
	mu            sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers the sweeps. Nothing
// runs until Start.
func NewJobScheduler(intervals Intervals, subscriptions repositories.SubscriptionRepository, devices repositories.DeviceRepository,
	clock clockwork.Clock, m *metrics.Metrics, log *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock), gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		subscriptions: subscriptions,
		devices:       devices,
		clock:         clock,
		metrics:       m,
		log:           log,
		jobs:          make(map[string]gocron.Job),
	}

	if intervals.TrialSweep <= 0 {
		intervals.TrialSweep = defaultTrialEvery
	}
	if intervals.PresenceSweep <= 0 {
		intervals.PresenceSweep = defaultPresenceEvery
	}
	if err := js.register(JobTrialExpiry, intervals.TrialSweep, js.runTrialSweep); err != nil {
		return nil, err
	}
	if err := js.register(JobDevicePresence, intervals.PresenceSweep, js.runPresenceSweep); err != nil {
		return nil, err
	}
	log.Info("registered background jobs", zap.Int("count", len(js.jobs)))
	return js, nil
}

func (js *JobScheduler) register(name string, every time.Duration, fn func()) error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.log.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler.
func (js *JobScheduler) Stop() error {
	js.log.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) runTrialSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := js.ExpireTrials(ctx); err != nil {
		js.log.Error("trial expiry sweep failed", zap.Error(err))
	}
}

func (js *JobScheduler) runPresenceSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := js.MarkDevicesOffline(ctx); err != nil {
		js.log.Error("device presence sweep failed", zap.Error(err))
	}
}

// ExpireTrials moves trials that ended without a provider subscription to
// past_due. UpdateStatus mirrors the new status onto the linked location.
func (js *JobScheduler) ExpireTrials(ctx context.Context) (int, error) {
	now := js.clock.Now().UTC()
	expired, err := js.subscriptions.ListExpiredTrials(ctx, now)
	if err != nil {
		js.metrics.RecordJobRun(JobTrialExpiry, "failed")
		return 0, fmt.Errorf("list expired trials: %w", err)
	}

	moved := 0
	for _, sub := range expired {
		if !models.CanTransition(sub.Status, models.SubscriptionStatusPastDue) {
			continue
		}
		if err := js.subscriptions.UpdateStatus(ctx, sub.ID, models.SubscriptionStatusPastDue, nil); err != nil {
			js.log.Warn("failed to expire trial",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}
		moved++
	}

	outcome := "ok"
	if moved < len(expired) {
		outcome = "partial"
	}
	js.metrics.RecordJobRun(JobTrialExpiry, outcome)
	if len(expired) > 0 {
		js.log.Info("expired trials", zap.Int("found", len(expired)), zap.Int("moved", moved))
	}
	return moved, nil
}

// MarkDevicesOffline clears the online flag of devices that missed the
// heartbeat window.
func (js *JobScheduler) MarkDevicesOffline(ctx context.Context) (int64, error) {
	cutoff := js.clock.Now().UTC().Add(-models.OnlineWindow)
	n, err := js.devices.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		js.metrics.RecordJobRun(JobDevicePresence, "failed")
		return 0, fmt.Errorf("mark stale devices offline: %w", err)
	}
	js.metrics.RecordJobRun(JobDevicePresence, "ok")
	if n > 0 {
		js.log.Debug("devices marked offline", zap.Int64("count", n))
	}
	return n, nil
}

// JobStatus lists the registered jobs and their next run.
func (js *JobScheduler) JobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	next := make(map[string]string, len(js.jobs))
	for name, job := range js.jobs {
		names = append(names, name)
		if at, err := job.NextRun(); err == nil {
			next[name] = at.UTC().Format(time.RFC3339)
		}
	}
	sort.Strings(names)

	return map[string]interface{}{
		"total_jobs": len(names),
		"jobs":       names,
		"next_run":   next,
	}
}
