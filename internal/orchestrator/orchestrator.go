// Package orchestrator owns the job collection and drives each job
// through the pipeline. It is the only component that mutates jobs;
// callers always receive copies.
//
// Scheduling is reactive: submitting a job or changing settings marks
// jobs dirty, and a single dispatch loop hands dirty jobs to a bounded
// worker pool. Between dispatch and commit the settings may change
// again; every dispatch is stamped with the job's settings epoch and a
// commit carrying a stale epoch is discarded, the job re-queued.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/metrics"
	"github.com/pixmill/pixmill/internal/model"
	"github.com/pixmill/pixmill/internal/pipeline"
)

var (
	// ErrJobNotFound means the id does not name a live job.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob means the id is already in use.
	ErrDuplicateJob = errors.New("job id already exists")
)

// Pipeline transforms one job's bytes under the given settings.
type Pipeline interface {
	Process(ctx context.Context, filename, mimeType string, data []byte, s model.Settings) (pipeline.Result, error)
}

// Options configures the orchestrator.
type Options struct {
	// Workers bounds concurrent pipeline runs. Must be >= 1.
	Workers int

	// MaxAttempts is the number of pipeline runs a job gets before it
	// parks in the failed state. A settings change resets the count.
	MaxAttempts int

	// Defaults is the initial global settings.
	Defaults model.Settings
}

// Orchestrator maintains the job collection and its processing state
// machine.
type Orchestrator struct {
	pipe Pipeline
	opts Options

	mu     sync.Mutex
	jobs   map[uuid.UUID]*model.Job
	global model.Settings
	epoch  uint64
	dirty  []uuid.UUID

	wake chan struct{}
	sem  chan struct{}
	wg   sync.WaitGroup

	onUpdate []func(model.Job)
}

// New creates an Orchestrator. Start must be called before submitted
// jobs are processed.
func New(pipe Pipeline, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}

	return &Orchestrator{
		pipe:   pipe,
		opts:   opts,
		jobs:   make(map[uuid.UUID]*model.Job),
		global: opts.Defaults,
		epoch:  1,
		wake:   make(chan struct{}, 1),
		sem:    make(chan struct{}, opts.Workers),
	}
}

// Start runs the dispatch loop until ctx is canceled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go o.run(ctx)
}

// Wait blocks until the dispatch loop and all in-flight workers have
// finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// OnJobUpdated registers a callback invoked with a copy of the job
// after every state transition. Callbacks run outside the collection
// lock and must not block for long.
func (o *Orchestrator) OnJobUpdated(fn func(model.Job)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onUpdate = append(o.onUpdate, fn)
}

// Submit registers a new pending job. A nil override means the job
// follows the global settings, resolved at the moment processing
// starts, not at submission.
func (o *Orchestrator) Submit(id uuid.UUID, filename, mimeType string, data []byte, override *model.Settings) error {
	o.mu.Lock()
	if _, ok := o.jobs[id]; ok {
		o.mu.Unlock()
		return ErrDuplicateJob
	}

	job := &model.Job{
		ID:            id,
		Filename:      filename,
		MimeType:      mimeType,
		Override:      copySettings(override),
		OriginalBytes: data,
		OriginalSize:  int64(len(data)),
		State:         model.JobPending,
		SettingsEpoch: o.epoch,
		CreatedAt:     time.Now(),
	}
	o.jobs[id] = job
	o.markDirty(id)
	snapshot := *job
	o.mu.Unlock()

	metrics.JobsSubmitted.Inc()
	o.notify(snapshot)
	return nil
}

// Remove deletes a job. An in-flight result for a removed job is
// dropped at commit time.
func (o *Orchestrator) Remove(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(o.jobs, id)
	return nil
}

// Get returns a copy of the job.
func (o *Orchestrator) Get(id uuid.UUID) (model.Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return model.Job{}, ErrJobNotFound
	}
	return *job, nil
}

// List returns copies of all jobs, in no particular order.
func (o *Orchestrator) List() []model.Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		out = append(out, *job)
	}
	return out
}

// GlobalSettings returns the current global settings.
func (o *Orchestrator) GlobalSettings() model.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.global
}

// SetGlobalSettings replaces the global settings and invalidates every
// job that lacks a personal override: output is discarded, attempts
// reset, and the job re-enters the pending state.
func (o *Orchestrator) SetGlobalSettings(s model.Settings) {
	var snapshots []model.Job

	o.mu.Lock()
	o.global = s
	o.epoch++
	for id, job := range o.jobs {
		if job.Override != nil {
			continue
		}
		o.invalidateLocked(id, job)
		snapshots = append(snapshots, *job)
	}
	o.mu.Unlock()

	zlog.Logger.Info().Int("invalidated", len(snapshots)).Msg("global settings changed")
	for _, snapshot := range snapshots {
		o.notify(snapshot)
	}
}

// SetOverride replaces one job's personal override (nil clears it back
// to the global settings) and invalidates only that job.
func (o *Orchestrator) SetOverride(id uuid.UUID, s *model.Settings) error {
	o.mu.Lock()
	job, ok := o.jobs[id]
	if !ok {
		o.mu.Unlock()
		return ErrJobNotFound
	}
	job.Override = copySettings(s)
	o.epoch++
	o.invalidateLocked(id, job)
	snapshot := *job
	o.mu.Unlock()

	o.notify(snapshot)
	return nil
}

// invalidateLocked forces a job back to pending and discards its
// output. Caller holds the lock and has already bumped the epoch.
func (o *Orchestrator) invalidateLocked(id uuid.UUID, job *model.Job) {
	if job.State == model.JobProcessed {
		metrics.JobsInvalidated.Inc()
	}
	job.State = model.JobPending
	job.Attempts = 0
	job.Error = ""
	job.OutputBytes = nil
	job.OutputSize = 0
	job.OutputFormat = ""
	job.OutputWidth = 0
	job.OutputHeight = 0
	job.SettingsEpoch = o.epoch
	o.markDirty(id)
}

// markDirty queues a job id for the dispatch loop. Caller holds the
// lock.
func (o *Orchestrator) markDirty(id uuid.UUID) {
	o.dirty = append(o.dirty, id)
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// run is the dispatch loop: it drains the dirty queue and hands each
// pending job to a worker, blocking when the pool is saturated.
func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		}

		for {
			o.mu.Lock()
			if len(o.dirty) == 0 {
				o.mu.Unlock()
				break
			}
			id := o.dirty[0]
			o.dirty = o.dirty[1:]
			o.mu.Unlock()

			o.dispatch(ctx, id)
		}
	}
}

// dispatch claims a pending job and runs it on a worker. A job already
// processing or in a terminal state is left alone, so duplicate dirty
// entries are harmless.
func (o *Orchestrator) dispatch(ctx context.Context, id uuid.UUID) {
	o.mu.Lock()
	job, ok := o.jobs[id]
	if !ok || job.State != model.JobPending {
		o.mu.Unlock()
		return
	}

	job.State = model.JobProcessing
	epoch := job.SettingsEpoch

	// Effective settings: the override if present, else the global
	// settings as they are right now.
	settings := o.global
	if job.Override != nil {
		settings = *job.Override
	}

	filename, mimeType, data := job.Filename, job.MimeType, job.OriginalBytes
	snapshot := *job
	o.mu.Unlock()

	o.notify(snapshot)

	select {
	case o.sem <- struct{}{}:
	case <-ctx.Done():
		// Put the claim back; a restart will pick it up.
		o.mu.Lock()
		if job, ok := o.jobs[id]; ok && job.State == model.JobProcessing {
			job.State = model.JobPending
		}
		o.mu.Unlock()
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() { <-o.sem }()

		res, err := o.pipe.Process(ctx, filename, mimeType, data, settings)
		if err != nil {
			o.fail(id, epoch, err)
			return
		}
		o.commit(id, epoch, res)
	}()
}

// commit stores a worker's result. Results for removed jobs are
// dropped; results stamped with a stale epoch are discarded and the job
// re-queued under its current settings.
func (o *Orchestrator) commit(id uuid.UUID, epoch uint64, res pipeline.Result) {
	o.mu.Lock()
	job, ok := o.jobs[id]
	if !ok {
		o.mu.Unlock()
		return
	}

	// A stale epoch means settings changed after dispatch. The
	// invalidation that bumped the epoch already re-queued the job, so
	// the only thing to do with this result is drop it.
	if job.SettingsEpoch != epoch {
		o.mu.Unlock()
		metrics.StaleCommits.Inc()
		zlog.Logger.Debug().Str("job", id.String()).Msg("stale result discarded")
		return
	}

	job.State = model.JobProcessed
	job.Error = ""
	job.HadExif = res.HadExif
	job.OutputBytes = res.Bytes
	job.OutputSize = int64(len(res.Bytes))
	job.OutputFormat = res.Format
	job.OutputWidth = res.Width
	job.OutputHeight = res.Height
	snapshot := *job
	o.mu.Unlock()

	metrics.JobsProcessed.WithLabelValues(string(res.Format)).Inc()
	o.notify(snapshot)
}

// fail counts an attempt and either re-queues the job or parks it in
// the failed state once attempts are exhausted. Failed jobs only leave
// that state through a settings change.
func (o *Orchestrator) fail(id uuid.UUID, epoch uint64, procErr error) {
	o.mu.Lock()
	job, ok := o.jobs[id]
	if !ok {
		o.mu.Unlock()
		return
	}

	// A failure under settings that no longer apply does not count
	// against the job; the invalidation already re-queued it.
	if job.SettingsEpoch != epoch {
		o.mu.Unlock()
		return
	}

	job.Attempts++
	job.Error = procErr.Error()
	if job.Attempts >= o.opts.MaxAttempts {
		job.State = model.JobFailed
	} else {
		job.State = model.JobPending
		o.markDirty(id)
	}
	snapshot := *job
	o.mu.Unlock()

	if snapshot.State == model.JobFailed {
		metrics.JobsFailed.Inc()
		zlog.Logger.Error().Err(procErr).
			Str("job", id.String()).
			Int("attempts", snapshot.Attempts).
			Msg("job failed permanently")
	} else {
		zlog.Logger.Warn().Err(procErr).
			Str("job", id.String()).
			Int("attempt", snapshot.Attempts).
			Msg("job failed, re-queued")
	}
	o.notify(snapshot)
}

// notify fans a job snapshot out to the registered callbacks.
func (o *Orchestrator) notify(job model.Job) {
	o.mu.Lock()
	callbacks := make([]func(model.Job), len(o.onUpdate))
	copy(callbacks, o.onUpdate)
	o.mu.Unlock()

	for _, fn := range callbacks {
		fn(job)
	}
}

func copySettings(s *model.Settings) *model.Settings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
