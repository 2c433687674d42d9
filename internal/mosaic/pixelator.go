package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

var (
	// ErrSuperseded is the error of a task replaced by a newer Run.
	ErrSuperseded = errors.New("mosaic run superseded")

	// ErrCancelled is the error of a task stopped with Cancel.
	ErrCancelled = errors.New("mosaic run cancelled")

	// ErrNotFinalized is returned when exporting before a run completed.
	ErrNotFinalized = errors.New("mosaic not finalized")

	// ErrNoOutput is returned when no frame has been produced yet.
	ErrNoOutput = errors.New("no mosaic output")
)

const (
	DefaultInterval = 150 * time.Millisecond
	DefaultPulse    = 300 * time.Millisecond
)

// StatusLabels are shown in order as a run progresses.
var StatusLabels = []string{
	"SCANNING PIXELS...",
	"CRUNCHING COLORS...",
	"BUILDING BLOCKS...",
	"STACKING CUBES...",
	"ALMOST THERE...",
	"FINALIZING...",
}

// Label returns the status label for step index i of total steps.
func Label(i, total int) string {
	if total <= 0 {
		return ""
	}
	n := i * len(StatusLabels) / total
	if n >= len(StatusLabels) {
		n = len(StatusLabels) - 1
	}
	if n < 0 {
		n = 0
	}
	return StatusLabels[n]
}

// Task is one in-flight pixelation run.
type Task struct {
	ID   string
	Plan Plan

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
	err    error
}

// Done is closed when the task's goroutine has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns nil while running or after a completed run, and the reason
// otherwise (ErrSuperseded, ErrCancelled or the parent context's error).
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task ends or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status is a point-in-time view of the pixelator.
type Status struct {
	TaskID    string `json:"task_id,omitempty"`
	Running   bool   `json:"running"`
	Step      int    `json:"step"`
	Total     int    `json:"total"`
	Cells     int    `json:"cells"`
	Progress  int    `json:"progress"`
	Label     string `json:"label,omitempty"`
	Finalized bool   `json:"finalized"`
	Pulse     bool   `json:"pulse"`
	Error     string `json:"error,omitempty"`
}

// Pixelator owns a mosaic output buffer and at most one task writing it.
//
// Frames are computed outside the lock and swapped in whole under it, after
// re-checking that the task is still current and not cancelled. A stale
// task therefore never writes into the output.
type Pixelator struct {
	size     int
	target   int
	interval time.Duration
	pulse    time.Duration
	logger   *slog.Logger

	runMu sync.Mutex // serializes Run and Cancel

	mu          sync.Mutex
	out         *raster.Buffer
	task        *Task
	status      Status
	finalizedAt time.Time
}

// Option configures a Pixelator.
type Option func(*Pixelator)

// WithSize sets the working dimension D.
func WithSize(d int) Option { return func(p *Pixelator) { p.size = d } }

// WithTarget sets the grid the last step must reach. Zero disables the check.
func WithTarget(cells int) Option { return func(p *Pixelator) { p.target = cells } }

// WithInterval sets the delay between frames.
func WithInterval(d time.Duration) Option { return func(p *Pixelator) { p.interval = d } }

// WithPulse sets how long Status reports the completion pulse.
func WithPulse(d time.Duration) Option { return func(p *Pixelator) { p.pulse = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pixelator) { p.logger = l } }

// NewPixelator creates an idle pixelator.
func NewPixelator(opts ...Option) *Pixelator {
	p := &Pixelator{
		size:     DefaultSize,
		target:   DefaultTarget,
		interval: DefaultInterval,
		pulse:    DefaultPulse,
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Size returns the working dimension D.
func (p *Pixelator) Size() int { return p.size }

// Run starts pixelating src through plan.
//
// Parameters:
//   - ctx: Parent of the task context. Cancelling it stops the run and the
//     task ends with the parent's error.
//   - src: Source image of any size. It is scaled to the working size D x D
//     before the first frame.
//   - plan: Grid resolutions to step through, coarse to fine. With a target
//     configured the last step must equal it.
//
// Returns:
//   - *Task: Handle to wait on or inspect. Progress is read through Status,
//     Latest and Output.
//   - error: Non-nil when the run was rejected.
//
// # Behavior
//
// The plan and source are checked first; on failure nothing changes. Then
// any prior task is cancelled with ErrSuperseded and waited for, and a new
// goroutine writes frame i after i intervals. One interval after the last
// frame the run is finalized.
//
// # Errors
//
//   - ErrInvalidPlan for an empty plan, a non-positive step or a last step
//     that misses the target
//   - raster.ErrSourceLoad for a nil or empty source
func (p *Pixelator) Run(ctx context.Context, src image.Image, plan Plan) (*Task, error) {
	if err := plan.Validate(p.target); err != nil {
		return nil, err
	}
	work, err := Prepare(src, p.size)
	if err != nil {
		return nil, err
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.stop(ErrSuperseded)

	tctx, cancel := context.WithCancelCause(ctx)
	t := &Task{
		ID:     uuid.NewString(),
		Plan:   Plan{Cells: append([]int(nil), plan.Cells...)},
		ctx:    tctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	p.task = t
	p.status = Status{TaskID: t.ID, Running: true, Total: plan.Len()}
	p.finalizedAt = time.Time{}
	p.mu.Unlock()

	p.logger.Info("mosaic run started", "task", t.ID, "steps", plan.Len(), "size", p.size)
	go p.loop(t, work)
	return t, nil
}

// Cancel stops the current task and waits for it. It reports whether a
// task was running.
func (p *Pixelator) Cancel() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.stop(ErrCancelled)
}

func (p *Pixelator) stop(cause error) bool {
	p.mu.Lock()
	t := p.task
	p.mu.Unlock()
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
	}
	t.cancel(cause)
	<-t.done
	return true
}

func (p *Pixelator) loop(t *Task, work *raster.Buffer) {
	defer close(t.done)
	defer t.cancel(nil)

	total := t.Plan.Len()
	for i, cells := range t.Plan.Cells {
		if i > 0 && !sleep(t.ctx, p.interval) {
			p.abort(t)
			return
		}
		frame := Pixelate(work, cells)
		if !p.writeFrame(t, i, total, cells, frame) {
			p.abort(t)
			return
		}
	}

	if !sleep(t.ctx, p.interval) {
		p.abort(t)
		return
	}
	if !p.finalize(t) {
		p.abort(t)
	}
}

func (p *Pixelator) writeFrame(t *Task, i, total, cells int, frame *raster.Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != t || t.ctx.Err() != nil {
		return false
	}
	p.out = frame
	p.status.Step = i + 1
	p.status.Cells = cells
	p.status.Progress = (200*(i+1) + total) / (2 * total)
	p.status.Label = Label(i, total)
	p.logger.Debug("mosaic frame", "task", t.ID, "step", i+1, "cells", cells)
	return true
}

func (p *Pixelator) finalize(t *Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != t || t.ctx.Err() != nil {
		return false
	}
	p.status.Running = false
	p.status.Finalized = true
	p.status.Progress = 100
	p.finalizedAt = time.Now()
	p.logger.Info("mosaic finalized", "task", t.ID, "cells", p.status.Cells)
	return true
}

func (p *Pixelator) abort(t *Task) {
	t.err = causeOf(t.ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task == t {
		p.status.Running = false
		p.status.Error = t.err.Error()
	}
	p.logger.Info("mosaic run stopped", "task", t.ID, "reason", t.err)
}

func causeOf(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Status returns the current progress.
func (p *Pixelator) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.status
	s.Pulse = s.Finalized && time.Since(p.finalizedAt) < p.pulse
	return s
}

// Output returns a copy of the latest frame and whether the run that
// produced it was finalized.
func (p *Pixelator) Output() (*raster.Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return nil, false
	}
	return p.out.Clone(), p.status.Finalized
}

// Frame is the latest output together with the grid it was rendered at.
type Frame struct {
	Buffer    *raster.Buffer
	Cells     int
	Finalized bool
}

// Latest returns a copy of the latest frame with its cell count, read
// under one lock so the two always match. ok is false before the first
// frame.
func (p *Pixelator) Latest() (f Frame, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return Frame{}, false
	}
	return Frame{Buffer: p.out.Clone(), Cells: p.status.Cells, Finalized: p.status.Finalized}, true
}

// Export encodes the finished mosaic as PNG, scaled by factor.
func (p *Pixelator) Export(scale float64) (*raster.ExportResult, error) {
	out, finalized := p.Output()
	if out == nil || !finalized {
		return nil, ErrNotFinalized
	}
	res, err := raster.ExportPNG(out.Image(), scale)
	if err != nil {
		return nil, fmt.Errorf("failed to export mosaic: %w", err)
	}
	return res, nil
}
