package mosaic

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// waitForStep polls until the pixelator has written at least step frames.
func waitForStep(t *testing.T, p *Pixelator, step int) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := p.Status(); s.Step >= step {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pixelator did not reach step %d", step)
	return Status{}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPixelator_RunCompletes(t *testing.T) {
	ctx := testContext(t)
	src := createGradient(90, 70)
	p := NewPixelator(WithSize(64), WithTarget(16), WithInterval(time.Millisecond), WithPulse(time.Hour))

	task, err := p.Run(ctx, src, Plan{Cells: []int{4, 8, 16}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := task.Wait(ctx); err != nil {
		t.Fatalf("task ended with %v", err)
	}

	s := p.Status()
	if s.Running || !s.Finalized {
		t.Errorf("status: got %+v, want finalized and stopped", s)
	}
	if s.Step != 3 || s.Total != 3 || s.Cells != 16 || s.Progress != 100 {
		t.Errorf("status: got %+v", s)
	}
	if !s.Pulse {
		t.Error("Pulse should be set right after completion")
	}
	if s.TaskID != task.ID {
		t.Errorf("TaskID: got %q, want %q", s.TaskID, task.ID)
	}

	out, finalized := p.Output()
	if !finalized {
		t.Error("Output should report finalized")
	}
	work, _ := Prepare(src, 64)
	if !out.Equal(Pixelate(work, 16)) {
		t.Error("final output differs from pixelating directly at the target grid")
	}

	res, err := p.Export(2)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Width != 128 || res.Height != 128 {
		t.Errorf("export size: got %dx%d, want 128x128", res.Width, res.Height)
	}
}

func TestPixelator_PulseExpires(t *testing.T) {
	ctx := testContext(t)
	p := NewPixelator(WithSize(16), WithTarget(0), WithInterval(time.Millisecond), WithPulse(0))

	task, err := p.Run(ctx, createGradient(16, 16), Plan{Cells: []int{2}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := task.Wait(ctx); err != nil {
		t.Fatalf("task ended with %v", err)
	}
	if s := p.Status(); !s.Finalized || s.Pulse {
		t.Errorf("status: got %+v, want finalized without pulse", s)
	}
}

func TestPixelator_RejectsBeforeStateChange(t *testing.T) {
	ctx := testContext(t)
	p := NewPixelator(WithSize(32), WithTarget(16))

	tests := []struct {
		name    string
		plan    Plan
		wantErr error
		src     bool
	}{
		{"misses target", Plan{Cells: []int{4, 8}}, ErrInvalidPlan, true},
		{"empty plan", Plan{}, ErrInvalidPlan, true},
		{"missing source", Plan{Cells: []int{16}}, raster.ErrSourceLoad, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.src {
				_, err = p.Run(ctx, createGradient(8, 8), tt.plan)
			} else {
				_, err = p.Run(ctx, nil, tt.plan)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run: got %v, want %v", err, tt.wantErr)
			}
		})
	}

	if out, _ := p.Output(); out != nil {
		t.Error("rejected runs produced output")
	}
	if s := p.Status(); s.Running || s.TaskID != "" {
		t.Errorf("status changed by rejected runs: %+v", s)
	}
}

func TestPixelator_Supersede(t *testing.T) {
	ctx := testContext(t)
	p := NewPixelator(WithSize(32), WithTarget(8), WithInterval(time.Hour))

	first, err := p.Run(ctx, createGradient(32, 32), Plan{Cells: []int{2, 4, 8}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	waitForStep(t, p, 1)

	if _, err := p.Export(1); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("Export mid-run: got %v, want ErrNotFinalized", err)
	}

	second, err := p.Run(ctx, createGradient(40, 20), Plan{Cells: []int{8}})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	// Run waits for the first task before returning.
	select {
	case <-first.Done():
	default:
		t.Fatal("superseded task still running after Run returned")
	}
	if !errors.Is(first.Err(), ErrSuperseded) {
		t.Errorf("first task: got %v, want ErrSuperseded", first.Err())
	}

	s := waitForStep(t, p, 1)
	if s.TaskID != second.ID || s.Total != 1 || s.Cells != 8 {
		t.Errorf("status does not describe the new run: %+v", s)
	}
	work, _ := Prepare(createGradient(40, 20), 32)
	out, _ := p.Output()
	if !out.Equal(Pixelate(work, 8)) {
		t.Error("output is not the new run's frame")
	}

	if !p.Cancel() {
		t.Error("Cancel should report a running task")
	}
	if !errors.Is(second.Err(), ErrCancelled) {
		t.Errorf("second task: got %v, want ErrCancelled", second.Err())
	}
	if s := p.Status(); s.Running || s.Finalized || s.Error == "" {
		t.Errorf("status after cancel: %+v", s)
	}
	if p.Cancel() {
		t.Error("second Cancel should report nothing to cancel")
	}
}

func TestPixelator_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPixelator(WithSize(16), WithTarget(0), WithInterval(time.Hour))

	task, err := p.Run(ctx, createGradient(16, 16), Plan{Cells: []int{2, 4}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	cancel()

	wctx := testContext(t)
	if err := task.Wait(wctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait: got %v, want context.Canceled", err)
	}
}

func TestPixelator_LatestPairsFrameWithCells(t *testing.T) {
	ctx := testContext(t)
	p := NewPixelator(WithSize(32), WithTarget(0), WithInterval(time.Hour))
	if _, ok := p.Latest(); ok {
		t.Fatal("Latest before any run should report no frame")
	}

	src := createGradient(32, 32)
	if _, err := p.Run(ctx, src, Plan{Cells: []int{2, 8}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer p.Cancel()
	waitForStep(t, p, 1)

	f, ok := p.Latest()
	if !ok {
		t.Fatal("Latest: no frame after the first step")
	}
	if f.Cells != 2 || f.Finalized {
		t.Errorf("frame: cells=%d finalized=%v, want 2 and false", f.Cells, f.Finalized)
	}
	work, _ := Prepare(src, 32)
	if !f.Buffer.Equal(Pixelate(work, 2)) {
		t.Error("frame buffer does not match its cell count")
	}
	grid := GridOverlay(f.Buffer.Image(), f.Cells, color.NRGBA{A: 255})
	if got := grid.Get(16, 5); got != (color.NRGBA{A: 255}) {
		t.Errorf("grid line at the 2-cell boundary: got %v", got)
	}
}
