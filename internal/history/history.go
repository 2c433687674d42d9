// Package history keeps the linear undo history of a coloring session.
//
// Each entry is a full raster.Snapshot taken at a completion point: a fill
// that changed pixels, the end of a brush stroke, a committed overlay, or a
// freshly loaded base image. The cursor points at the entry that matches
// the buffer on screen.
//
// Pushing after an undo discards every entry past the cursor, so the
// history never branches. There is no redo.
//
// Full-buffer copies dominate memory use. A Stack can be capped with
// WithCapacity, which drops the oldest entries, and can keep entries
// zstd-compressed with WithCompression; coloring pages are mostly flat
// regions and compress well.
package history

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// ErrUnderflow is returned by Undo when the cursor is already at the oldest
// entry (or the stack is empty). It signals a no-op, not a failure.
var ErrUnderflow = errors.New("nothing to undo")

// entry stores a snapshot either as-is or as a compressed payload.
type entry struct {
	snap       raster.Snapshot
	compressed []byte
	width      int
	height     int
}

func (e entry) size() int {
	if e.compressed != nil {
		return len(e.compressed)
	}
	return e.snap.Len()
}

// Stack is an ordered list of snapshots plus a cursor.
//
// The cursor is -1 when the stack is empty and always within [0, Len()-1]
// otherwise. Stack is not safe for concurrent use.
type Stack struct {
	entries  []entry
	cursor   int
	capacity int

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Option configures a Stack.
type Option func(*Stack) error

// WithCapacity bounds the number of retained entries. When a push exceeds
// the bound the oldest entry is dropped. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(s *Stack) error {
		if n < 0 {
			return fmt.Errorf("history capacity must be >= 0, got %d", n)
		}
		s.capacity = n
		return nil
	}
}

// WithCompression stores entries zstd-compressed.
func WithCompression() Option {
	return func(s *Stack) error {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		s.enc, s.dec = enc, dec
		return nil
	}
}

// New creates an empty stack.
func New(opts ...Option) (*Stack, error) {
	s := &Stack{cursor: -1}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Push drops every entry after the cursor, appends snap and moves the
// cursor onto it.
func (s *Stack) Push(snap raster.Snapshot) {
	s.entries = s.entries[:s.cursor+1]
	s.entries = append(s.entries, s.pack(snap))

	if s.capacity > 0 && len(s.entries) > s.capacity {
		drop := len(s.entries) - s.capacity
		s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	}
	s.cursor = len(s.entries) - 1
}

// Undo moves the cursor back one entry and returns the snapshot to restore.
// At the oldest entry it returns ErrUnderflow and leaves the cursor alone.
func (s *Stack) Undo() (raster.Snapshot, error) {
	if s.cursor <= 0 {
		return raster.Snapshot{}, ErrUnderflow
	}
	snap, err := s.unpack(s.entries[s.cursor-1])
	if err != nil {
		return raster.Snapshot{}, err
	}
	s.cursor--
	return snap, nil
}

// Current returns the entry under the cursor. ok is false when empty.
func (s *Stack) Current() (snap raster.Snapshot, ok bool, err error) {
	if s.cursor < 0 {
		return raster.Snapshot{}, false, nil
	}
	snap, err = s.unpack(s.entries[s.cursor])
	return snap, err == nil, err
}

// Reset drops every entry.
func (s *Stack) Reset() {
	s.entries = nil
	s.cursor = -1
}

// Len returns the number of retained entries.
func (s *Stack) Len() int { return len(s.entries) }

// Cursor returns the index of the current entry, or -1 when empty.
func (s *Stack) Cursor() int { return s.cursor }

// CanUndo reports whether Undo would succeed.
func (s *Stack) CanUndo() bool { return s.cursor > 0 }

// Stats summarises the stack for status reporting.
type Stats struct {
	Entries     int  `json:"entries"`
	Cursor      int  `json:"cursor"`
	Capacity    int  `json:"capacity"`
	Compressed  bool `json:"compressed"`
	StoredBytes int  `json:"stored_bytes"`
}

// Stats returns the current entry count, cursor and memory footprint.
func (s *Stack) Stats() Stats {
	st := Stats{
		Entries:    len(s.entries),
		Cursor:     s.cursor,
		Capacity:   s.capacity,
		Compressed: s.enc != nil,
	}
	for _, e := range s.entries {
		st.StoredBytes += e.size()
	}
	return st
}

func (s *Stack) pack(snap raster.Snapshot) entry {
	if s.enc == nil {
		return entry{snap: snap, width: snap.Width(), height: snap.Height()}
	}
	return entry{
		compressed: s.enc.EncodeAll(snap.Bytes(), nil),
		width:      snap.Width(),
		height:     snap.Height(),
	}
}

func (s *Stack) unpack(e entry) (raster.Snapshot, error) {
	if e.compressed == nil {
		return e.snap, nil
	}
	pix, err := s.dec.DecodeAll(e.compressed, nil)
	if err != nil {
		return raster.Snapshot{}, fmt.Errorf("failed to decompress history entry: %w", err)
	}
	return raster.NewSnapshot(e.width, e.height, pix)
}
