package terrain

import (
	"context"
	"math"
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultStreamRadius is the radius, in world units, for CreateStreamingHandler
// callers that don't specify one.
const DefaultStreamRadius = 8

// defaultWorkerInterval is the pause between worker passes.
const defaultWorkerInterval = 500 * time.Millisecond

// StreamingHandle is a client-held declaration of a world position and
// radius. It is dirty whenever position has changed, or radius has grown,
// since the engine last serviced it.
type StreamingHandle struct {
	id uuid.UUID

	mu       sync.Mutex
	position Vec2
	radius   uint8
	dirty    bool
}

// ID uniquely identifies the handle, for use with Store.RemoveHandler.
func (h *StreamingHandle) ID() uuid.UUID {
	return h.id
}

// Position returns the handle's current declared position.
func (h *StreamingHandle) Position() Vec2 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// SetPosition updates the declared position, marking the handle dirty iff
// it actually changed.
func (h *StreamingHandle) SetPosition(p Vec2) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p != h.position {
		h.position = p
		h.dirty = true
	}
}

// Radius returns the handle's current declared radius, in world units
// around Position.
func (h *StreamingHandle) Radius() uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.radius
}

// SetRadius updates the declared radius. The handle is marked dirty only
// when the radius grows; shrinking never triggers a load.
func (h *StreamingHandle) SetRadius(r uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r > h.radius {
		h.dirty = true
	}
	h.radius = r
}

// Dirty reports whether the handle has pending state the worker has not
// yet serviced.
func (h *StreamingHandle) Dirty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirty
}

func (h *StreamingHandle) snapshot() (pos Vec2, radius uint8, dirty bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position, h.radius, h.dirty
}

// clearDirty clears the dirty flag only if position and radius still match
// the snapshot that was serviced, so a change made during the load keeps
// the handle dirty for the next pass.
func (h *StreamingHandle) clearDirty(pos Vec2, radius uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.position == pos && h.radius == radius {
		h.dirty = false
	}
}

// handleRef is a weak reference to a client-held StreamingHandle, paired
// with its ID so RemoveHandler can unlink it without waiting for GC.
type handleRef struct {
	id   uuid.UUID
	weak weak.Pointer[StreamingHandle]
}

// streamState holds everything the background worker needs that isn't
// already on Store, kept separate so a Store with no streaming handles
// never pays for a running goroutine.
type streamState struct {
	mu       sync.Mutex
	handles  []handleRef
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
	limiter  *rate.Limiter
}

// WithStreamWorkerInterval overrides the 500ms pause between worker
// passes.
func WithStreamWorkerInterval(d time.Duration) Option {
	return func(s *Store) { s.ensureStreaming().interval = d }
}

// WithPrefetchRate throttles the streaming worker's per-chunk disk I/O to
// at most eventsPerSecond chunk loads per second, bursting up to burst.
func WithPrefetchRate(eventsPerSecond float64, burst int) Option {
	return func(s *Store) {
		s.ensureStreaming().limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
	}
}

func (s *Store) ensureStreaming() *streamState {
	if s.streaming == nil {
		s.streaming = &streamState{interval: defaultWorkerInterval}
	}
	return s.streaming
}

// CreateStreamingHandler allocates a StreamingHandle with the given
// radius, registers a weak reference to it, and starts the background
// worker if it is not already running. The handle begins dirty.
func (s *Store) CreateStreamingHandler(radius uint8) *StreamingHandle {
	h := &StreamingHandle{id: uuid.New(), radius: radius, dirty: true}

	st := s.ensureStreaming()
	st.mu.Lock()
	st.handles = append(st.handles, handleRef{id: h.id, weak: weak.Make(h)})
	needStart := !st.running
	if needStart {
		st.running = true
		st.stopCh = make(chan struct{})
		st.doneCh = make(chan struct{})
	}
	st.mu.Unlock()

	if needStart {
		go s.runWorker(st)
	}
	return h
}

// RemoveHandler explicitly unregisters the handle with the given ID,
// rather than relying on its weak reference being pruned after the client
// drops it. It fails with ErrMissing if no handle with that ID is
// registered.
func (s *Store) RemoveHandler(id uuid.UUID) error {
	st := s.streaming
	if st == nil {
		return errMissingHandle(id)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, ref := range st.handles {
		if ref.id == id {
			st.handles = append(st.handles[:i], st.handles[i+1:]...)
			return nil
		}
	}
	return errMissingHandle(id)
}

func errMissingHandle(id uuid.UUID) error {
	return &handleNotFoundError{id: id}
}

type handleNotFoundError struct{ id uuid.UUID }

func (e *handleNotFoundError) Error() string {
	return "terrain: streaming handle " + e.id.String() + " not found"
}

func (e *handleNotFoundError) Is(target error) bool {
	return target == ErrMissing
}

func (s *Store) stopWorker() {
	st := s.streaming
	if st == nil {
		return
	}
	st.mu.Lock()
	running := st.running
	stopCh := st.stopCh
	doneCh := st.doneCh
	st.mu.Unlock()
	if !running {
		return
	}
	close(stopCh)
	<-doneCh
}

// runWorker is the background streaming loop: until stopped, it scans the
// handle list, services each dirty one with a region load, and sleeps
// between passes. It keeps running when no live handles remain.
func (s *Store) runWorker(st *streamState) {
	defer close(st.doneCh)
	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()

	for {
		select {
		case <-st.stopCh:
			return
		case <-ticker.C:
			s.runWorkerPass(st)
		}
	}
}

func (s *Store) runWorkerPass(st *streamState) {
	st.mu.Lock()
	live := make([]*StreamingHandle, 0, len(st.handles))
	kept := st.handles[:0]
	for _, ref := range st.handles {
		if h := ref.weak.Value(); h != nil {
			live = append(live, h)
			kept = append(kept, ref)
		}
		// dead weak references are dropped by omission from kept.
	}
	st.handles = kept
	st.mu.Unlock()

	for _, h := range live {
		pos, radius, dirty := h.snapshot()
		if radius < 1 || !dirty {
			continue
		}
		if err := s.loadRegion(pos, radius, st.limiter); err != nil {
			s.log.Error("streaming region load failed", "error", err)
			continue
		}
		h.clearDirty(pos, radius)
	}
}

// loadRegion computes the rectangular chunk region around pos±radius and
// pulls every chunk in it through the cache, writing back any evictees.
// OQ4 resolution: the raster scan uses the region's own width for both the
// column and row stride, instead of mixing width and height as the
// published formula did.
func (s *Store) loadRegion(pos Vec2, radius uint8, limiter *rate.Limiter) error {
	r := float64(radius)
	topLeft := clampRegionCorner(Vec2{X: pos.X - r, Z: pos.Z - r}, s.width, s.height)
	bottomRight := clampRegionCorner(Vec2{X: pos.X + r, Z: pos.Z + r}, s.width, s.height)

	span := bottomRight.Sub(topLeft)
	w := span.X + 1
	h := span.Z + 1
	total := w * h

	for i := uint32(0); i < total; i++ {
		x := topLeft.X + i%w
		z := topLeft.Z + i/w
		if x >= s.width || z >= s.height {
			continue
		}
		coord := Coord2{X: x, Z: z}

		if _, ok := s.cache.Get(coord); ok {
			continue
		}

		chunk, err := s.readChunk(coord)
		if err != nil {
			return err
		}
		s.insertAndWriteBack(coord, chunk)
		s.publishChunkLoaded(coord, chunk)

		if limiter != nil {
			_ = limiter.Wait(context.Background())
		}
	}
	return nil
}

// clampRegionCorner maps a world position to the nearest in-bounds chunk
// coordinate. The clamp happens in signed space: a corner past the
// negative edge pins to 0, not to the wrapped unsigned value.
func clampRegionCorner(p Vec2, width, height uint32) Coord2 {
	cx := int64(math.Floor(p.X / chunkWorldSize))
	cz := int64(math.Floor(p.Z / chunkWorldSize))
	return Coord2{
		X: clampI64(cx, width),
		Z: clampI64(cz, height),
	}
}

func clampI64(v int64, limit uint32) uint32 {
	if v < 0 {
		return 0
	}
	if limit > 0 && v >= int64(limit) {
		return limit - 1
	}
	return uint32(v)
}
