package vmix

import (
	"sync/atomic"
	"time"
)

// SourceMode is the lifecycle state of a source.
type SourceMode uint8

const (
	ModeUninitialized SourceMode = iota // waiting for the first producer frame
	ModeVisible
	ModeSelected
	ModeCurrent
)

var sourceModeNames = [...]string{"uninitialized", "visible", "selected", "current"}

func (m SourceMode) String() string {
	if int(m) < len(sourceModeNames) {
		return sourceModeNames[m]
	}
	return "unknown"
}

// sourceIDCounter is seeded from the clock so ids from documents written by
// earlier runs do not collide with new ones.
var sourceIDCounter atomic.Uint64

func init() {
	sourceIDCounter.Store(uint64(time.Now().UnixNano()))
}

// NewID returns a process-wide unique id.
func NewID() uint64 {
	return sourceIDCounter.Add(1)
}

// Source is one layer of the composition: a producer plus the four
// transform spaces that decide how its frames are mixed into the session.
type Source struct {
	SourceCore

	id       uint64
	name     string
	producer Producer
	session  *Session

	mode      SourceMode
	locked    bool
	active    bool
	workspace Workspace

	renderbuffer *FrameBuffer
	mask         *maskBuffer
	proc         *processor
	texture      Mat4

	callbacks []*SourceCallback
	clones    []uint64
	group     *MixingGroup
	follow    uint64

	dirty     bool
	maskDirty bool
	maskErr   bool
	closed    bool
}

// NewSource creates a source around p with a fresh id.
func NewSource(name string, p Producer) *Source {
	return newSourceWithID(NewID(), name, p)
}

func newSourceWithID(id uint64, name string, p Producer) *Source {
	if p == nil {
		panic("vmix: NewSource with nil producer")
	}
	s := &Source{
		SourceCore: newSourceCore(),
		id:         id,
		name:       name,
		producer:   p,
		active:     true,
		texture:    Identity4(),
		dirty:      true,
	}
	s.Node(ViewLayer).SetTranslation(layerPosition(DepthForWorkspace(WorkspaceStage), 1))
	s.workspace = WorkspaceStage
	return s
}

func (s *Source) ID() uint64         { return s.id }
func (s *Source) Name() string       { return s.name }
func (s *Source) Producer() Producer { return s.producer }
func (s *Source) Kind() Kind         { return s.producer.Kind() }
func (s *Source) Mode() SourceMode   { return s.mode }
func (s *Source) Locked() bool       { return s.locked }
func (s *Source) Active() bool       { return s.active }
func (s *Source) Session() *Session  { return s.session }

// Initialized reports whether the render buffer exists.
func (s *Source) Initialized() bool { return s.renderbuffer != nil }

// Ready reports whether the producer has emitted at least one frame.
func (s *Source) Ready() bool { return s.producer.Ready() }

// Failed reports whether the producer failed.
func (s *Source) Failed() bool { return s.producer.Failed() }

// SetMode changes the lifecycle state. Uninitialized sources stay
// uninitialized until their producer is ready.
func (s *Source) SetMode(m SourceMode) {
	if !s.Initialized() {
		return
	}
	if m == ModeUninitialized {
		m = ModeVisible
	}
	s.mode = m
}

// SetLocked locks or unlocks the source. Locked sources ignore transform
// callbacks.
func (s *Source) SetLocked(on bool) { s.locked = on }

// SetActive enables rendering. A source stays active while any of its
// clones is active.
func (s *Source) SetActive(on bool) {
	s.active = on || s.cloneActive()
}

func (s *Source) cloneActive() bool {
	if s.session == nil {
		return false
	}
	for _, id := range s.clones {
		if c := s.session.Find(id); c != nil && c.active {
			return true
		}
	}
	return false
}

// Alpha returns the blending alpha derived from the Mixing position at the
// last update.
func (s *Source) Alpha() float64 { return s.blending.Color.A }

// SetAlpha moves the Mixing position so that the alpha becomes a.
func (s *Source) SetAlpha(a float64) {
	n := s.Node(ViewMixing)
	pos := MixingPositionForAlpha(n.Translation.XY(), a)
	n.SetTranslation(Vec3{pos.X, pos.Y, n.Translation.Z})
	s.touch()
}

// MixingDistance returns the distance of the Mixing position to the center.
func (s *Source) MixingDistance() float64 {
	return s.Node(ViewMixing).Translation.XY().Len()
}

// Depth returns the Layer depth.
func (s *Source) Depth() float64 { return s.Node(ViewLayer).Translation.Z }

// SetDepth moves the source in the Layer space. Depth is clamped to
// [MinDepth, MaxDepth].
func (s *Source) SetDepth(d float64) {
	n := s.Node(ViewLayer)
	n.SetTranslation(Vec3{n.Translation.X, n.Translation.Y, clampDepth(d)})
	s.touch()
}

// Workspace returns the workspace derived from depth at the last update.
func (s *Source) Workspace() Workspace { return s.workspace }

// SetBlendMode sets the compositing operation.
func (s *Source) SetBlendMode(m BlendMode) { s.blending.Mode = m }

// SetTint sets the color multiplier. The alpha stays derived from the
// Mixing position.
func (s *Source) SetTint(c Color) {
	s.blending.Color = Color{c.R, c.G, c.B, s.blending.Color.A}
}

// SetMask replaces the mask parameters. The mask is rebuilt on the next
// update.
func (s *Source) SetMask(m Mask) {
	s.blending.Mask = m
	s.maskDirty = true
	s.maskErr = false
	s.touch()
}

// Paint adds a stroke to a paint mask.
func (s *Source) Paint(stroke PaintStroke) {
	if s.blending.Mask.Mode != MaskPaint {
		return
	}
	s.blending.Mask.Strokes = append(s.blending.Mask.Strokes, stroke)
}

// TextureMatrix returns the UV transform computed at the last update.
func (s *Source) TextureMatrix() Mat4 { return s.texture }

// RenderBuffer returns the rendered frame, or nil before initialization.
func (s *Source) RenderBuffer() *FrameBuffer { return s.renderbuffer }

// Group returns the mixing group the source belongs to, or nil.
func (s *Source) Group() *MixingGroup { return s.group }

// Clones returns the ids of the source's clones.
func (s *Source) Clones() []uint64 { return append([]uint64(nil), s.clones...) }

// IsClone reports whether the source renders another source.
func (s *Source) IsClone() bool {
	_, ok := s.producer.(*CloneProducer)
	return ok
}

// Origin returns the id of the cloned source, or 0.
func (s *Source) Origin() uint64 {
	if cp, ok := s.producer.(*CloneProducer); ok {
		return cp.origin
	}
	return 0
}

// Follow copies the image processing of target every frame until target
// disables processing or leaves the session. Pass nil to stop.
func (s *Source) Follow(target *Source) {
	if target == nil || target == s {
		s.follow = 0
		return
	}
	s.follow = target.id
}

// Following returns the id of the followed source, or 0.
func (s *Source) Following() uint64 { return s.follow }

func (s *Source) Play(on bool)            { s.producer.Play(on) }
func (s *Source) Playing() bool           { return s.producer.Playing() }
func (s *Source) Replay()                 { s.producer.Replay() }
func (s *Source) Position() time.Duration { return s.producer.Position() }

// AddCallback queues a timed change. Callbacks run in order at the start
// of each update.
func (s *Source) AddCallback(c *SourceCallback) {
	if c != nil {
		s.callbacks = append(s.callbacks, c)
	}
}

// PendingCallbacks returns the number of unfinished callbacks.
func (s *Source) PendingCallbacks() int { return len(s.callbacks) }

// ClearCallbacks drops every pending callback.
func (s *Source) ClearCallbacks() {
	clear(s.callbacks)
	s.callbacks = s.callbacks[:0]
}

// Touch forces the derived state to be recomputed on the next update.
func (s *Source) Touch() { s.touch() }

func (s *Source) touch() { s.dirty = true }

func (s *Source) needsUpdate() bool {
	if s.dirty {
		return true
	}
	for _, n := range s.nodes {
		if n.Dirty() {
			return true
		}
	}
	return false
}

// Update runs callbacks, advances the producer, initializes the render
// buffer once the producer is ready and recomputes derived state when any
// transform changed.
func (s *Source) Update(dt float64) {
	if len(s.callbacks) > 0 {
		pending := s.callbacks
		s.callbacks = nil
		kept := pending[:0]
		for _, c := range pending {
			c.update(s, dt)
			if !c.done {
				kept = append(kept, c)
			}
		}
		clear(pending[len(kept):])
		s.callbacks = append(kept, s.callbacks...)
	}

	s.producer.Update(dt)
	if !s.Initialized() {
		s.init()
	}
	if s.needsUpdate() {
		s.recompute()
	}
	s.followProcessing()
}

func (s *Source) init() {
	if !s.producer.Ready() || s.closed {
		return
	}
	w, h := s.producer.Resolution()
	if (w <= 0 || h <= 0) && s.producer.Frame() != nil {
		b := s.producer.Frame().Bounds()
		w, h = b.Dx(), b.Dy()
	}
	s.renderbuffer = NewFrameBuffer(w, h)
	s.mask = newMaskBuffer(w, h)
	s.proc = newProcessor()
	s.mode = ModeVisible
	s.maskDirty = true
	s.dirty = true
	Logger().Debug("source initialized", "source", s.name, "kind", s.Kind(), "width", w, "height", h)
}

func (s *Source) aspectRatio() float64 {
	if s.renderbuffer != nil {
		return s.renderbuffer.AspectRatio()
	}
	if w, h := s.producer.Resolution(); w > 0 && h > 0 {
		return float64(w) / float64(h)
	}
	return 1
}

// recompute derives alpha, rendering placement, crop, depth layout,
// workspace and the texture matrix from the transform nodes.
func (s *Source) recompute() {
	mix := s.Node(ViewMixing)
	s.blending.Color.A = AlphaFromCoordinates(mix.Translation.X, mix.Translation.Y)

	geo := s.Node(ViewGeometry)
	sc := Vec3{clampScale(geo.Scale.X), clampScale(geo.Scale.Y), 1}
	if sc != geo.Scale {
		geo.SetScale(sc)
	}
	s.Node(ViewRendering).CopyFrom(geo)
	if s.renderbuffer != nil {
		s.renderbuffer.SetProjectionArea(geo.Crop.XY())
	}

	ar := s.aspectRatio()
	layer := s.Node(ViewLayer)
	depth := clampDepth(layer.Translation.Z)
	if p := layerPosition(depth, ar); p != layer.Translation {
		layer.SetTranslation(p)
	}
	s.workspace = WorkspaceForDepth(depth)

	s.texture = textureMatrix(s.Node(ViewTexture), ar)

	if s.maskDirty && s.mask != nil {
		s.mask.invalidate()
		s.maskDirty = false
	}
	for _, n := range s.nodes {
		n.Update()
	}
	s.dirty = false
}

func (s *Source) followProcessing() {
	if s.follow == 0 {
		return
	}
	var target *Source
	if s.session != nil {
		target = s.session.Find(s.follow)
	}
	if target == nil || !target.ProcessingEnabled() {
		s.follow = 0
		return
	}
	s.SetProcessingEnabled(true)
	s.SetProcessing(target.ConfiguredProcessing())
}

// Render draws the producer frame into the render buffer through the image
// processing and the mask. Inactive or uninitialized sources are skipped.
func (s *Source) Render() {
	if !s.active || !s.Initialized() || s.producer.Failed() {
		return
	}
	frame := s.producer.Frame()
	if frame == nil {
		return
	}
	if w, h := s.producer.Resolution(); w > 0 && h > 0 && (w != s.renderbuffer.w || h != s.renderbuffer.h) {
		s.renderbuffer.Resize(w, h)
		s.mask.dispose()
		s.mask = newMaskBuffer(w, h)
		s.touch()
	}
	s.proc.draw(frame, s.renderbuffer, s.Processing())

	if s.blending.Mask.Mode == MaskNone {
		return
	}
	if err := s.mask.update(&s.blending.Mask); err != nil && !s.maskErr {
		Logger().Warn("mask update failed", "source", s.name, "error", err)
		s.maskErr = true
	}
	s.mask.apply(s.renderbuffer)
}

// Close releases the producer and every buffer. The source must not be
// used afterwards.
func (s *Source) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if err := s.producer.Close(); err != nil {
		Logger().Warn("producer close failed", "source", s.name, "error", err)
	}
	if s.renderbuffer != nil {
		s.renderbuffer.Dispose()
		s.renderbuffer = nil
	}
	if s.mask != nil {
		s.mask.dispose()
		s.mask = nil
	}
	if s.proc != nil {
		s.proc.dispose()
		s.proc = nil
	}
	s.callbacks = nil
}
