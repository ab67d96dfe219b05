package vmix

import (
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// SessionConfig holds the settings shared by a session and the sessions
// nested in it.
type SessionConfig struct {
	Width  int
	Height int
	// ActivationThreshold is the Mixing distance beyond which sources stop
	// rendering.
	ActivationThreshold float64
}

// DefaultSessionConfig returns a 1280x720 session with the default
// activation threshold.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Width: 1280, Height: 720, ActivationThreshold: 1}
}

// Session is an ordered set of sources composited into one output frame.
//
// Session methods must be called from the update goroutine. Update and the
// structural mutators (Add, Remove, Move, Link and state restores) take the
// session lock, so another goroutine holding Lock can walk the sources.
type Session struct {
	mu     sync.Mutex
	config SessionConfig

	sources []*Source
	groups  []*MixingGroup
	views   [numViews]*TransformNode
	fading  fading
	output  *FrameBuffer
	actions *ActionManager

	notes      []Note
	playGroups []PlayGroup
	thumbs     []*ThumbnailRequest
	capture    func(*FrameBuffer) (image.Image, error)

	// filename is the document the session was loaded from or saved to.
	filename string

	drawList []*Source
	vs       []ebiten.Vertex
	is       []uint16
	op       ebiten.DrawTrianglesOptions
	debug    bool
	closed   bool
}

// NewSession creates an empty session.
func NewSession(cfg SessionConfig) *Session {
	def := DefaultSessionConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.ActivationThreshold <= 0 {
		cfg.ActivationThreshold = def.ActivationThreshold
	}
	s := &Session{
		config:  cfg,
		output:  NewFrameBuffer(cfg.Width, cfg.Height),
		capture: readFrame,
		vs:      make([]ebiten.Vertex, 4),
		is:      []uint16{0, 1, 2, 0, 2, 3},
	}
	for i := range s.views {
		s.views[i] = NewTransformNode()
	}
	s.actions = newActionManager(s)
	s.op.Address = ebiten.AddressClampToZero
	s.op.Filter = ebiten.FilterLinear
	s.op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	return s
}

// Lock blocks updates and structural changes while another goroutine walks
// the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases Lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Config returns the session settings.
func (s *Session) Config() SessionConfig { return s.config }

// Resolution returns the output size in pixels.
func (s *Session) Resolution() (int, int) { return s.output.Resolution() }

// Output returns the composited frame.
func (s *Session) Output() *FrameBuffer { return s.output }

// Filename returns the document path of the session, if any.
func (s *Session) Filename() string { return s.filename }

// SetFilename records the document path of the session.
func (s *Session) SetFilename(name string) { s.filename = name }

// View returns the pan and zoom node of a view.
func (s *Session) View(mode ViewMode) *TransformNode {
	if mode >= numViews {
		panic(fmt.Sprintf("vmix: invalid view mode %d", mode))
	}
	return s.views[mode]
}

// Actions returns the undo timeline and snapshots of the session.
func (s *Session) Actions() *ActionManager { return s.actions }

// Fading returns the current fade-to-black amount in [0, 1].
func (s *Session) Fading() float64 { return s.fading.value }

// SetFading fades to the target amount over duration. A zero duration
// applies it immediately.
func (s *Session) SetFading(target float64, duration time.Duration) {
	s.fading.set(target, duration.Seconds())
}

// Len returns the number of sources.
func (s *Session) Len() int { return len(s.sources) }

// Empty reports whether the session has no source.
func (s *Session) Empty() bool { return len(s.sources) == 0 }

// Sources returns the sources in insertion order.
func (s *Session) Sources() []*Source { return slices.Clone(s.sources) }

// Find returns the source with the given id, or nil.
func (s *Session) Find(id uint64) *Source {
	if id == 0 {
		return nil
	}
	for _, src := range s.sources {
		if src.id == id {
			return src
		}
	}
	return nil
}

// FindByName returns the source with the given name, or nil.
func (s *Session) FindByName(name string) *Source {
	for _, src := range s.sources {
		if src.name == name {
			return src
		}
	}
	return nil
}

// Index returns the position of src, or -1.
func (s *Session) Index(src *Source) int { return slices.Index(s.sources, src) }

// At returns the source at index i, or nil.
func (s *Session) At(i int) *Source {
	if i < 0 || i >= len(s.sources) {
		return nil
	}
	return s.sources[i]
}

// Move places src at index, shifting the others.
func (s *Session) Move(src *Source, index int) {
	from := s.Index(src)
	if from < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index = max(0, min(index, len(s.sources)-1))
	s.sources = slices.Delete(s.sources, from, from+1)
	s.sources = slices.Insert(s.sources, index, src)
}

// uniqueName returns name, or name_N with the smallest N not already used.
func (s *Session) uniqueName(name string, self *Source) string {
	taken := func(n string) bool {
		o := s.FindByName(n)
		return o != nil && o != self
	}
	if !taken(name) {
		return name
	}
	base := name
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		var n int
		if _, err := fmt.Sscanf(name[i+1:], "%d", &n); err == nil && fmt.Sprint(n) == name[i+1:] {
			base = name[:i]
		}
	}
	for i := 1; ; i++ {
		if candidate := fmt.Sprintf("%s_%d", base, i); !taken(candidate) {
			return candidate
		}
	}
}

// Add appends src with a unique name and returns it.
func (s *Session) Add(src *Source) *Source {
	if src == nil {
		panic("vmix: Session.Add with nil source")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Find(src.id) != nil {
		return src
	}
	if src.name == "" {
		src.name = string(src.Kind())
	}
	src.name = s.uniqueName(src.name, src)
	s.insert(src)
	Logger().Debug("source added", "source", src.name, "kind", src.Kind(), "id", src.id)
	return src
}

// insert appends src without renaming it. s.mu must be held.
func (s *Session) insert(src *Source) {
	src.session = s
	if b, ok := src.producer.(sessionBinder); ok {
		b.bindSession(s, src)
	}
	if origin := s.Find(src.Origin()); origin != nil && !slices.Contains(origin.clones, src.id) {
		origin.clones = append(origin.clones, src.id)
	}
	s.sources = append(s.sources, src)
}

// Rename gives src a unique name derived from name.
func (s *Session) Rename(src *Source, name string) {
	if name == "" {
		return
	}
	src.name = s.uniqueName(name, src)
}

// Remove takes src out of the session without closing it. Its clones are
// detached and fail on their next update.
func (s *Session) Remove(src *Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(src)
}

// remove is Remove with s.mu held.
func (s *Session) remove(src *Source) bool {
	i := s.Index(src)
	if i < 0 {
		return false
	}
	s.Unlink(src)
	for _, id := range src.clones {
		if c := s.Find(id); c != nil {
			if cp, ok := c.producer.(*CloneProducer); ok {
				cp.detach()
			}
		}
	}
	src.clones = nil
	if origin := s.Find(src.Origin()); origin != nil {
		origin.clones = slices.DeleteFunc(origin.clones, func(id uint64) bool { return id == src.id })
	}
	for _, other := range s.sources {
		if other.follow == src.id {
			other.follow = 0
		}
	}
	s.forgetPlayMember(src.id)
	s.sources = slices.Delete(s.sources, i, i+1)
	src.session = nil
	Logger().Debug("source removed", "source", src.name, "id", src.id)
	return true
}

// Clone adds a clone of src. Cloning a clone clones its origin.
func (s *Session) Clone(src *Source) *Source {
	origin := src
	if o := s.Find(src.Origin()); o != nil {
		origin = o
	}
	c := NewSource(origin.name, newCloneProducer(origin.id))
	c.copyCoreFrom(&origin.SourceCore)
	c.activeProcessing, c.inactiveProcessing = NeutralProcessing(), NeutralProcessing()
	c.processingEnabled = false
	return s.Add(c)
}

// Link groups sources in the Mixing view. Each source leaves its previous
// group first.
func (s *Session) Link(sources ...*Source) *MixingGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link(sources)
}

// link is Link with s.mu held.
func (s *Session) link(sources []*Source) *MixingGroup {
	members := make([]*Source, 0, len(sources))
	for _, src := range sources {
		if src != nil && s.Index(src) >= 0 && !slices.Contains(members, src) {
			members = append(members, src)
		}
	}
	if len(members) < 2 {
		panic("vmix: Link needs at least two sources of the session")
	}
	for _, src := range members {
		s.Unlink(src)
	}
	g := newMixingGroup(members)
	s.groups = append(s.groups, g)
	return g
}

// Unlink removes src from its mixing group.
func (s *Session) Unlink(src *Source) {
	if src.group != nil {
		src.group.Detach(src)
	}
}

// Groups returns the mixing groups.
func (s *Session) Groups() []*MixingGroup { return slices.Clone(s.groups) }

func (s *Session) pruneGroups() {
	s.groups = slices.DeleteFunc(s.groups, func(g *MixingGroup) bool {
		if g.Valid() {
			g.update()
			return false
		}
		g.detachAll()
		return true
	})
}

// resize changes the output resolution.
func (s *Session) resize(w, h int) {
	s.config.Width, s.config.Height = w, h
	s.output.Resize(w, h)
}

// Update advances every source by dt seconds and composes the output. It
// returns the first failed source, which is skipped and left for the caller
// to remove.
func (s *Session) Update(dt float64) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var stats debugStats
	t0 := time.Now()

	var failed *Source
	for _, src := range s.sources {
		if src.Failed() {
			if failed == nil {
				failed = src
			}
			continue
		}
		src.SetActive(src.MixingDistance() < s.config.ActivationThreshold)
		src.Update(dt)
		src.Render()
	}
	s.pruneGroups()
	s.fading.update(dt)

	if s.debug {
		stats.updateTime = time.Since(t0)
		t0 = time.Now()
	}
	stats.drawn = s.compose(s.output, nil)
	if s.debug {
		stats.composeTime = time.Since(t0)
		stats.sources = len(s.sources)
		stats.active = countActive(s.sources)
		s.debugLog(stats)
	}
	s.fulfillThumbnails()
	return failed
}

// compose draws every active source into dst in depth order, ties broken
// by insertion order, then the fading overlay. exclude is skipped. It
// returns the number of sources drawn.
func (s *Session) compose(dst *FrameBuffer, exclude *Source) int {
	dst.Clear()
	s.drawList = s.drawList[:0]
	for _, src := range s.sources {
		if src != exclude && src.active && src.Initialized() && !src.Failed() {
			s.drawList = append(s.drawList, src)
		}
	}
	slices.SortStableFunc(s.drawList, func(a, b *Source) int {
		da, db := a.Depth(), b.Depth()
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	for _, src := range s.drawList {
		s.drawSource(dst, src)
	}
	drawn := len(s.drawList)
	clear(s.drawList)

	if f := s.fading.value; f > 0 {
		var op ebiten.DrawImageOptions
		op.GeoM.Scale(float64(dst.w), float64(dst.h))
		op.ColorScale.Scale(0, 0, 0, float32(f))
		dst.image.DrawImage(ensureWhitePixel(), &op)
	}
	return drawn
}

var quadCorners = [4]Vec2{{-1, 1}, {1, 1}, {1, -1}, {-1, -1}}

// drawSource maps the cropped source quad through the Rendering transform
// into dst and samples the render buffer through the texture matrix.
func (s *Session) drawSource(dst *FrameBuffer, src *Source) {
	fb := src.renderbuffer
	srcAR := fb.AspectRatio()
	dstAR := dst.AspectRatio()
	crop := src.Node(ViewGeometry).Crop
	cx, cy := clamp(crop.X, 0, 1), clamp(crop.Y, 0, 1)
	m := src.Node(ViewRendering).Transform()

	c := src.blending.Color
	a := float32(clamp01(c.A))
	for i, corner := range quadCorners {
		p := m.TransformPoint(Vec3{corner.X * cx * srcAR, corner.Y * cy, 0})
		uv := src.texture.TransformPoint(Vec3{(1 + corner.X*cx) / 2, (1 - corner.Y*cy) / 2, 0})
		s.vs[i] = ebiten.Vertex{
			DstX:   float32((p.X/dstAR + 1) / 2 * float64(dst.w)),
			DstY:   float32((1 - p.Y) / 2 * float64(dst.h)),
			SrcX:   float32(uv.X * float64(fb.w)),
			SrcY:   float32(uv.Y * float64(fb.h)),
			ColorR: float32(c.R) * a,
			ColorG: float32(c.G) * a,
			ColorB: float32(c.B) * a,
			ColorA: a,
		}
	}
	s.op.Blend = src.blending.Mode.EbitenBlend()
	dst.image.DrawTriangles(s.vs, s.is, fb.image, &s.op)
}

// Close closes every source and releases the output. Pending thumbnail
// requests fail.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.failThumbnails(ErrNotFound)
	for _, g := range s.groups {
		g.detachAll()
	}
	s.groups = nil
	for _, src := range s.sources {
		src.session = nil
		src.Close()
	}
	s.sources = nil
	s.output.Dispose()
}
