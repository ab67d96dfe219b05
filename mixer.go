package vmix

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/phanxgames/vmix/store"
)

// MixerOptions configures a Mixer.
type MixerOptions struct {
	Session SessionConfig
	// Store holds session documents. Save, Open and Import fail with
	// ErrNoStore without one.
	Store store.Store
	// Notifier receives job outcomes and source failures. Defaults to the
	// package logger.
	Notifier Notifier
	// PollTimeout bounds how long Update waits for each background job.
	PollTimeout time.Duration
	// Thumbnails embeds a thumbnail of the output in saved documents.
	Thumbnails       bool
	ThumbnailTimeout time.Duration
	// RestoreView switches to the view recorded with a history step when
	// the step is restored.
	RestoreView bool
	// Viewport is the screen rectangle of the interactive views.
	Viewport Rect
}

// DefaultMixerOptions returns the options used by NewMixer for zero
// fields.
func DefaultMixerOptions() MixerOptions {
	return MixerOptions{
		Session:          DefaultSessionConfig(),
		PollTimeout:      time.Millisecond,
		Thumbnails:       true,
		ThumbnailTimeout: 500 * time.Millisecond,
		RestoreView:      true,
		Viewport:         Rect{Width: 1280, Height: 720},
	}
}

type savedDocument struct {
	key  string
	info store.Info
}

type loadedSession struct {
	key     string
	session *Session
	warning error
}

type grabState struct {
	start   Vec2
	targets []*Source
	moved   bool
}

// Mixer owns the active session and swaps in replacements built off the
// update path. Sessions replaced by New, Clear, Open, GroupAll and Flatten
// become active on the next Update and the previous session is closed one
// Update later. Save, Open, Import and Screenshot run in the background,
// at most one of each kind at a time.
//
// Mixer methods must be called from the update goroutine.
type Mixer struct {
	opts     MixerOptions
	notifier Notifier
	ctx      context.Context
	cancel   context.CancelFunc

	session *Session
	back    *Session
	garbage []*Session

	views [numViews]*View
	mode  ViewMode

	current   *Source
	selection []*Source
	grab      *grabState

	saves   *jobSlot[savedDocument]
	loads   *jobSlot[loadedSession]
	imports *jobSlot[*Document]
	shots   *jobSlot[string]

	script *Script
	frame  uint64
}

// NewMixer creates a mixer with an empty session.
func NewMixer(opts MixerOptions) *Mixer {
	def := DefaultMixerOptions()
	if opts.PollTimeout < 0 {
		opts.PollTimeout = 0
	}
	if opts.ThumbnailTimeout <= 0 {
		opts.ThumbnailTimeout = def.ThumbnailTimeout
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = def.Viewport
	}
	m := &Mixer{
		opts:     opts,
		notifier: opts.Notifier,
		mode:     ViewMixing,
		saves:    newJobSlot[savedDocument]("save"),
		loads:    newJobSlot[loadedSession]("load"),
		imports:  newJobSlot[*Document]("import"),
		shots:    newJobSlot[string]("screenshot"),
	}
	if m.notifier == nil {
		m.notifier = logNotifier{}
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	for i := range m.views {
		m.views[i] = newView(ViewMode(i), opts.Viewport)
	}
	m.session = NewSession(opts.Session)
	m.activate(m.session)
	return m
}

// Session returns the active session.
func (m *Mixer) Session() *Session { return m.session }

// Frame returns the number of updates run so far.
func (m *Mixer) Frame() uint64 { return m.frame }

// Busy reports whether a background job of any kind is in flight.
func (m *Mixer) Busy() bool {
	return m.saves.busy() || m.loads.busy() || m.imports.busy() || m.shots.busy()
}

func (m *Mixer) notify(level NotificationLevel, format string, args ...any) {
	m.notifier.Notify(newNotification(level, fmt.Sprintf(format, args...)))
}

// activate binds the views and history of s to the mixer.
func (m *Mixer) activate(s *Session) {
	for i, v := range m.views {
		v.bind(s.View(ViewMode(i)))
	}
	a := s.Actions()
	a.SetRestoreView(m.opts.RestoreView)
	a.SetView(m.mode)
	a.OnViewChange(m.SetView)
	m.current = nil
	m.selection = nil
	m.grab = nil
}

// setBack queues s to replace the active session on the next Update.
func (m *Mixer) setBack(s *Session) {
	if m.back != nil {
		m.garbage = append(m.garbage, m.back)
	}
	m.back = s
}

func (m *Mixer) swap() {
	old := m.session
	m.session = m.back
	m.back = nil
	m.garbage = append(m.garbage, old)
	m.activate(m.session)
	Logger().Info("session activated", "file", m.session.Filename(), "sources", m.session.Len())
}

// Update runs one frame: it frees the sessions superseded on the previous
// frame, collects finished jobs, swaps in a pending session, runs the
// script and updates the active session. A failed source is removed and
// reported.
func (m *Mixer) Update(dt float64) {
	start := time.Now()

	for _, g := range m.garbage {
		g.Close()
	}
	clear(m.garbage)
	m.garbage = m.garbage[:0]

	m.pollJobs()
	if m.back != nil {
		m.swap()
	}
	if m.script != nil {
		m.script.step(m)
	}
	for _, v := range m.views {
		v.update(float32(dt))
	}
	if failed := m.session.Update(dt); failed != nil {
		m.removeFailed(failed)
	}
	m.validateCursors()
	m.frame++

	frameUpdateDuration.Observe(time.Since(start).Seconds())
	sessionSources.Set(float64(m.session.Len()))
}

func (m *Mixer) removeFailed(src *Source) {
	failedSources.WithLabelValues(string(src.Kind())).Inc()
	m.session.Remove(src)
	src.Close()
	m.validateCursors()
	m.notify(NotifyWarning, "Source %s failed and was removed", src.Name())
}

func (m *Mixer) pollJobs() {
	if r, ok, err := m.saves.poll(m.opts.PollTimeout); ok {
		if err != nil {
			m.notify(NotifyError, "Failed to save %s: %v", r.key, err)
		} else {
			m.session.SetFilename(r.key)
			m.notify(NotifyInfo, "Session saved to %s", r.key)
		}
	}
	if r, ok, err := m.loads.poll(m.opts.PollTimeout); ok {
		switch {
		case err != nil:
			m.notify(NotifyError, "Failed to load %s: %v", r.key, err)
		default:
			m.setBack(r.session)
			if r.warning != nil {
				m.notify(NotifyWarning, "Loaded %s with warnings: %v", r.key, r.warning)
			} else {
				m.notify(NotifyInfo, "Session %s loaded", r.key)
			}
		}
	}
	if path, ok, err := m.shots.poll(m.opts.PollTimeout); ok {
		if err != nil {
			m.notify(NotifyError, "Screenshot failed: %v", err)
		} else {
			m.notify(NotifyInfo, "Screenshot saved to %s", path)
		}
	}
	if doc, ok, err := m.imports.poll(m.opts.PollTimeout); ok {
		if err != nil {
			m.notify(NotifyError, "Failed to import: %v", err)
			return
		}
		added, err := doc.Import(m.session)
		if err != nil {
			m.notify(NotifyWarning, "Imported %d sources with errors: %v", len(added), err)
		} else {
			m.notify(NotifyInfo, "Imported %d sources", len(added))
		}
		if len(added) > 0 {
			m.session.Actions().Store(fmt.Sprintf("%d sources imported", len(added)))
		}
	}
}

// New replaces the session with an empty one.
func (m *Mixer) New() {
	m.setBack(NewSession(m.opts.Session))
}

// Clear replaces the session with an empty one that keeps its file name
// and resolution.
func (m *Mixer) Clear() {
	s := NewSession(m.session.Config())
	s.SetFilename(m.session.Filename())
	m.setBack(s)
}

// GroupAll replaces the session with one holding a single source that
// renders the whole current session. Snapshots are kept.
func (m *Mixer) GroupAll() error {
	if m.session.Empty() {
		return nil
	}
	cfg := m.session.Config()
	st := m.session.State()
	inner := NewSession(cfg)
	err := inner.applyState(&st)
	next := NewSession(cfg)
	next.SetFilename(m.session.Filename())
	next.Add(NewSource("group", NewSessionProducer(inner)))
	copySnapshots(m.session, next)
	next.Actions().Store("Group all")
	m.setBack(next)
	return err
}

// Flatten replaces the session with one where every nested session source
// is replaced by the sources it contains. Snapshots are kept.
func (m *Mixer) Flatten() error {
	st := m.session.State()
	flat := flattenState(st)
	next := NewSession(m.session.Config())
	next.SetFilename(m.session.Filename())
	err := next.applyState(&flat)
	copySnapshots(m.session, next)
	next.Actions().Store("Flatten")
	m.setBack(next)
	return err
}

// copySnapshots gives dst the snapshots of src, keeping their ids.
func copySnapshots(src, dst *Session) {
	for _, info := range src.Actions().Snapshots() {
		snap, _ := src.Actions().snapshotState(info.ID)
		dst.Actions().addSnapshot(info.ID, info.Label, info.Time, snap)
	}
}

func flattenState(st SessionState) SessionState {
	out := st
	out.Sources = nil
	for _, rec := range st.Sources {
		if rec.Producer.Kind == KindSession && rec.Producer.Session != nil {
			inner := flattenState(*rec.Producer.Session)
			out.Sources = append(out.Sources, inner.Sources...)
			out.Groups = append(out.Groups, inner.Groups...)
			continue
		}
		out.Sources = append(out.Sources, rec)
	}
	return out
}

// Save writes the session to the store under key, or under the session's
// file name when key is empty. The document is written in the background;
// a save requested while one is in flight returns ErrBusy and does nothing.
func (m *Mixer) Save(key string) error {
	if m.opts.Store == nil {
		return ErrNoStore
	}
	if key == "" {
		key = m.session.Filename()
	}
	if key == "" {
		return fmt.Errorf("vmix: save: %w: no file name", ErrNotFound)
	}
	if !m.saves.acquire() {
		return fmt.Errorf("save %s: %w", key, ErrBusy)
	}
	doc := NewDocument(m.session)
	var thumb *ThumbnailRequest
	if m.opts.Thumbnails {
		thumb = m.session.RequestThumbnail()
	}
	st, timeout := m.opts.Store, m.opts.ThumbnailTimeout
	m.saves.run(m.ctx, key, func(ctx context.Context) (savedDocument, error) {
		if thumb != nil {
			tctx, cancel := context.WithTimeout(ctx, timeout)
			img, err := thumb.Wait(tctx)
			cancel()
			if err != nil {
				Logger().Warn("saving without thumbnail", "key", key, "error", err)
			} else if err := doc.SetThumbnail(img); err != nil {
				Logger().Warn("saving without thumbnail", "key", key, "error", err)
			}
		}
		data, err := doc.Marshal(documentDir(st, key))
		if err != nil {
			return savedDocument{key: key}, err
		}
		info, err := st.Put(ctx, key, data)
		return savedDocument{key: key, info: info}, err
	})
	return nil
}

// Open loads the document key in the background. The loaded session
// replaces the active one on the first Update after loading finishes.
func (m *Mixer) Open(key string) error {
	if m.opts.Store == nil {
		return ErrNoStore
	}
	st, cfg := m.opts.Store, m.opts.Session
	return m.loads.start(m.ctx, key, func(ctx context.Context) (loadedSession, error) {
		data, err := st.Get(ctx, key)
		if err != nil {
			return loadedSession{key: key}, err
		}
		doc, perr := ParseDocument(data, documentDir(st, key))
		if doc == nil {
			return loadedSession{key: key}, perr
		}
		s, berr := doc.Build(cfg)
		s.SetFilename(key)
		return loadedSession{key: key, session: s, warning: errors.Join(perr, berr)}, nil
	})
}

// Import adds the sources of document key to the active session on the
// first Update after reading finishes.
func (m *Mixer) Import(key string) error {
	if m.opts.Store == nil {
		return ErrNoStore
	}
	st := m.opts.Store
	return m.imports.start(m.ctx, key, func(ctx context.Context) (*Document, error) {
		data, err := st.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		doc, err := ParseDocument(data, documentDir(st, key))
		if doc == nil {
			return nil, err
		}
		if err != nil {
			Logger().Warn("importing from another version", "key", key, "error", err)
		}
		return doc, nil
	})
}

// documentDir returns the local folder of key for stores backed by files.
func documentDir(st store.Store, key string) string {
	loc, ok := st.(store.Locator)
	if !ok {
		return ""
	}
	p, err := loc.Locate(key)
	if err != nil {
		return ""
	}
	return filepath.Dir(p)
}

// Add inserts src in the active session, makes it current and records a
// history step.
func (m *Mixer) Add(src *Source) *Source {
	m.session.Add(src)
	m.SetCurrent(src)
	m.session.Actions().Store(src.Name() + " inserted")
	return src
}

// Remove deletes src from the active session and closes it.
func (m *Mixer) Remove(src *Source) {
	if !m.session.Remove(src) {
		return
	}
	m.validateCursors()
	name := src.Name()
	src.Close()
	m.session.Actions().Store(name + " deleted")
}

// Clone adds a clone of src and makes it current.
func (m *Mixer) Clone(src *Source) *Source {
	c := m.session.Clone(src)
	m.SetCurrent(c)
	m.session.Actions().Store(c.Name() + " cloned")
	return c
}

// Undo restores the previous history step.
func (m *Mixer) Undo() error {
	defer m.validateCursors()
	return m.session.Actions().Undo()
}

// Redo restores the next history step.
func (m *Mixer) Redo() error {
	defer m.validateCursors()
	return m.session.Actions().Redo()
}

// Fade fades the output to black by amount over duration.
func (m *Mixer) Fade(amount float64, duration time.Duration) {
	m.session.SetFading(amount, duration)
}

// View returns the view of a compositing space.
func (m *Mixer) View(mode ViewMode) *View {
	if mode >= numViews {
		panic(fmt.Sprintf("vmix: invalid view mode %d", mode))
	}
	return m.views[mode]
}

// ViewMode returns the active view.
func (m *Mixer) ViewMode() ViewMode { return m.mode }

// CurrentView returns the active view.
func (m *Mixer) CurrentView() *View { return m.views[m.mode] }

// SetView switches the active view and drops the selection the new view
// cannot pick.
func (m *Mixer) SetView(mode ViewMode) {
	if mode >= numViews {
		return
	}
	m.mode = mode
	m.session.Actions().SetView(mode)
	v := m.views[mode]
	m.selection = slices.DeleteFunc(m.selection, func(s *Source) bool { return !v.CanSelect(s) })
	if m.current != nil && !v.CanSelect(m.current) {
		m.unsetCurrent()
	}
	m.grab = nil
}

// Current returns the current source, or nil.
func (m *Mixer) Current() *Source { return m.current }

// SetCurrent makes src the current source. nil clears it.
func (m *Mixer) SetCurrent(src *Source) {
	if src == nil || m.session.Index(src) < 0 {
		m.unsetCurrent()
		return
	}
	m.unsetCurrent()
	m.current = src
	src.SetMode(ModeCurrent)
}

func (m *Mixer) unsetCurrent() {
	if m.current == nil {
		return
	}
	if slices.Contains(m.selection, m.current) {
		m.current.SetMode(ModeSelected)
	} else {
		m.current.SetMode(ModeVisible)
	}
	m.current = nil
}

// SetCurrentIndex makes the source at index i current.
func (m *Mixer) SetCurrentIndex(i int) { m.SetCurrent(m.session.At(i)) }

// SetCurrentNext moves the current source forward in session order,
// wrapping around.
func (m *Mixer) SetCurrentNext() { m.stepCurrent(1) }

// SetCurrentPrevious moves the current source backward in session order,
// wrapping around.
func (m *Mixer) SetCurrentPrevious() { m.stepCurrent(-1) }

func (m *Mixer) stepCurrent(step int) {
	n := m.session.Len()
	if n == 0 {
		return
	}
	i := m.session.Index(m.current)
	switch {
	case i < 0 && step > 0:
		i = 0
	case i < 0:
		i = n - 1
	default:
		i = ((i+step)%n + n) % n
	}
	m.SetCurrent(m.session.At(i))
}

// Select adds src to the selection when the active view can pick it.
func (m *Mixer) Select(src *Source) bool {
	if src == nil || m.session.Index(src) < 0 || !m.views[m.mode].CanSelect(src) {
		return false
	}
	if !slices.Contains(m.selection, src) {
		m.selection = append(m.selection, src)
		if src != m.current {
			src.SetMode(ModeSelected)
		}
	}
	return true
}

// Deselect removes src from the selection.
func (m *Mixer) Deselect(src *Source) {
	i := slices.Index(m.selection, src)
	if i < 0 {
		return
	}
	m.selection = slices.Delete(m.selection, i, i+1)
	if src != m.current {
		src.SetMode(ModeVisible)
	}
}

// ClearSelection empties the selection.
func (m *Mixer) ClearSelection() {
	for _, src := range m.selection {
		if src != m.current {
			src.SetMode(ModeVisible)
		}
	}
	m.selection = m.selection[:0]
}

// Selection returns the selected sources.
func (m *Mixer) Selection() []*Source { return slices.Clone(m.selection) }

// IsSelected reports whether src is selected.
func (m *Mixer) IsSelected(src *Source) bool { return slices.Contains(m.selection, src) }

// validateCursors clears references to sources that left the session.
func (m *Mixer) validateCursors() {
	gone := func(src *Source) bool { return m.session.Find(src.id) != src }
	if m.current != nil && gone(m.current) {
		m.current = nil
	}
	m.selection = slices.DeleteFunc(m.selection, gone)
	if m.grab != nil {
		m.grab.targets = slices.DeleteFunc(m.grab.targets, gone)
	}
}

// BeginGrab starts moving the selection, or the current source when
// nothing is selected, from the screen point (sx, sy) in the active view.
// Mixing group members move together in the Mixing view.
func (m *Mixer) BeginGrab(sx, sy float64) bool {
	targets := slices.Clone(m.selection)
	if len(targets) == 0 && m.current != nil {
		targets = append(targets, m.current)
	}
	if m.mode == ViewMixing {
		for _, src := range slices.Clone(targets) {
			if g := src.Group(); g != nil {
				for _, member := range g.Members() {
					if !slices.Contains(targets, member) {
						targets = append(targets, member)
					}
				}
			}
		}
	}
	v := m.views[m.mode]
	targets = slices.DeleteFunc(targets, func(s *Source) bool { return !v.CanSelect(s) || s.Locked() })
	if len(targets) == 0 {
		return false
	}
	for _, src := range targets {
		src.StoreStatus(m.mode)
	}
	m.grab = &grabState{start: v.ScreenToScene(sx, sy), targets: targets}
	return true
}

// Grab moves the grabbed sources so they follow the screen point.
func (m *Mixer) Grab(sx, sy float64) {
	if m.grab == nil {
		return
	}
	v := m.views[m.mode]
	delta := v.ScreenToScene(sx, sy).Sub(m.grab.start)
	for _, src := range m.grab.targets {
		v.applyGrab(src, delta)
	}
	m.grab.moved = m.grab.moved || delta != (Vec2{})
}

// EndGrab finishes a grab and records a history step when anything moved.
func (m *Mixer) EndGrab() {
	g := m.grab
	m.grab = nil
	if g == nil || !g.moved || len(g.targets) == 0 {
		return
	}
	label := g.targets[0].Name() + " moved"
	if len(g.targets) > 1 {
		label = fmt.Sprintf("%d sources moved", len(g.targets))
	}
	m.session.Actions().Store(label)
}

// SetScript runs script one step per Update. nil stops the current one.
func (m *Mixer) SetScript(script *Script) { m.script = script }

// Close stops background jobs and closes every session.
func (m *Mixer) Close() {
	m.cancel()
	for _, g := range m.garbage {
		g.Close()
	}
	m.garbage = nil
	if m.back != nil {
		m.back.Close()
		m.back = nil
	}
	m.session.Close()
}
