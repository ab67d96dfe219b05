package vmix

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/jinzhu/copier"
)

// NodeState is the persisted part of a transform node.
type NodeState struct {
	Translation Vec3 `json:"translation"`
	Rotation    Vec3 `json:"rotation"`
	Scale       Vec3 `json:"scale"`
	Crop        Vec3 `json:"crop"`
}

func nodeState(n *TransformNode) NodeState {
	return NodeState{Translation: n.Translation, Rotation: n.Rotation, Scale: n.Scale, Crop: n.Crop}
}

// applyTo writes the values into n and marks it dirty when they differ.
func (st NodeState) applyTo(n *TransformNode) {
	if st == nodeState(n) {
		return
	}
	n.SetTranslation(st.Translation)
	n.SetRotation(st.Rotation)
	n.SetScale(st.Scale)
	n.SetCrop(st.Crop)
}

// Lerp interpolates every component.
func (st NodeState) Lerp(o NodeState, t float64) NodeState {
	return NodeState{
		Translation: st.Translation.Lerp(o.Translation, t),
		Rotation:    st.Rotation.Lerp(o.Rotation, t),
		Scale:       st.Scale.Lerp(o.Scale, t),
		Crop:        st.Crop.Lerp(o.Crop, t),
	}
}

// SourceState is the complete description of a source, enough to recreate
// it with the same id.
type SourceState struct {
	ID                uint64          `json:"id"`
	Name              string          `json:"name"`
	Locked            bool            `json:"locked,omitempty"`
	Mixing            NodeState       `json:"mixing"`
	Geometry          NodeState       `json:"geometry"`
	Layer             NodeState       `json:"layer"`
	Texture           NodeState       `json:"texture"`
	Blending          Blending        `json:"blending"`
	Processing        ImageProcessing `json:"processing"`
	ProcessingEnabled bool            `json:"processing_enabled,omitempty"`
	Follow            uint64          `json:"follow,omitempty"`
	Producer          ProducerState   `json:"producer"`
}

// SessionState is the complete description of a session. History steps,
// snapshots and documents all hold SessionState values.
type SessionState struct {
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Sources    []SourceState        `json:"sources"`
	Groups     [][]uint64           `json:"groups,omitempty"`
	Views      map[string]NodeState `json:"views,omitempty"`
	Fading     float64              `json:"fading,omitempty"`
	Notes      []Note               `json:"notes,omitempty"`
	PlayGroups []PlayGroup          `json:"play_groups,omitempty"`
}

// Clone returns a deep copy.
func (st *SessionState) Clone() SessionState {
	var out SessionState
	if err := copier.CopyWithOption(&out, st, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched types.
		panic("vmix: copy session state: " + err.Error())
	}
	return out
}

// Source returns the record with the given id.
func (st *SessionState) Source(id uint64) (SourceState, bool) {
	for _, s := range st.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceState{}, false
}

// State captures the source.
func (s *Source) State() SourceState {
	return SourceState{
		ID:                s.id,
		Name:              s.name,
		Locked:            s.locked,
		Mixing:            nodeState(s.Node(ViewMixing)),
		Geometry:          nodeState(s.Node(ViewGeometry)),
		Layer:             nodeState(s.Node(ViewLayer)),
		Texture:           nodeState(s.Node(ViewTexture)),
		Blending:          s.blending,
		Processing:        s.ConfiguredProcessing(),
		ProcessingEnabled: s.processingEnabled,
		Follow:            s.follow,
		Producer:          s.producer.State(),
	}
}

// applyState updates the source in place. The id and producer kind are
// not changed.
func (s *Source) applyState(st *SourceState) error {
	s.name = st.Name
	s.locked = st.Locked
	st.Mixing.applyTo(s.Node(ViewMixing))
	st.Geometry.applyTo(s.Node(ViewGeometry))
	st.Layer.applyTo(s.Node(ViewLayer))
	st.Texture.applyTo(s.Node(ViewTexture))

	if !maskEqual(s.blending.Mask, st.Blending.Mask) {
		m := st.Blending.Mask
		m.Image = bytes.Clone(m.Image)
		m.Strokes = slices.Clone(m.Strokes)
		s.SetMask(m)
	}
	s.blending.Mode = st.Blending.Mode
	s.SetTint(st.Blending.Color)

	if st.ProcessingEnabled {
		s.activeProcessing, s.inactiveProcessing = st.Processing, NeutralProcessing()
	} else {
		s.activeProcessing, s.inactiveProcessing = NeutralProcessing(), st.Processing
	}
	s.processingEnabled = st.ProcessingEnabled
	s.follow = st.Follow

	if s.producer.Playing() != st.Producer.Playing {
		s.producer.Play(st.Producer.Playing)
	}
	var err error
	if sp, ok := s.producer.(*SessionProducer); ok && st.Producer.Session != nil {
		err = sp.session.applyState(st.Producer.Session)
	}
	s.touch()
	return err
}

func maskEqual(a, b Mask) bool {
	return a.Mode == b.Mode && a.Shape == b.Shape && a.Size == b.Size && a.Smooth == b.Smooth &&
		bytes.Equal(a.Image, b.Image) && slices.Equal(a.Strokes, b.Strokes)
}

// State captures the session.
func (s *Session) State() SessionState {
	w, h := s.Resolution()
	st := SessionState{
		Width:      w,
		Height:     h,
		Sources:    make([]SourceState, 0, len(s.sources)),
		Views:      make(map[string]NodeState, numViews),
		Fading:     s.fading.target,
		Notes:      slices.Clone(s.notes),
		PlayGroups: make([]PlayGroup, len(s.playGroups)),
	}
	for _, src := range s.sources {
		st.Sources = append(st.Sources, src.State())
	}
	for _, g := range s.groups {
		if g.Valid() {
			st.Groups = append(st.Groups, g.IDs())
		}
	}
	for m, n := range s.views {
		st.Views[ViewMode(m).String()] = nodeState(n)
	}
	for i, pg := range s.playGroups {
		st.PlayGroups[i] = PlayGroup{Name: pg.Name, Members: slices.Clone(pg.Members)}
	}
	return st
}

// applyState merges st into the session. Sources are matched by id:
// existing ones are updated in place, missing ones are removed and closed,
// new ones are created with their recorded id. Clones are created after
// every other source so their origin exists; a clone whose origin is not
// found is skipped. Mixing groups are rebuilt.
func (s *Session) applyState(st *SessionState) error {
	if st == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Width > 0 && st.Height > 0 {
		s.resize(st.Width, st.Height)
	}

	records := make(map[uint64]*SourceState, len(st.Sources))
	for i := range st.Sources {
		records[st.Sources[i].ID] = &st.Sources[i]
	}
	for _, src := range slices.Clone(s.sources) {
		rec, ok := records[src.id]
		if ok && rec.Producer.Kind == src.Kind() && rec.Producer.Origin == src.Origin() {
			continue
		}
		s.remove(src)
		src.Close()
	}
	// Clones of a removed origin are detached for good; recreate them.
	for _, src := range slices.Clone(s.sources) {
		if cp, ok := src.producer.(*CloneProducer); ok && cp.detached {
			s.remove(src)
			src.Close()
		}
	}

	var errs []error
	for _, clones := range []bool{false, true} {
		for i := range st.Sources {
			rec := &st.Sources[i]
			if (rec.Producer.Kind == KindClone) != clones {
				continue
			}
			if src := s.Find(rec.ID); src != nil {
				if err := src.applyState(rec); err != nil {
					errs = append(errs, fmt.Errorf("source %q: %w", rec.Name, err))
				}
				continue
			}
			if clones && s.Find(rec.Producer.Origin) == nil {
				Logger().Warn("skipping clone without origin", "source", rec.Name, "origin", rec.Producer.Origin)
				continue
			}
			p, err := newProducer(rec.Producer, s)
			if err != nil {
				errs = append(errs, fmt.Errorf("source %q: %w", rec.Name, err))
				continue
			}
			src := newSourceWithID(rec.ID, rec.Name, p)
			if err := src.applyState(rec); err != nil {
				errs = append(errs, fmt.Errorf("source %q: %w", rec.Name, err))
			}
			s.insert(src)
		}
	}

	order := make(map[uint64]int, len(st.Sources))
	for i, rec := range st.Sources {
		order[rec.ID] = i
	}
	slices.SortStableFunc(s.sources, func(a, b *Source) int { return order[a.id] - order[b.id] })

	for _, g := range s.groups {
		g.detachAll()
	}
	s.groups = s.groups[:0]
	for _, ids := range st.Groups {
		var members []*Source
		for _, id := range ids {
			if src := s.Find(id); src != nil {
				members = append(members, src)
			}
		}
		if len(members) > 1 {
			s.link(members)
		}
	}

	for name, ns := range st.Views {
		if m, ok := ParseViewMode(name); ok {
			ns.applyTo(s.views[m])
		}
	}
	s.fading.set(st.Fading, 0)
	s.notes = slices.Clone(st.Notes)
	s.playGroups = s.playGroups[:0]
	for _, pg := range st.PlayGroups {
		s.playGroups = append(s.playGroups, PlayGroup{Name: pg.Name, Members: slices.Clone(pg.Members)})
	}
	return errors.Join(errs...)
}
