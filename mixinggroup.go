package vmix

import (
	"math"
	"slices"
)

// MixingGroup links sources in the Mixing view so they move together. The
// members are ordered clockwise around their barycenter and joined by a
// closed polyline.
type MixingGroup struct {
	id       uint64
	members  []*Source
	center   Vec2
	polyline []Vec2
}

func newMixingGroup(sources []*Source) *MixingGroup {
	g := &MixingGroup{id: NewID(), members: slices.Clone(sources)}
	for _, s := range g.members {
		s.group = g
	}
	g.sortClockwise()
	g.update()
	return g
}

// ID returns the group id.
func (g *MixingGroup) ID() uint64 { return g.id }

// Size returns the number of members.
func (g *MixingGroup) Size() int { return len(g.members) }

// Valid reports whether the group still links at least two sources.
func (g *MixingGroup) Valid() bool { return len(g.members) > 1 }

// Contains reports whether s is a member.
func (g *MixingGroup) Contains(s *Source) bool { return slices.Contains(g.members, s) }

// Members returns the members in clockwise order.
func (g *MixingGroup) Members() []*Source { return slices.Clone(g.members) }

// IDs returns the member ids in clockwise order.
func (g *MixingGroup) IDs() []uint64 {
	ids := make([]uint64, len(g.members))
	for i, s := range g.members {
		ids[i] = s.id
	}
	return ids
}

// Center returns the barycenter of the members' Mixing positions at the
// last update.
func (g *MixingGroup) Center() Vec2 { return g.center }

// Polyline returns the closed outline through the members. The first point
// is repeated at the end.
func (g *MixingGroup) Polyline() []Vec2 { return g.polyline }

// Detach removes s from the group.
func (g *MixingGroup) Detach(s *Source) {
	i := slices.Index(g.members, s)
	if i < 0 {
		return
	}
	g.members = slices.Delete(g.members, i, i+1)
	if s.group == g {
		s.group = nil
	}
	g.update()
}

func (g *MixingGroup) detachAll() {
	for _, s := range g.members {
		if s.group == g {
			s.group = nil
		}
	}
	g.members = nil
	g.polyline = g.polyline[:0]
}

// GrabAll translates every unlocked member in the Mixing view.
func (g *MixingGroup) GrabAll(delta Vec2) {
	for _, s := range g.members {
		if s.locked {
			continue
		}
		n := s.Node(ViewMixing)
		n.SetTranslation(n.Translation.Add(delta.Vec3(0)))
		s.touch()
	}
	g.update()
}

// RotateAll turns every unlocked member around the barycenter by angle
// radians, counter-clockwise.
func (g *MixingGroup) RotateAll(angle float64) {
	sin, cos := math.Sincos(angle)
	for _, s := range g.members {
		if s.locked {
			continue
		}
		n := s.Node(ViewMixing)
		d := n.Translation.XY().Sub(g.center)
		p := Vec2{g.center.X + d.X*cos - d.Y*sin, g.center.Y + d.X*sin + d.Y*cos}
		n.SetTranslation(p.Vec3(n.Translation.Z))
		s.touch()
	}
	g.update()
}

func (g *MixingGroup) barycenter() Vec2 {
	var c Vec2
	if len(g.members) == 0 {
		return c
	}
	for _, s := range g.members {
		c = c.Add(s.Node(ViewMixing).Translation.XY())
	}
	return c.Mul(1 / float64(len(g.members)))
}

// sortClockwise orders members by decreasing angle around the barycenter.
func (g *MixingGroup) sortClockwise() {
	c := g.barycenter()
	angle := func(s *Source) float64 {
		p := s.Node(ViewMixing).Translation.XY().Sub(c)
		return math.Atan2(p.Y, p.X)
	}
	slices.SortStableFunc(g.members, func(a, b *Source) int {
		aa, ab := angle(a), angle(b)
		switch {
		case aa > ab:
			return -1
		case aa < ab:
			return 1
		}
		return 0
	})
}

// update recomputes the barycenter and the outline from the current
// member positions.
func (g *MixingGroup) update() {
	g.center = g.barycenter()
	g.polyline = g.polyline[:0]
	for _, s := range g.members {
		g.polyline = append(g.polyline, s.Node(ViewMixing).Translation.XY())
	}
	if len(g.members) > 0 {
		g.polyline = append(g.polyline, g.polyline[0])
	}
}
