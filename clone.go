package vmix

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// CloneProducer shows the latest render of another source in the same
// session. The origin is resolved by id every frame; once it is gone the
// clone fails permanently.
type CloneProducer struct {
	playClock
	origin   uint64
	session  *Session
	frame    *ebiten.Image
	w, h     int
	detached bool
}

func newCloneProducer(origin uint64) *CloneProducer {
	return &CloneProducer{origin: origin, playClock: playClock{playing: true}}
}

func (p *CloneProducer) Kind() Kind             { return KindClone }
func (p *CloneProducer) Ready() bool            { return p.frame != nil }
func (p *CloneProducer) Failed() bool           { return p.detached }
func (p *CloneProducer) Frame() *ebiten.Image   { return p.frame }
func (p *CloneProducer) Resolution() (int, int) { return p.w, p.h }

// Origin returns the id of the cloned source.
func (p *CloneProducer) Origin() uint64 { return p.origin }

func (p *CloneProducer) State() ProducerState {
	return ProducerState{Kind: KindClone, Origin: p.origin, Playing: p.playing}
}

func (p *CloneProducer) bindSession(s *Session, _ *Source) { p.session = s }

// detach cuts the clone from its origin.
func (p *CloneProducer) detach() {
	p.detached = true
	p.frame = nil
}

// Update follows the origin's render buffer.
func (p *CloneProducer) Update(dt float64) {
	p.advance(dt)
	if p.detached || p.session == nil {
		return
	}
	origin := p.session.Find(p.origin)
	if origin == nil {
		p.detach()
		return
	}
	if !origin.Initialized() {
		return
	}
	p.frame = origin.renderbuffer.Image()
	p.w, p.h = origin.renderbuffer.Resolution()
}

// Close drops the reference to the origin's frame. The frame itself belongs
// to the origin.
func (p *CloneProducer) Close() error {
	p.frame = nil
	return nil
}
