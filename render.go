package vmix

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// RenderProducer shows the output of its own session, either the previous
// composed frame (ProvenanceLoopback) or a render of the session without
// this source (ProvenanceExcludeSelf).
type RenderProducer struct {
	playClock
	provenance Provenance
	session    *Session
	self       *Source
	fb         *FrameBuffer
	ready      bool
}

// NewRenderProducer creates a render loopback producer. It becomes ready
// after its source is added to a session.
func NewRenderProducer(provenance Provenance) *RenderProducer {
	return &RenderProducer{provenance: provenance, playClock: playClock{playing: true}}
}

func (p *RenderProducer) Kind() Kind   { return KindRender }
func (p *RenderProducer) Ready() bool  { return p.ready }
func (p *RenderProducer) Failed() bool { return false }

// Provenance returns the render mode.
func (p *RenderProducer) Provenance() Provenance { return p.provenance }

func (p *RenderProducer) Frame() *ebiten.Image {
	if p.fb == nil {
		return nil
	}
	return p.fb.Image()
}

func (p *RenderProducer) Resolution() (int, int) {
	if p.session == nil {
		return 0, 0
	}
	return p.session.Resolution()
}

func (p *RenderProducer) State() ProducerState {
	return ProducerState{Kind: KindRender, Provenance: p.provenance, Playing: p.playing}
}

func (p *RenderProducer) bindSession(s *Session, self *Source) {
	p.session = s
	p.self = self
}

// Update captures the session output. Paused loopbacks keep their last
// frame.
func (p *RenderProducer) Update(dt float64) {
	p.advance(dt)
	if p.session == nil {
		return
	}
	w, h := p.session.Resolution()
	if p.fb == nil {
		p.fb = NewFrameBuffer(w, h)
	} else {
		p.fb.Resize(w, h)
	}
	if p.ready && !p.playing {
		return
	}
	switch p.provenance {
	case ProvenanceExcludeSelf:
		p.session.compose(p.fb, p.self)
	default:
		p.session.output.Blit(p.fb)
	}
	p.ready = true
}

// Close releases the capture buffer.
func (p *RenderProducer) Close() error {
	if p.fb != nil {
		p.fb.Dispose()
		p.fb = nil
	}
	p.ready = false
	return nil
}
