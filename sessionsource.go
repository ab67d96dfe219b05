package vmix

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// SessionProducer shows a nested session. The producer owns the session
// and updates it every frame.
type SessionProducer struct {
	session *Session
	playing bool
	elapsed time.Duration
	ready   bool
}

// NewSessionProducer wraps inner. The producer takes ownership.
func NewSessionProducer(inner *Session) *SessionProducer {
	return &SessionProducer{session: inner, playing: true}
}

func (p *SessionProducer) Kind() Kind              { return KindSession }
func (p *SessionProducer) Ready() bool             { return p.ready }
func (p *SessionProducer) Failed() bool            { return false }
func (p *SessionProducer) Resolution() (int, int)  { return p.session.Resolution() }
func (p *SessionProducer) Playing() bool           { return p.playing }
func (p *SessionProducer) Position() time.Duration { return p.elapsed }
func (p *SessionProducer) Session() *Session       { return p.session }

func (p *SessionProducer) Frame() *ebiten.Image {
	if !p.ready {
		return nil
	}
	return p.session.Output().Image()
}

func (p *SessionProducer) State() ProducerState {
	st := p.session.State()
	return ProducerState{Kind: KindSession, Session: &st, Playing: p.playing}
}

// Play starts or pauses every source of the nested session.
func (p *SessionProducer) Play(on bool) {
	p.playing = on
	for _, s := range p.session.Sources() {
		s.Play(on)
	}
}

// Replay restarts every source of the nested session.
func (p *SessionProducer) Replay() {
	p.elapsed = 0
	for _, s := range p.session.Sources() {
		s.Replay()
	}
}

// Update runs the nested session. Failed inner sources are removed.
func (p *SessionProducer) Update(dt float64) {
	if p.playing {
		p.elapsed += time.Duration(dt * float64(time.Second))
	}
	if failed := p.session.Update(dt); failed != nil {
		Logger().Warn("nested source failed", "source", failed.Name())
		p.session.Remove(failed)
		failed.Close()
	}
	p.ready = true
}

// Close closes the nested session and its sources.
func (p *SessionProducer) Close() error {
	p.session.Close()
	return nil
}
