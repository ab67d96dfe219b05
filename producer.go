package vmix

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Kind names a producer implementation. It is the discriminator of source
// records in documents.
type Kind string

const (
	KindPattern  Kind = "pattern"
	KindPicture  Kind = "picture"
	KindSequence Kind = "sequence"
	KindClone    Kind = "clone"
	KindRender   Kind = "render"
	KindSession  Kind = "session"
	KindStream   Kind = "stream"
)

// Producer is the content behind a source. Producers are driven from the
// update thread: Update is called once per frame before Frame is read.
type Producer interface {
	Kind() Kind
	// Ready reports whether at least one frame is available.
	Ready() bool
	// Failed reports an unrecoverable error. A failed producer never
	// recovers.
	Failed() bool
	// Frame returns the latest frame, or nil before Ready.
	Frame() *ebiten.Image
	Update(dt float64)
	Play(on bool)
	Playing() bool
	// Replay restarts playback from the beginning.
	Replay()
	Position() time.Duration
	Resolution() (int, int)
	// State describes the producer so it can be rebuilt by newProducer.
	State() ProducerState
	Close() error
}

// Provenance selects what a render loopback source shows.
type Provenance uint8

const (
	// ProvenanceLoopback shows the previous session output, including the
	// loopback source itself one frame late.
	ProvenanceLoopback Provenance = iota
	// ProvenanceExcludeSelf renders the session without the loopback source.
	ProvenanceExcludeSelf
)

func (p Provenance) String() string {
	if p == ProvenanceExcludeSelf {
		return "exclude-self"
	}
	return "loopback"
}

// ProducerState is the serializable description of a producer. Only the
// fields of the given Kind are set.
type ProducerState struct {
	Kind       Kind          `json:"kind"`
	Pattern    PatternType   `json:"pattern,omitempty"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	Path       string        `json:"path,omitempty"`
	Paths      []string      `json:"paths,omitempty"`
	FPS        float64       `json:"fps,omitempty"`
	Origin     uint64        `json:"origin,omitempty"`
	Provenance Provenance    `json:"provenance,omitempty"`
	URI        string        `json:"uri,omitempty"`
	Session    *SessionState `json:"session,omitempty"`
	Playing    bool          `json:"playing,omitempty"`
}

// sessionBinder is implemented by producers that reference their owning
// session. The session calls bindSession when the source is added.
type sessionBinder interface {
	bindSession(s *Session, self *Source)
}

// newProducer builds a producer from its description. Nested sessions are
// built with s's configuration.
func newProducer(st ProducerState, s *Session) (Producer, error) {
	var p Producer
	switch st.Kind {
	case KindPattern:
		p = NewPatternProducer(st.Pattern, st.Width, st.Height)
	case KindPicture:
		p = NewPictureProducer(st.Path)
	case KindSequence:
		p = NewSequenceProducer(st.Paths, st.FPS)
	case KindClone:
		p = newCloneProducer(st.Origin)
	case KindRender:
		p = NewRenderProducer(st.Provenance)
	case KindSession:
		inner := NewSession(s.config)
		if st.Session != nil {
			if err := inner.applyState(st.Session); err != nil {
				return nil, err
			}
		}
		p = NewSessionProducer(inner)
	case KindStream:
		sp, err := NewStreamProducer(st.URI)
		if err != nil {
			return nil, err
		}
		p = sp
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", ErrInvalidDocument, st.Kind)
	}
	p.Play(st.Playing)
	return p, nil
}

// playClock tracks play state and position for producers with a timeline.
type playClock struct {
	playing  bool
	position time.Duration
}

func (c *playClock) advance(dt float64) {
	if c.playing && dt > 0 {
		c.position += time.Duration(dt * float64(time.Second))
	}
}

func (c *playClock) Play(on bool)            { c.playing = on }
func (c *playClock) Playing() bool           { return c.playing }
func (c *playClock) Replay()                 { c.position = 0 }
func (c *playClock) Position() time.Duration { return c.position }
