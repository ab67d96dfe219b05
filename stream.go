package vmix

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

// Decoder is an external media pipeline: a file decoder, a capture device
// or a network receiver. Next blocks until the next frame and returns
// io.EOF at the end of finite media.
type Decoder interface {
	Open(ctx context.Context, uri string) error
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// DecoderFactory creates a decoder for one stream.
type DecoderFactory func() Decoder

var (
	decodersMu sync.RWMutex
	decoders   = map[string]DecoderFactory{}
)

// RegisterDecoder makes a decoder available for URIs with the given scheme.
// Registering a scheme twice replaces the previous factory.
func RegisterDecoder(scheme string, factory DecoderFactory) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	if factory == nil {
		delete(decoders, scheme)
		return
	}
	decoders[scheme] = factory
}

func lookupDecoder(scheme string) (DecoderFactory, bool) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	f, ok := decoders[scheme]
	return f, ok
}

// ErrNoDecoder is returned for stream URIs whose scheme has no decoder.
var ErrNoDecoder = errors.New("vmix: no decoder registered")

// StreamProducer pumps frames from a Decoder on a background goroutine.
// Only the latest frame is kept; slow updates drop frames.
type StreamProducer struct {
	playClock
	uri     string
	factory DecoderFactory

	latest chan image.Image
	cancel context.CancelFunc
	done   chan struct{}
	failed atomic.Bool
	ended  atomic.Bool

	frame *ebiten.Image
	w, h  int
}

// NewStreamProducer starts decoding uri with the decoder registered for its
// scheme.
func NewStreamProducer(uri string) (*StreamProducer, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("vmix: parse stream uri: %w", err)
	}
	factory, ok := lookupDecoder(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoDecoder, u.Scheme)
	}
	p := &StreamProducer{uri: uri, factory: factory, playClock: playClock{playing: true}}
	p.start()
	return p, nil
}

func (p *StreamProducer) start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.latest = make(chan image.Image, 1)
	p.ended.Store(false)
	go p.pump(ctx, p.factory(), p.latest, p.done)
}

func (p *StreamProducer) pump(ctx context.Context, dec Decoder, latest chan image.Image, done chan struct{}) {
	defer close(done)
	defer func() { _ = dec.Close() }()
	if err := dec.Open(ctx, p.uri); err != nil {
		Logger().Warn("stream open failed", "uri", p.uri, "error", err)
		p.failed.Store(true)
		return
	}
	for {
		img, err := dec.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			p.ended.Store(true)
			return
		case ctx.Err() != nil:
			return
		case err != nil:
			Logger().Warn("stream failed", "uri", p.uri, "error", err)
			p.failed.Store(true)
			return
		}
		// Replace any frame the update thread has not consumed yet.
		select {
		case <-latest:
		default:
		}
		latest <- img
	}
}

func (p *StreamProducer) Kind() Kind             { return KindStream }
func (p *StreamProducer) Ready() bool            { return p.frame != nil }
func (p *StreamProducer) Failed() bool           { return p.failed.Load() }
func (p *StreamProducer) Frame() *ebiten.Image   { return p.frame }
func (p *StreamProducer) Resolution() (int, int) { return p.w, p.h }
func (p *StreamProducer) URI() string            { return p.uri }

// Ended reports whether finite media reached its end.
func (p *StreamProducer) Ended() bool { return p.ended.Load() }

func (p *StreamProducer) State() ProducerState {
	return ProducerState{Kind: KindStream, URI: p.uri, Playing: p.playing}
}

// Update uploads the latest decoded frame while playing.
func (p *StreamProducer) Update(dt float64) {
	p.advance(dt)
	if !p.playing && p.frame != nil {
		return
	}
	select {
	case img := <-p.latest:
		b := img.Bounds()
		if p.frame == nil || b.Dx() != p.w || b.Dy() != p.h {
			if p.frame != nil {
				p.frame.Deallocate()
			}
			p.w, p.h = b.Dx(), b.Dy()
			p.frame = ebiten.NewImage(p.w, p.h)
		}
		p.frame.WritePixels(rgbaPixels(img))
	default:
	}
}

// Replay restarts the decoder from the beginning.
func (p *StreamProducer) Replay() {
	p.stop()
	p.playClock.Replay()
	p.start()
}

func (p *StreamProducer) stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
		p.cancel = nil
	}
}

// Close stops the decoder and releases the frame.
func (p *StreamProducer) Close() error {
	p.stop()
	if p.frame != nil {
		p.frame.Deallocate()
		p.frame = nil
	}
	return nil
}
