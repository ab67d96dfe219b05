package vmix

import (
	"context"
	"image"
	"runtime"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultSequenceFPS is the frame rate of sequences without one.
const DefaultSequenceFPS = 25.0

// SequenceProducer plays a list of still images at a fixed frame rate,
// looping. All frames are decoded in parallel before the first is shown.
// Frames are resized to the resolution of the first one.
type SequenceProducer struct {
	playClock
	paths  []string
	fps    float64
	result chan sequenceResult
	images []image.Image
	frame  *ebiten.Image
	shown  int
	w, h   int
	failed bool
}

type sequenceResult struct {
	images []image.Image
	err    error
}

// NewSequenceProducer starts decoding paths in the background.
func NewSequenceProducer(paths []string, fps float64) *SequenceProducer {
	if fps <= 0 {
		fps = DefaultSequenceFPS
	}
	p := &SequenceProducer{
		paths:     append([]string(nil), paths...),
		fps:       fps,
		result:    make(chan sequenceResult, 1),
		shown:     -1,
		playClock: playClock{playing: true},
	}
	go func() {
		images, err := decodeSequence(context.Background(), p.paths)
		p.result <- sequenceResult{images, err}
	}()
	return p
}

// decodeSequence decodes every path concurrently, bounded by the CPU count.
// The first error cancels the rest.
func decodeSequence(ctx context.Context, paths []string) ([]image.Image, error) {
	images := make([]image.Image, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := decodeImageFile(path)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(images) > 1 {
		b := images[0].Bounds()
		for i, img := range images[1:] {
			if img.Bounds().Size() != b.Size() {
				images[i+1] = transform.Resize(img, b.Dx(), b.Dy(), transform.Linear)
			}
		}
	}
	return images, nil
}

func (p *SequenceProducer) Kind() Kind             { return KindSequence }
func (p *SequenceProducer) Ready() bool            { return p.frame != nil }
func (p *SequenceProducer) Failed() bool           { return p.failed }
func (p *SequenceProducer) Frame() *ebiten.Image   { return p.frame }
func (p *SequenceProducer) Resolution() (int, int) { return p.w, p.h }
func (p *SequenceProducer) FPS() float64           { return p.fps }

// Len returns the number of frames, or 0 before decoding finishes.
func (p *SequenceProducer) Len() int { return len(p.images) }

func (p *SequenceProducer) State() ProducerState {
	return ProducerState{Kind: KindSequence, Paths: append([]string(nil), p.paths...), FPS: p.fps, Playing: p.playing}
}

// Duration is the length of one loop.
func (p *SequenceProducer) Duration() time.Duration {
	return time.Duration(float64(len(p.paths)) / p.fps * float64(time.Second))
}

// Update collects decoded frames and uploads the frame for the current
// position.
func (p *SequenceProducer) Update(dt float64) {
	if p.failed {
		return
	}
	if p.images == nil {
		select {
		case r := <-p.result:
			if r.err != nil {
				Logger().Warn("sequence failed", "frames", len(p.paths), "error", r.err)
				p.failed = true
				return
			}
			if len(r.images) == 0 {
				p.failed = true
				return
			}
			p.images = r.images
			b := p.images[0].Bounds()
			p.w, p.h = b.Dx(), b.Dy()
			p.frame = ebiten.NewImage(p.w, p.h)
		default:
			return
		}
	}

	p.advance(dt)
	if d := p.Duration(); d > 0 && p.position >= d {
		p.position %= d
	}
	if i := p.frameIndex(); i != p.shown {
		p.frame.WritePixels(rgbaPixels(p.images[i]))
		p.shown = i
	}
}

func (p *SequenceProducer) frameIndex() int {
	if len(p.images) == 0 {
		return 0
	}
	i := int(p.position.Seconds() * p.fps)
	return i % len(p.images)
}

// Close releases the frame and the decoded images.
func (p *SequenceProducer) Close() error {
	if p.frame != nil {
		p.frame.Deallocate()
		p.frame = nil
	}
	p.images = nil
	return nil
}
