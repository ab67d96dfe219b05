package vmix

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	"github.com/hajimehoshi/ebiten/v2"
)

// ErrUnsupportedMedia is returned for files that are not a decodable image.
var ErrUnsupportedMedia = errors.New("vmix: unsupported media type")

// decodeImageFile reads path, checks its media type from the content and
// decodes it.
func decodeImageFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vmix: read %s: %w", path, err)
	}
	return decodeImage(data, path)
}

func decodeImage(data []byte, name string) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("vmix: sniff %s: %w", name, err)
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: %s is %q", ErrUnsupportedMedia, name, kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("vmix: decode %s (%s): %w", name, kind.MIME.Value, err)
	}
	return img, nil
}

// rgbaPixels returns img as tightly packed RGBA bytes starting at (0, 0).
func rgbaPixels(img image.Image) []byte {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba.Pix
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}

type decodeResult struct {
	img image.Image
	err error
}

// PictureProducer shows a still image decoded in the background.
type PictureProducer struct {
	playClock
	path   string
	result chan decodeResult
	frame  *ebiten.Image
	w, h   int
	failed bool
}

// NewPictureProducer starts decoding path. The producer becomes ready on
// the first Update after decoding finishes, or fails.
func NewPictureProducer(path string) *PictureProducer {
	p := &PictureProducer{path: path, result: make(chan decodeResult, 1)}
	go func() {
		img, err := decodeImageFile(path)
		p.result <- decodeResult{img, err}
	}()
	return p
}

func (p *PictureProducer) Kind() Kind             { return KindPicture }
func (p *PictureProducer) Ready() bool            { return p.frame != nil }
func (p *PictureProducer) Failed() bool           { return p.failed }
func (p *PictureProducer) Frame() *ebiten.Image   { return p.frame }
func (p *PictureProducer) Resolution() (int, int) { return p.w, p.h }
func (p *PictureProducer) Path() string           { return p.path }

func (p *PictureProducer) State() ProducerState {
	return ProducerState{Kind: KindPicture, Path: p.path, Playing: p.playing}
}

// Update uploads the decoded image once it is available.
func (p *PictureProducer) Update(dt float64) {
	p.advance(dt)
	if p.frame != nil || p.failed {
		return
	}
	select {
	case r := <-p.result:
		if r.err != nil {
			Logger().Warn("picture failed", "path", p.path, "error", r.err)
			p.failed = true
			return
		}
		b := r.img.Bounds()
		p.w, p.h = b.Dx(), b.Dy()
		p.frame = ebiten.NewImageFromImage(r.img)
	default:
	}
}

// Close releases the frame.
func (p *PictureProducer) Close() error {
	if p.frame != nil {
		p.frame.Deallocate()
		p.frame = nil
	}
	return nil
}

// ProducerForPaths picks a producer for media files: one image is a
// picture, several images are a sequence at fps.
func ProducerForPaths(fps float64, paths ...string) (Producer, error) {
	switch len(paths) {
	case 0:
		return nil, errors.New("vmix: no media path")
	case 1:
		head := make([]byte, 261)
		f, err := os.Open(paths[0])
		if err != nil {
			return nil, fmt.Errorf("vmix: open %s: %w", paths[0], err)
		}
		n, _ := f.Read(head)
		_ = f.Close()
		head = head[:n]
		if filetype.IsImage(head) {
			return NewPictureProducer(paths[0]), nil
		}
		if filetype.IsVideo(head) {
			return NewStreamProducer("file://" + paths[0])
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, paths[0])
	default:
		return NewSequenceProducer(paths, fps), nil
	}
}
