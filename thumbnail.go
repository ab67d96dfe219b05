package vmix

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/anthonynsimon/bild/transform"
)

// ThumbnailSize is the largest dimension of a session thumbnail.
const ThumbnailSize = 256

// ThumbnailRequest is a pending capture of the session output. It is
// fulfilled after the next render pass.
type ThumbnailRequest struct {
	done chan struct{}
	once sync.Once
	full bool
	img  image.Image
	err  error
}

func newThumbnailRequest(full bool) *ThumbnailRequest {
	return &ThumbnailRequest{done: make(chan struct{}), full: full}
}

func (r *ThumbnailRequest) fulfill(img image.Image, err error) {
	r.once.Do(func() {
		r.img, r.err = img, err
		close(r.done)
	})
}

// Done is closed once the thumbnail is available.
func (r *ThumbnailRequest) Done() <-chan struct{} { return r.done }

// Wait blocks until the thumbnail is captured or ctx ends.
func (r *ThumbnailRequest) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-r.done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrThumbnailTimeout, ctx.Err())
	}
}

// RequestThumbnail asks for a capture of the output at the end of the next
// update.
func (s *Session) RequestThumbnail() *ThumbnailRequest {
	r := newThumbnailRequest(false)
	s.thumbs = append(s.thumbs, r)
	return r
}

// RequestCapture asks for a full resolution capture of the output at the
// end of the next update.
func (s *Session) RequestCapture() *ThumbnailRequest {
	r := newThumbnailRequest(true)
	s.thumbs = append(s.thumbs, r)
	return r
}

// fulfillThumbnails reads back the output once for every pending request.
// Scaling runs off the update goroutine.
func (s *Session) fulfillThumbnails() {
	if len(s.thumbs) == 0 {
		return
	}
	reqs := s.thumbs
	s.thumbs = nil
	img, err := s.capture(s.output)
	go func() {
		var thumb image.Image
		for _, r := range reqs {
			switch {
			case err != nil:
				r.fulfill(nil, err)
			case r.full:
				r.fulfill(img, nil)
			default:
				if thumb == nil {
					thumb = scaleThumbnail(img)
				}
				r.fulfill(thumb, nil)
			}
		}
	}()
}

func (s *Session) failThumbnails(err error) {
	for _, r := range s.thumbs {
		r.fulfill(nil, err)
	}
	s.thumbs = nil
}

// scaleThumbnail fits img into ThumbnailSize keeping its aspect ratio.
func scaleThumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}
	if w <= ThumbnailSize && h <= ThumbnailSize {
		return img
	}
	if w >= h {
		h = max(1, h*ThumbnailSize/w)
		w = ThumbnailSize
	} else {
		w = max(1, w*ThumbnailSize/h)
		h = ThumbnailSize
	}
	return transform.Resize(img, w, h, transform.Linear)
}

// readFrame copies the frame buffer to the CPU.
func readFrame(fb *FrameBuffer) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vmix: read frame: %v", r)
		}
	}()
	rgba := image.NewRGBA(image.Rect(0, 0, fb.w, fb.h))
	fb.image.ReadPixels(rgba.Pix)
	return rgba, nil
}
