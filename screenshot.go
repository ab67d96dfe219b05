package vmix

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Screenshot writes the output of the next update to dir as a PNG named
// after label and the current time. The file is written in the background
// and reported through the notifier; one screenshot runs at a time.
func (m *Mixer) Screenshot(dir, label string) error {
	if !m.shots.acquire() {
		return fmt.Errorf("screenshot %s: %w", label, ErrBusy)
	}
	req := m.session.RequestCapture()
	timeout := m.opts.ThumbnailTimeout
	m.shots.run(m.ctx, label, func(ctx context.Context) (string, error) {
		wctx, cancel := context.WithTimeout(ctx, timeout)
		img, err := req.Wait(wctx)
		cancel()
		if err != nil {
			return "", err
		}
		return writeScreenshot(dir, label, img, time.Now())
	})
	return nil
}

// writeScreenshot encodes img into dir and returns the file path.
func writeScreenshot(dir, label string, img image.Image, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("vmix: screenshot dir: %w", err)
	}
	path := filepath.Join(dir, t.Format("20060102_150405")+"_"+screenshotName(label)+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("vmix: screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("vmix: encode %s: %w", path, err)
	}
	return path, f.Close()
}

// screenshotName keeps letters, digits, '-' and '.' of label and replaces
// everything else with '_'.
func screenshotName(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "output"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
