package vmix

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// fading is the fade-to-black amount of a session, in [0, 1].
type fading struct {
	value  float64
	target float64
	tween  *gween.Tween
}

// set moves linearly toward target over duration seconds, or immediately
// when the duration is not positive.
func (f *fading) set(target, duration float64) {
	f.target = clamp01(target)
	if duration <= 0 || f.target == f.value {
		f.value = f.target
		f.tween = nil
		return
	}
	f.tween = gween.New(float32(f.value), float32(f.target), float32(duration), ease.Linear)
}

func (f *fading) update(dt float64) {
	if f.tween == nil {
		return
	}
	v, done := f.tween.Update(float32(dt))
	f.value = clamp01(float64(v))
	if done {
		f.value = f.target
		f.tween = nil
	}
}
