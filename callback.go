package vmix

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// CallbackKind identifies what a SourceCallback changes.
type CallbackKind uint8

const (
	CallbackSetAlpha    CallbackKind = iota // Mixing position toward an alpha
	CallbackLoom                            // Mixing position along its direction
	CallbackSetDepth                        // Layer depth
	CallbackGrab                            // Geometry translation by a delta
	CallbackResize                          // Geometry scale by a delta
	CallbackTurn                            // Geometry rotation by an angle
	CallbackSetGeometry                     // Geometry node toward a target
	CallbackPlay                            // producer play or pause
	CallbackReplay                          // producer restart
	CallbackLock                            // lock or unlock
)

var callbackKindNames = [...]string{
	"set-alpha", "loom", "set-depth", "grab", "resize", "turn", "set-geometry", "play", "replay", "lock",
}

func (k CallbackKind) String() string {
	if int(k) < len(callbackKindNames) {
		return callbackKindNames[k]
	}
	return "unknown"
}

// transforms reports whether the kind is an interactive transform that a
// locked source ignores.
func (k CallbackKind) transforms() bool {
	return k <= CallbackSetGeometry
}

// SourceCallback is a timed property change queued on a Source. A single
// progress tween from 0 to 1 drives the change; start values are captured
// on the first update. Zero or negative durations apply on the first update.
type SourceCallback struct {
	kind     CallbackKind
	duration float32
	ease     ease.TweenFunc
	tween    *gween.Tween
	started  bool
	done     bool

	alpha  float64
	depth  float64
	delta  Vec3
	speed  float64
	target TransformNode
	on     bool

	from    TransformNode
	fromPos Vec2
	toPos   Vec2
}

func newCallback(kind CallbackKind, duration float64) *SourceCallback {
	return &SourceCallback{kind: kind, duration: float32(duration), ease: ease.Linear}
}

// SetAlphaCallback moves the Mixing position so that alpha reaches a.
func SetAlphaCallback(a, duration float64) *SourceCallback {
	c := newCallback(CallbackSetAlpha, duration)
	c.alpha = a
	return c
}

// LoomCallback moves the Mixing position away from the center (positive
// speed) or toward it (negative speed), in units per second.
func LoomCallback(speed, duration float64) *SourceCallback {
	c := newCallback(CallbackLoom, duration)
	c.speed = speed
	return c
}

// SetDepthCallback moves the source to depth d.
func SetDepthCallback(d, duration float64) *SourceCallback {
	c := newCallback(CallbackSetDepth, duration)
	c.depth = d
	return c
}

// GrabCallback translates the Geometry node by delta.
func GrabCallback(delta Vec2, duration float64) *SourceCallback {
	c := newCallback(CallbackGrab, duration)
	c.delta = delta.Vec3(0)
	return c
}

// ResizeCallback adds delta to the Geometry scale.
func ResizeCallback(delta Vec2, duration float64) *SourceCallback {
	c := newCallback(CallbackResize, duration)
	c.delta = delta.Vec3(0)
	return c
}

// TurnCallback rotates the Geometry node by angle radians.
func TurnCallback(angle, duration float64) *SourceCallback {
	c := newCallback(CallbackTurn, duration)
	c.delta = Vec3{0, 0, angle}
	return c
}

// SetGeometryCallback moves every Geometry component toward target.
func SetGeometryCallback(target *TransformNode, duration float64) *SourceCallback {
	c := newCallback(CallbackSetGeometry, duration)
	c.target = *target
	return c
}

// PlayCallback plays or pauses the producer.
func PlayCallback(on bool) *SourceCallback {
	c := newCallback(CallbackPlay, 0)
	c.on = on
	return c
}

// ReplayCallback restarts the producer.
func ReplayCallback() *SourceCallback {
	return newCallback(CallbackReplay, 0)
}

// LockCallback locks or unlocks the source.
func LockCallback(on bool) *SourceCallback {
	c := newCallback(CallbackLock, 0)
	c.on = on
	return c
}

// WithEase sets the easing function. Returns c for chaining.
func (c *SourceCallback) WithEase(fn ease.TweenFunc) *SourceCallback {
	if fn != nil {
		c.ease = fn
	}
	return c
}

// Kind returns what the callback changes.
func (c *SourceCallback) Kind() CallbackKind { return c.kind }

// Done reports whether the callback has finished.
func (c *SourceCallback) Done() bool { return c.done }

// update advances the callback by dt seconds and applies it to s.
func (c *SourceCallback) update(s *Source, dt float64) {
	if c.done {
		return
	}
	if c.kind.transforms() && s.locked {
		c.done = true
		return
	}
	if !c.started {
		c.start(s)
	}

	progress := 1.0
	if c.tween != nil {
		v, finished := c.tween.Update(float32(dt))
		progress = float64(v)
		c.done = finished
	} else {
		c.done = true
	}
	if c.done {
		progress = 1
	}
	c.apply(s, progress)
}

func (c *SourceCallback) start(s *Source) {
	c.started = true
	if c.duration > 0 {
		c.tween = gween.New(0, 1, c.duration, c.ease)
	}
	switch c.kind {
	case CallbackSetAlpha, CallbackLoom:
		c.from = *s.Node(ViewMixing)
		pos := c.from.Translation.XY()
		if c.kind == CallbackSetAlpha {
			c.fromPos = pos
			c.toPos = MixingPositionForAlpha(pos, c.alpha)
		} else {
			dir := Vec2{1, 1}.Normalize()
			if pos.Len() > alphaEpsilon {
				dir = pos.Normalize()
			}
			c.fromPos = pos
			c.toPos = pos.Add(dir.Mul(c.speed * float64(max(c.duration, 0))))
		}
	case CallbackSetDepth:
		c.from = *s.Node(ViewLayer)
	case CallbackGrab, CallbackResize, CallbackTurn, CallbackSetGeometry:
		c.from = *s.Node(ViewGeometry)
	}
}

func (c *SourceCallback) apply(s *Source, t float64) {
	switch c.kind {
	case CallbackSetAlpha, CallbackLoom:
		pos := c.fromPos.Lerp(c.toPos, t)
		n := s.Node(ViewMixing)
		n.SetTranslation(Vec3{pos.X, pos.Y, n.Translation.Z})
	case CallbackSetDepth:
		s.SetDepth(lerp(c.from.Translation.Z, c.depth, t))
	case CallbackGrab:
		s.Node(ViewGeometry).SetTranslation(c.from.Translation.Add(c.delta.Mul(t)))
	case CallbackResize:
		s.Node(ViewGeometry).SetScale(c.from.Scale.Add(c.delta.Mul(t)))
	case CallbackTurn:
		s.Node(ViewGeometry).SetRotation(c.from.Rotation.Add(c.delta.Mul(t)))
	case CallbackSetGeometry:
		n := s.Node(ViewGeometry)
		n.SetTranslation(c.from.Translation.Lerp(c.target.Translation, t))
		n.SetRotation(c.from.Rotation.Lerp(c.target.Rotation, t))
		n.SetScale(c.from.Scale.Lerp(c.target.Scale, t))
		n.SetCrop(c.from.Crop.Lerp(c.target.Crop, t))
	case CallbackPlay:
		s.Play(c.on)
	case CallbackReplay:
		s.Replay()
	case CallbackLock:
		s.SetLocked(c.on)
	}
	s.touch()
}
