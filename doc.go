// Package vmix is the compositing core of a live video mixer built on
// [Ebitengine].
//
// A [Session] holds an ordered list of [Source] values and composites them
// into one output frame every update. Each source wraps a [Producer]
// (pattern generator, picture, image sequence, clone, render loopback,
// nested session or external stream) and carries four independent
// transform spaces:
//
//   - Mixing: the distance from the center sets the alpha. See
//     [AlphaFromCoordinates] and [Source.SetAlpha].
//   - Geometry: position, rotation, scale and crop in the output.
//   - Layer: the depth, which orders drawing and sets the [Workspace].
//   - Texture: a UV transform applied to the source content.
//
// # Quick start
//
//	m := vmix.NewMixer(vmix.DefaultMixerOptions())
//	src := vmix.NewSource("bars", vmix.NewPatternProducer(vmix.PatternColorBars, 640, 360))
//	m.Add(src)
//	src.SetAlpha(0.5)
//
//	// every frame
//	m.Update(1.0 / 60)
//	screen.DrawImage(m.Session().Output().Image(), nil)
//
// # History and snapshots
//
// Every session has an [ActionManager]. [ActionManager.Store] records the
// whole session as a step of a linear undo timeline; Undo, Redo and StepTo
// merge a recorded step back into the live session, updating sources in
// place so that pointers to them stay valid. Snapshots are named states
// outside the timeline and can be previewed with
// [ActionManager.Interpolate] before being restored.
//
// # Persistence
//
// [Document] is the JSON form of a session. The [Mixer] saves, opens and
// imports documents through a store from the vmix/store package, each in
// the background with at most one job of each kind in flight.
//
// Sessions replaced by [Mixer.New], [Mixer.Open], [Mixer.GroupAll] or
// [Mixer.Flatten] become active on the next [Mixer.Update]; the previous
// session is closed one update later.
//
// [Ebitengine]: https://ebitengine.org
package vmix
