// Package ecs connects the mixer to ECS worlds.
//
// [NewDonburiNotifier] returns a vmix.Notifier that publishes every
// notification to [NotificationEventType] in a Donburi world:
//
//	world := donburi.NewWorld()
//	opts := vmix.DefaultMixerOptions()
//	opts.Notifier = ecs.NewDonburiNotifier(world)
//	mixer := vmix.NewMixer(opts)
//
//	ecs.NotificationEventType.Subscribe(world, func(w donburi.World, n vmix.Notification) {
//		// show n.Message
//	})
//
//	// each frame, after mixer.Update
//	ecs.NotificationEventType.ProcessEvents(world)
package ecs
