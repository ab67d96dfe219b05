package ecs

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"

	"github.com/phanxgames/vmix"
)

// NotificationEventType is the Donburi event type for mixer notifications.
// Subscribe to this in your ECS systems to show job outcomes and source
// failures.
var NotificationEventType = events.NewEventType[vmix.Notification]()

type donburiNotifier struct {
	world donburi.World
}

// NewDonburiNotifier creates a Notifier backed by a Donburi world.
// Notifications are published to NotificationEventType and can be consumed
// with events.Subscribe and ProcessEvents.
func NewDonburiNotifier(world donburi.World) vmix.Notifier {
	return &donburiNotifier{world: world}
}

func (n *donburiNotifier) Notify(note vmix.Notification) {
	NotificationEventType.Publish(n.world, note)
}
