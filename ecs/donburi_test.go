package ecs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/phanxgames/vmix"
)

func TestNewDonburiNotifier(t *testing.T) {
	world := donburi.NewWorld()
	require.NotNil(t, NewDonburiNotifier(world))
}

func TestDonburiNotifierPublishes(t *testing.T) {
	world := donburi.NewWorld()
	n := NewDonburiNotifier(world)

	var received []vmix.Notification
	NotificationEventType.Subscribe(world, func(w donburi.World, e vmix.Notification) {
		received = append(received, e)
	})

	now := time.Now()
	n.Notify(vmix.Notification{Level: vmix.NotifyError, Message: "Failed to save live.vmx", Time: now})
	n.Notify(vmix.Notification{Level: vmix.NotifyInfo, Message: "Session saved"})

	// Events are queued until processed.
	assert.Empty(t, received)
	NotificationEventType.ProcessEvents(world)

	require.Len(t, received, 2)
	assert.Equal(t, vmix.NotifyError, received[0].Level)
	assert.Equal(t, "Failed to save live.vmx", received[0].Message)
	assert.True(t, received[0].Time.Equal(now))
	assert.Equal(t, "Session saved", received[1].Message)
}

func TestDonburiNotifierWithMixer(t *testing.T) {
	world := donburi.NewWorld()
	opts := vmix.DefaultMixerOptions()
	opts.Notifier = NewDonburiNotifier(world)
	m := vmix.NewMixer(opts)
	defer m.Close()

	var received []vmix.Notification
	NotificationEventType.Subscribe(world, func(w donburi.World, e vmix.Notification) {
		received = append(received, e)
	})

	// No store configured: Save fails synchronously without notifying.
	require.ErrorIs(t, m.Save("x.vmx"), vmix.ErrNoStore)
	NotificationEventType.ProcessEvents(world)
	assert.Empty(t, received)
}
