package ws

import "github.com/DevDeskHQ/devdesk_api/internal/models"

// ActivityNotifier is the interface services use to emit activity events
// without depending on the hub type.
type ActivityNotifier interface {
	NotifyActivity(entry *models.ActivityLog)
}

// HubNotifier implements ActivityNotifier using the websocket Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyActivity(entry *models.ActivityLog) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(entry)
}

// NopNotifier is a no-op implementation for when no hub is wired.
type NopNotifier struct{}

func (n *NopNotifier) NotifyActivity(entry *models.ActivityLog) {}
