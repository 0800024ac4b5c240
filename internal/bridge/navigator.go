package bridge

import (
	"github.com/kisanmitra/ariavoice/internal/bus"
)

// BusNavigator forwards navigation intents onto the event bus; the voice
// bridge relays them to the frontend router.
type BusNavigator struct {
	events *bus.EventBus
}

// NewBusNavigator creates a navigator publishing on the given bus.
func NewBusNavigator(events *bus.EventBus) *BusNavigator {
	return &BusNavigator{events: events}
}

// Navigate publishes a screen change request.
func (n *BusNavigator) Navigate(screen string, params map[string]string) error {
	data := map[string]any{"screen": screen}
	for k, v := range params {
		data[k] = v
	}
	n.events.Publish(bus.Event{Type: bus.EventTypeNavigate, Data: data})
	return nil
}
