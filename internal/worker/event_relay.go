package worker

import (
	"github.com/opsledger/lifecycle-service/internal/service"
)

// StartEventRelay subscribes the relay to lifecycle events.
func StartEventRelay(relay *service.EventRelay) {
	if relay == nil {
		return
	}
	relay.RegisterHandlers()
}
