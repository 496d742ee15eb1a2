package worker

import (
	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/realtime"
	"github.com/spec-kit/staff-access-service/internal/service"
)

// StartAccessWorker wires event subscribers: the propagation router and the
// notification logger.
func StartAccessWorker(dispatcher events.Dispatcher, router *realtime.Router, notifications *service.NotificationService) {
	if router != nil {
		router.RegisterHandlers(dispatcher)
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
}
