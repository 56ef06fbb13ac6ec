package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/notify"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *notify.Service) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
