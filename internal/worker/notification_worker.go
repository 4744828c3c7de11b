package worker

import (
	"github.com/spec-kit/support-desk/internal/notify"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notifier *notify.Notifier) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers()
}
