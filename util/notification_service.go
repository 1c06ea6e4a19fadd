// api/util/notification_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
)

// NotificationService is the out-of-band escalation path for critical
// anomaly alerts. Delivery is best-effort and fire-and-forget; a failed
// notification never affects the access decision that produced it.
type NotificationService struct {
	// In a real deployment this would hold a pager/messaging client.
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyCriticalAlerts escalates a batch of critical-severity alerts.
func (n *NotificationService) NotifyCriticalAlerts(ctx context.Context, alerts []model.Alert) error {
	for _, alert := range alerts {
		logger.Warn("ESCALATION: Critical anomaly alert",
			zap.String("type", alert.Type),
			zap.String("subjectID", alert.SubjectID),
			zap.String("message", alert.Message),
			zap.Time("timestamp", alert.Timestamp))
	}

	// Here you would implement the actual escalation logic. This could
	// involve paging, posting to a messaging channel, etc.

	return nil
}

// NotifyAdmins sends a plain message to the system administrators.
func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Info("Notifying admins", zap.String("message", message))
	return nil
}

// NotifyPolicyReload informs operators that the policy set was replaced.
func (n *NotificationService) NotifyPolicyReload(ctx context.Context, policyCount int) error {
	logger.Info("NOTIFICATION: Policy set reloaded",
		zap.Int("policyCount", policyCount))
	return nil
}
