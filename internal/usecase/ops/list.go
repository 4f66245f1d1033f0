package ops

import (
	"context"
	"time"

	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type ListFailedNotifications struct {
	*base
}

func (uc *ListFailedNotifications) Execute(ctx context.Context, limit int) ([]models.Notification, error) {
	return uc.deps.Notifications.FailedNotifications(ctx, limit)
}

type ListUpcoming struct {
	*base
}

func (uc *ListUpcoming) Execute(ctx context.Context, ahead time.Duration) ([]models.Session, error) {
	if ahead <= 0 {
		ahead = 48 * time.Hour
	}
	now := uc.deps.Clock()
	return uc.deps.Sessions.ListUpcoming(ctx, now, now.Add(ahead))
}
