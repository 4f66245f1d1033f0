package ops

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type StatusAction string

const (
	ActionCancel   StatusAction = "cancel"
	ActionComplete StatusAction = "complete"
	ActionNoShow   StatusAction = "no-show"
)

// ChangeStatus moves a session through its lifecycle.
type ChangeStatus struct {
	*base
}

func (uc *ChangeStatus) Execute(
	ctx context.Context,
	actor string,
	sessionID uuid.UUID,
	action StatusAction,
) (*models.Session, error) {

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := uc.deps.Clock()

	var auditAction string
	switch action {
	case ActionCancel:
		err = domain.Cancel(s, now)
		auditAction = "session_cancelled"
	case ActionComplete:
		err = domain.Complete(s, now)
		auditAction = "session_completed"
	case ActionNoShow:
		err = domain.MarkNoShow(s, now)
		auditAction = "session_no_show"
	default:
		return nil, httperr.ErrBusiness("invalid_action")
	}
	if err != nil {
		return nil, err
	}

	if err := uc.deps.Sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	uc.audit(actor, auditAction, s.ID, nil)
	return s, nil
}
