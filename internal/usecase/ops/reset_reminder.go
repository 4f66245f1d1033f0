package ops

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
)

// ResetReminder reopens a notification flag so the next sweep can send again.
type ResetReminder struct {
	*base
}

func (uc *ResetReminder) Execute(
	ctx context.Context,
	actor string,
	sessionID uuid.UUID,
	flagName string,
) error {

	flag, err := domain.ParseFlag(flagName)
	if err != nil {
		return err
	}

	if _, err := uc.load(ctx, sessionID); err != nil {
		return err
	}

	if err := uc.deps.Sessions.ResetFlag(ctx, sessionID, flag); err != nil {
		return fmt.Errorf("reset %s: %w", flag, err)
	}

	uc.audit(actor, "reminder_reset", sessionID, map[string]string{"flag": string(flag)})
	return nil
}
