package app

import (
	"context"
	"fmt"
	"log/slog"

	"roombook/pkg/domain"
)

// IsAvailable reports whether the room is free for [start,end) on date.
// Pass excludeID > 0 to ignore a reservation's own interval when
// re-checking an edit. A reservation ending exactly at start (or starting
// exactly at end) does not conflict.
//
// This is a read-only probe. The write paths re-evaluate the same rules
// inside the store transaction, so a probe result can never be trusted
// across a concurrent write.
func (a *App) IsAvailable(ctx context.Context, room domain.Room, date domain.Date, start, end domain.TimeOfDay, excludeID int64) (bool, error) {
	existing, err := a.store.ListForSlot(ctx, room, date, excludeID)
	if err != nil {
		return false, fmt.Errorf("list reservations for slot: %w", err)
	}
	for _, r := range existing {
		if r.OverlapsSlot(start, end) {
			slog.Warn("slot conflict",
				"room", room,
				"date", date.String(),
				"conflicting_id", r.ID,
			)
			return false, nil
		}
	}
	return true, nil
}
