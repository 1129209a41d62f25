package app

import (
	"context"
	"testing"

	"roombook/pkg/domain"
)

func TestIsAvailable(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	base := validReservation()
	base.StartTime = 10 * 60
	base.EndTime = 11 * 60
	created, err := a.CreateReservation(ctx, base)
	if err != nil {
		t.Fatal(err)
	}
	existingID := created.Reservation.ID

	cases := []struct {
		name       string
		room       domain.Room
		start, end domain.TimeOfDay
		excludeID  int64
		want       bool
	}{
		{name: "back to back before", room: base.Room, start: 9 * 60, end: 10 * 60, want: true},
		{name: "back to back after", room: base.Room, start: 11 * 60, end: 12 * 60, want: true},
		{name: "starts during existing", room: base.Room, start: 9*60 + 30, end: 10*60 + 30, want: false},
		{name: "ends during existing", room: base.Room, start: 10*60 + 30, end: 11*60 + 30, want: false},
		{name: "contains existing", room: base.Room, start: 9 * 60, end: 12 * 60, want: false},
		{name: "inside existing", room: base.Room, start: 10*60 + 15, end: 10*60 + 45, want: false},
		{name: "other room same slot", room: domain.RoomBeta, start: 10 * 60, end: 11 * 60, want: true},
		{name: "own interval excluded", room: base.Room, start: 10 * 60, end: 11 * 60, excludeID: existingID, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.IsAvailable(ctx, tc.room, base.Date, tc.start, tc.end, tc.excludeID)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("IsAvailable = %v, want %v", got, tc.want)
			}
		})
	}
}
