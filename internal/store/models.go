package store

import (
	"time"

	"roombook/pkg/domain"
)

// ReservationModel is the GORM row for a reservation. Dates are stored as
// ISO strings and clock times as minutes from midnight so that the
// (room, date) availability axis and the (date, start) ordering are plain
// column comparisons.
type ReservationModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Date           string `gorm:"not null;index:idx_reservations_room_date,priority:2"`
	StartMinutes   int    `gorm:"not null"`
	EndMinutes     int    `gorm:"not null"`
	Room           string `gorm:"not null;index:idx_reservations_room_date,priority:1"`
	Organizer      string `gorm:"not null"`
	Remarks        string `gorm:"not null"`
	Participants   string `gorm:"not null"`
	PrivateKeyHash string `gorm:"not null"`
	PublicKeyHash  string `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (ReservationModel) TableName() string { return "reservations" }

func reservationToModel(r domain.Reservation) ReservationModel {
	return ReservationModel{
		ID:             r.ID,
		Date:           r.Date.String(),
		StartMinutes:   int(r.StartTime),
		EndMinutes:     int(r.EndTime),
		Room:           string(r.Room),
		Organizer:      r.Organizer,
		Remarks:        r.Remarks,
		Participants:   r.Participants,
		PrivateKeyHash: r.PrivateKeyHash,
		PublicKeyHash:  r.PublicKeyHash,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func reservationFromModel(m ReservationModel) domain.Reservation {
	date, _ := domain.ParseDate(m.Date)
	return domain.Reservation{
		ID:             m.ID,
		Date:           date,
		StartTime:      domain.TimeOfDay(m.StartMinutes),
		EndTime:        domain.TimeOfDay(m.EndMinutes),
		Room:           domain.Room(m.Room),
		Organizer:      m.Organizer,
		Remarks:        m.Remarks,
		Participants:   m.Participants,
		PrivateKeyHash: m.PrivateKeyHash,
		PublicKeyHash:  m.PublicKeyHash,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
