package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"roombook/pkg/domain"
)

// serializable forces the availability check and the following write into
// one serializable transaction, closing the check-then-insert race between
// concurrent bookings of the same slot.
var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ReservationModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateChecked inserts the reservation if its slot is free.
func (s *GormStore) CreateChecked(ctx context.Context, r *domain.Reservation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		free, err := slotFree(tx, *r, 0)
		if err != nil {
			return err
		}
		if !free {
			return ErrConflict
		}
		model := reservationToModel(*r)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		r.ID = model.ID
		return nil
	}, serializable)
}

// UpdateChecked rewrites the reservation if its new slot is free, ignoring
// its own prior interval.
func (s *GormStore) UpdateChecked(ctx context.Context, r *domain.Reservation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ReservationModel
		if err := tx.First(&existing, "id = ?", r.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		free, err := slotFree(tx, *r, r.ID)
		if err != nil {
			return err
		}
		if !free {
			return ErrConflict
		}
		model := reservationToModel(*r)
		return tx.Save(&model).Error
	}, serializable)
}

func slotFree(tx *gorm.DB, r domain.Reservation, excludeID int64) (bool, error) {
	models, err := findForSlot(tx, r.Room, r.Date, excludeID)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if reservationFromModel(m).OverlapsSlot(r.StartTime, r.EndTime) {
			return false, nil
		}
	}
	return true, nil
}

func findForSlot(tx *gorm.DB, room domain.Room, date domain.Date, excludeID int64) ([]ReservationModel, error) {
	var models []ReservationModel
	q := tx.Where("room = ? AND date = ?", string(room), date.String())
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

// Get retrieves a reservation by ID.
func (s *GormStore) Get(ctx context.Context, id int64) (domain.Reservation, bool, error) {
	var model ReservationModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Reservation{}, false, nil
		}
		return domain.Reservation{}, false, err
	}
	return reservationFromModel(model), true, nil
}

// Delete removes a reservation, reporting whether it existed.
func (s *GormStore) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&ReservationModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListForSlot returns same-room same-day reservations for an availability
// probe outside of a write transaction.
func (s *GormStore) ListForSlot(ctx context.Context, room domain.Room, date domain.Date, excludeID int64) ([]domain.Reservation, error) {
	models, err := findForSlot(s.db.WithContext(ctx), room, date, excludeID)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// ListUpcoming returns reservations starting at or after the reference
// point, ordered by date then start time.
func (s *GormStore) ListUpcoming(ctx context.Context, today domain.Date, now domain.TimeOfDay) ([]domain.Reservation, error) {
	return s.list(ctx, "date > ? OR (date = ? AND start_minutes >= ?)", today.String(), today.String(), int(now))
}

// ListPast returns reservations that started before the reference point,
// ordered by date then start time.
func (s *GormStore) ListPast(ctx context.Context, today domain.Date, now domain.TimeOfDay) ([]domain.Reservation, error) {
	return s.list(ctx, "date < ? OR (date = ? AND start_minutes < ?)", today.String(), today.String(), int(now))
}

func (s *GormStore) list(ctx context.Context, cond string, args ...any) ([]domain.Reservation, error) {
	var models []ReservationModel
	err := s.db.WithContext(ctx).
		Where(cond, args...).
		Order("date ASC, start_minutes ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func fromModels(models []ReservationModel) []domain.Reservation {
	res := make([]domain.Reservation, 0, len(models))
	for _, m := range models {
		res = append(res, reservationFromModel(m))
	}
	return res
}
