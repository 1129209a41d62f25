package app

import (
	"regexp"
	"strings"

	"roombook/pkg/domain"
)

const (
	remarksMinLen = 10
	remarksMaxLen = 200
)

var (
	remarksPattern      = regexp.MustCompile(`^[a-zA-Z0-9\s]*$`)
	participantsPattern = regexp.MustCompile(`^([A-Za-z\s]+,)*[A-Za-z\s]+$`)
)

type fieldValidator func(domain.Reservation) *FieldError

// fieldValidators is the ordered validation pipeline for a candidate
// reservation. Every validator runs; violations accumulate.
var fieldValidators = []fieldValidator{
	validateDate,
	validateTimeOrder,
	validateRoom,
	validateOrganizer,
	validateRemarks,
	validateParticipants,
}

// validate runs the field pipeline plus the past-start business rule.
// The availability check is not part of this pass; it only runs once the
// candidate is otherwise valid.
func (a *App) validate(r domain.Reservation) ValidationErrors {
	var errs ValidationErrors
	for _, check := range fieldValidators {
		if fe := check(r); fe != nil {
			errs = append(errs, *fe)
		}
	}
	if fe := a.validateNotPast(r); fe != nil {
		errs = append(errs, *fe)
	}
	return errs
}

func validateDate(r domain.Reservation) *FieldError {
	if r.Date.IsZero() {
		return &FieldError{Field: "date", Message: "date is required"}
	}
	return nil
}

func validateTimeOrder(r domain.Reservation) *FieldError {
	if r.StartTime >= r.EndTime {
		return &FieldError{Field: "startTime", Message: "start time must be before end time"}
	}
	return nil
}

func validateRoom(r domain.Reservation) *FieldError {
	if !r.Room.Valid() {
		return &FieldError{Field: "room", Message: "choose one of the known rooms"}
	}
	return nil
}

func validateOrganizer(r domain.Reservation) *FieldError {
	if strings.TrimSpace(r.Organizer) == "" {
		return &FieldError{Field: "organizer", Message: "organizer is required"}
	}
	return nil
}

func validateRemarks(r domain.Reservation) *FieldError {
	if n := len(r.Remarks); n < remarksMinLen || n > remarksMaxLen {
		return &FieldError{Field: "remarks", Message: "remarks must be between 10 and 200 characters"}
	}
	if !remarksPattern.MatchString(r.Remarks) {
		return &FieldError{Field: "remarks", Message: "remarks may only contain alphanumeric characters"}
	}
	return nil
}

func validateParticipants(r domain.Reservation) *FieldError {
	if strings.TrimSpace(r.Participants) == "" {
		return &FieldError{Field: "participants", Message: "participants must not be empty"}
	}
	if !participantsPattern.MatchString(r.Participants) {
		return &FieldError{Field: "participants", Message: "participants may only contain letters and commas"}
	}
	return nil
}

// validateNotPast checks that the reservation starts at or after "now" in
// the configured reference zone. Skipped when the date is missing; that is
// already reported by validateDate.
func (a *App) validateNotPast(r domain.Reservation) *FieldError {
	if r.Date.IsZero() {
		return nil
	}
	startsAt := r.Date.At(r.StartTime, a.zone)
	if startsAt.Before(a.now().In(a.zone)) {
		return &FieldError{Field: "date", Message: "reservation must not start in the past"}
	}
	return nil
}
