package scheduling

import (
	"clinic-booking/internal/apierrors"
	"time"

	"github.com/google/uuid"
)

// Status is shared by an agenda entry and its consultation. Both records always
// carry the same value, kept in sync by the service transition path.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
	StatusBlocked   Status = "BLOCKED"
)

const (
	maxConsecutiveNoShows = 3
	maxPendingBookings    = 2
	cancellationLeadTime  = 24 * time.Hour
	sameDayLeadTime       = 30 * time.Minute
	minWindowMinutes      = 60
)

type Doctor struct {
	ID     int64     `json:"-" dbfield:"id"`
	UserID int64     `json:"-" dbfield:"user_id"`
	UUID   uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name   string    `json:"name" dbfield:"name"`
}

type Patient struct {
	ID                 int64     `json:"-" dbfield:"id"`
	UserID             int64     `json:"-" dbfield:"user_id"`
	UUID               uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name               string    `json:"name" dbfield:"name"`
	ConsecutiveNoShows int32     `json:"-" dbfield:"consecutive_no_shows"`
}

// Assignment relates a doctor, a specialty and an insurance plan, and carries the
// consultation duration for the combination. It is managed by administrators and
// read-only for the scheduling engine.
type Assignment struct {
	DoctorID        int64 `dbfield:"doctor_id"`
	SpecialtyID     int64 `dbfield:"specialty_id"`
	PlanID          int64 `dbfield:"plan_id"`
	DurationMinutes int32 `dbfield:"duration_minutes"`
}

// AvailabilityWindow is a recurring weekly attendance period. Times are local
// clinic clock times in HH:MM.
type AvailabilityWindow struct {
	ID        int64  `json:"-" dbfield:"id"`
	DoctorID  int64  `json:"-" dbfield:"doctor_id"`
	Weekday   int32  `json:"weekday" dbfield:"weekday"`
	StartTime string `json:"start_time" dbfield:"start_time"`
	EndTime   string `json:"end_time" dbfield:"end_time"`
}

// Validate checks the window invariants: a valid weekday, well-formed times and a
// length of at least one hour.
func (w AvailabilityWindow) Validate() error {
	if w.Weekday < 0 || w.Weekday > 6 {
		return apierrors.NewValidationError("weekday", "must be between 0 and 6")
	}
	start, err := parseClock(w.StartTime)
	if err != nil {
		return apierrors.NewValidationError("start_time", "must be a valid HH:MM time")
	}
	end, err := parseClock(w.EndTime)
	if err != nil {
		return apierrors.NewValidationError("end_time", "must be a valid HH:MM time")
	}
	if start >= end {
		return apierrors.NewValidationError("end_time", "must be after start_time")
	}
	if end-start < minWindowMinutes {
		return apierrors.NewValidationError("end_time", "window must be at least 60 minutes long")
	}
	return nil
}

// AgendaEntry is a reserved period on a doctor's calendar: a consultation booked
// by or for a patient, or a self block, in which case PatientID is nil.
type AgendaEntry struct {
	ID        int64     `json:"-" dbfield:"id"`
	UUID      uuid.UUID `json:"uuid" dbfield:"uuid"`
	DoctorID  int64     `json:"-" dbfield:"doctor_id"`
	PatientID *int64    `json:"-" dbfield:"patient_id"`
	StartAt   time.Time `json:"start_at" dbfield:"start_at"`
	EndAt     time.Time `json:"end_at" dbfield:"end_at"`
	Status    Status    `json:"status" dbfield:"status"`
}

// Consultation complements an agenda entry with the insurance plan, the specialty
// and the clinical observation. Listing queries also hydrate the joined fields.
type Consultation struct {
	ID            int64     `json:"-" dbfield:"id"`
	UUID          uuid.UUID `json:"uuid" dbfield:"uuid"`
	AgendaID      int64     `json:"-" dbfield:"agenda_id"`
	SpecialtyID   int64     `json:"-" dbfield:"specialty_id"`
	PlanID        int64     `json:"-" dbfield:"plan_id"`
	Observation   *string   `json:"observation,omitempty" dbfield:"observation"`
	Status        Status    `json:"status" dbfield:"status"`
	StartAt       time.Time `json:"start_at,omitempty" dbfield:"start_at"`
	EndAt         time.Time `json:"end_at,omitempty" dbfield:"end_at"`
	DoctorName    string    `json:"doctor_name,omitempty" dbfield:"doctor_name"`
	SpecialtyName string    `json:"specialty_name,omitempty" dbfield:"specialty_name"`
	PlanName      string    `json:"plan_name,omitempty" dbfield:"plan_name"`
}

type BookingRequest struct {
	DoctorUUID    uuid.UUID `json:"doctor_uuid"`
	SpecialtyUUID uuid.UUID `json:"specialty_uuid"`
	PlanUUID      uuid.UUID `json:"plan_uuid"`
	StartAt       time.Time `json:"start_at"`
	Observation   *string   `json:"observation,omitempty"`
}

// Validate checks if the given request is valid.
func (b BookingRequest) Validate() error {
	if b.DoctorUUID == uuid.Nil {
		return apierrors.NewValidationError("doctor_uuid", "required")
	}
	if b.SpecialtyUUID == uuid.Nil {
		return apierrors.NewValidationError("specialty_uuid", "required")
	}
	if b.PlanUUID == uuid.Nil {
		return apierrors.NewValidationError("plan_uuid", "required")
	}
	if b.StartAt.IsZero() {
		return apierrors.NewValidationError("start_at", "required")
	}
	return nil
}

type ManualConsultationRequest struct {
	PatientUUID   uuid.UUID `json:"patient_uuid"`
	SpecialtyUUID uuid.UUID `json:"specialty_uuid"`
	PlanUUID      uuid.UUID `json:"plan_uuid"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Observation   *string   `json:"observation,omitempty"`
}

// Validate checks if the given request is valid.
func (m ManualConsultationRequest) Validate() error {
	if m.PatientUUID == uuid.Nil {
		return apierrors.NewValidationError("patient_uuid", "required")
	}
	if m.SpecialtyUUID == uuid.Nil {
		return apierrors.NewValidationError("specialty_uuid", "required")
	}
	if m.PlanUUID == uuid.Nil {
		return apierrors.NewValidationError("plan_uuid", "required")
	}
	if m.StartAt.IsZero() {
		return apierrors.NewValidationError("start_at", "required")
	}
	if m.EndAt.IsZero() {
		return apierrors.NewValidationError("end_at", "required")
	}
	if !m.EndAt.After(m.StartAt) {
		return apierrors.NewValidationError("end_at", "invalid period")
	}
	return nil
}

type BlockRequest struct {
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Description *string   `json:"description,omitempty"`
}

// Validate checks if the given request is valid.
func (b BlockRequest) Validate() error {
	if b.StartAt.IsZero() {
		return apierrors.NewValidationError("start_at", "required")
	}
	if b.EndAt.IsZero() {
		return apierrors.NewValidationError("end_at", "required")
	}
	if !b.EndAt.After(b.StartAt) {
		return apierrors.NewValidationError("end_at", "invalid period")
	}
	return nil
}

type RescheduleRequest struct {
	StartAt time.Time `json:"start_at"`
}

// Validate checks if the given request is valid.
func (r RescheduleRequest) Validate() error {
	if r.StartAt.IsZero() {
		return apierrors.NewValidationError("start_at", "required")
	}
	return nil
}

type ResolveRequest struct {
	Status      Status  `json:"status"`
	Observation *string `json:"observation,omitempty"`
}

// Validate checks if the given request is valid.
func (r ResolveRequest) Validate() error {
	switch r.Status {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return nil
	}
	return apierrors.NewValidationError("status", "must be COMPLETED, NO_SHOW or CANCELLED")
}
