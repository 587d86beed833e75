package scheduling

import (
	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/database"
	"clinic-booking/internal/metrics"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func observeBookingOutcome(err error) {
	if err == nil {
		metrics.ObserveBooking("accepted")
		return
	}
	var apiError *apierrors.APIError
	var validationError *apierrors.ValidationError
	if errors.As(err, &apiError) || errors.As(err, &validationError) {
		metrics.ObserveBooking("rejected")
		return
	}
	metrics.ObserveBooking("failed")
}

func (d defaultService) Book(ctx context.Context, request BookingRequest) (consultation *Consultation, err error) {
	defer func() { observeBookingOutcome(err) }()
	if err = request.Validate(); err != nil {
		return nil, err
	}
	patient, err := d.findActingPatient(ctx)
	if err != nil {
		return nil, err
	}
	if patient.ConsecutiveNoShows >= maxConsecutiveNoShows {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrPatientBlocked), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	doctor, err := d.repository.FindDoctorByUUID(ctx, request.DoctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrDoctorNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	assignment, err := d.repository.FindAssignment(ctx, doctor.ID, request.SpecialtyUUID, request.PlanUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if assignment == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrUnsupportedCombination), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	now := d.now()
	if !request.StartAt.After(now) {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrPastDate), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	endAt := request.StartAt.Add(time.Duration(assignment.DurationMinutes) * time.Minute)
	err = database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		pending, err := d.repository.CountPendingBookings(ctx, tx, patient.ID, now)
		if err != nil {
			return err
		}
		if pending >= maxPendingBookings {
			return apierrors.NewAPIError(apierrors.WithDetail(ErrTooManyPending), apierrors.WithHTTPStatusCode(http.StatusConflict))
		}
		consultation, err = d.createConsultation(ctx, tx, doctor.ID, patient.ID, *assignment, request.StartAt, endAt, request.Observation)
		return err
	})
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

// createConsultation runs the conflict test and inserts the agenda entry and the
// consultation. It must run inside the caller's transaction so a concurrent booking
// on the same period cannot slip between the test and the insert.
func (d defaultService) createConsultation(ctx context.Context, tx *sql.Tx, doctorID int64, patientID int64, assignment Assignment, startAt time.Time, endAt time.Time, observation *string) (*Consultation, error) {
	overlaps, err := d.repository.HasOverlap(ctx, tx, doctorID, startAt, endAt, 0)
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrTimeConflict), apierrors.WithHTTPStatusCode(http.StatusConflict))
	}
	entry := AgendaEntry{
		UUID:      uuid.New(),
		DoctorID:  doctorID,
		PatientID: &patientID,
		StartAt:   startAt,
		EndAt:     endAt,
		Status:    StatusActive,
	}
	entryID, err := d.repository.InsertEntry(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	consultation := &Consultation{
		UUID:        uuid.New(),
		AgendaID:    entryID,
		SpecialtyID: assignment.SpecialtyID,
		PlanID:      assignment.PlanID,
		Observation: observation,
		Status:      StatusActive,
		StartAt:     startAt,
		EndAt:       endAt,
	}
	if consultation.ID, err = d.repository.InsertConsultation(ctx, tx, *consultation); err != nil {
		return nil, err
	}
	return consultation, nil
}

func (d defaultService) CancelBooking(ctx context.Context, consultationUUID uuid.UUID) error {
	patient, err := d.findActingPatient(ctx)
	if err != nil {
		return err
	}
	_, entry, err := d.findConsultationWithEntry(ctx, consultationUUID)
	if err != nil {
		return err
	}
	if entry.PatientID == nil || *entry.PatientID != patient.ID {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	if entry.Status != StatusActive {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrAlreadyResolved), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	if d.now().Add(cancellationLeadTime).After(entry.StartAt) {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrInsufficientLeadTime), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	return database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		return d.applyTransition(ctx, tx, entry, StatusCancelled)
	})
}

func (d defaultService) Reschedule(ctx context.Context, consultationUUID uuid.UUID, request RescheduleRequest) (*Consultation, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	patient, err := d.findActingPatient(ctx)
	if err != nil {
		return nil, err
	}
	consultation, entry, err := d.findConsultationWithEntry(ctx, consultationUUID)
	if err != nil {
		return nil, err
	}
	if entry.PatientID == nil || *entry.PatientID != patient.ID {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	if entry.Status != StatusActive {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrAlreadyResolved), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	now := d.now()
	// the lead time rule applies to the slot being released, not the new one
	if now.Add(cancellationLeadTime).After(entry.StartAt) {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrInsufficientLeadTime), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	if !request.StartAt.After(now) {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrPastDate), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	duration := entry.EndAt.Sub(entry.StartAt)
	endAt := request.StartAt.Add(duration)
	err = database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		overlaps, err := d.repository.HasOverlap(ctx, tx, entry.DoctorID, request.StartAt, endAt, entry.ID)
		if err != nil {
			return err
		}
		if overlaps {
			return apierrors.NewAPIError(apierrors.WithDetail(ErrTimeConflict), apierrors.WithHTTPStatusCode(http.StatusConflict))
		}
		return d.repository.UpdateEntryTimes(ctx, tx, entry.ID, request.StartAt, endAt)
	})
	if err != nil {
		return nil, err
	}
	consultation.StartAt = request.StartAt
	consultation.EndAt = endAt
	return consultation, nil
}

func (d defaultService) ListMyConsultations(ctx context.Context) ([]*Consultation, error) {
	patient, err := d.findActingPatient(ctx)
	if err != nil {
		return nil, err
	}
	consultations, err := d.repository.ListConsultationsByPatient(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return consultations, nil
}
