// Package scheduling holds the clinic's appointment engine: slot discovery over
// recurring availability windows, conflict-checked bookings, the agenda entry
// lifecycle and the no-show expiry sweep.
package scheduling

import (
	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SlotReader exposes the bookable slot discovery operations.
type SlotReader interface {

	// GetBookableSlots lists the free start times of the doctor for the given date,
	// formatted as HH:MM, for the consultation duration of the given specialty.
	GetBookableSlots(ctx context.Context, doctorUUID uuid.UUID, specialtyUUID uuid.UUID, date time.Time) ([]string, error)

	// GetBookableDays lists the days of the given month with at least one free slot.
	GetBookableDays(ctx context.Context, doctorUUID uuid.UUID, specialtyUUID uuid.UUID, year int, month time.Month) ([]int, error)
}

// Booker exposes the operations available to the authenticated patient.
type Booker interface {

	// Book creates a consultation for the authenticated patient on the given period.
	Book(ctx context.Context, request BookingRequest) (*Consultation, error)

	// CancelBooking cancels a future consultation of the authenticated patient.
	CancelBooking(ctx context.Context, consultationUUID uuid.UUID) error

	// Reschedule moves a future consultation of the authenticated patient to a new
	// start time, keeping its duration.
	Reschedule(ctx context.Context, consultationUUID uuid.UUID, request RescheduleRequest) (*Consultation, error)

	// ListMyConsultations lists the consultations of the authenticated patient.
	ListMyConsultations(ctx context.Context) ([]*Consultation, error)
}

// AgendaManager exposes the operations available to the authenticated doctor.
type AgendaManager interface {

	// GetMyAgenda lists the agenda entries of the authenticated doctor over a period.
	GetMyAgenda(ctx context.Context, from time.Time, to time.Time) ([]*AgendaEntry, error)

	// CreateManualConsultation registers a consultation on behalf of a patient.
	CreateManualConsultation(ctx context.Context, request ManualConsultationRequest) (*Consultation, error)

	// CreateBlock reserves a period of the doctor's own agenda.
	CreateBlock(ctx context.Context, request BlockRequest) (*AgendaEntry, error)

	// DeleteBlock removes a future self block of the authenticated doctor.
	DeleteBlock(ctx context.Context, entryUUID uuid.UUID) error

	// Resolve closes an active consultation of the authenticated doctor as completed,
	// no-show or cancelled.
	Resolve(ctx context.Context, consultationUUID uuid.UUID, request ResolveRequest) error

	// GetAvailability lists the recurring windows of the authenticated doctor.
	GetAvailability(ctx context.Context) ([]*AvailabilityWindow, error)

	// ReplaceAvailability swaps the authenticated doctor's recurring windows for the
	// given set. Already booked consultations are never touched.
	ReplaceAvailability(ctx context.Context, windows []AvailabilityWindow) error
}

// Administrator exposes the back-office operations.
type Administrator interface {

	// CancelAsAdmin cancels any non-terminal agenda entry, with no lead time rule.
	CancelAsAdmin(ctx context.Context, entryUUID uuid.UUID) error

	// ResetNoShowCount clears a patient's consecutive no-show counter.
	ResetNoShowCount(ctx context.Context, patientUUID uuid.UUID) error
}

// Expirer marks overdue entries as no-shows.
type Expirer interface {

	// ExpireOverdueEntries transitions every active entry whose end time has passed
	// to NO_SHOW and returns how many entries were swept.
	ExpireOverdueEntries(ctx context.Context) (int, error)
}

// Service provides the scheduling operations over the clinic's agenda.
type Service interface {
	SlotReader
	Booker
	AgendaManager
	Administrator
	Expirer
}

type defaultService struct {
	repository Repository
	config     configs.Config
	dbConn     database.Connection
	now        func() time.Time
}

// NewService creates a new scheduling Service.
func NewService(config configs.Config, dbConn database.Connection) Service {
	return &defaultService{
		repository: newRepository(dbConn),
		config:     config,
		dbConn:     dbConn,
		now:        time.Now,
	}
}

// findActingPatient resolves the patient record behind the authenticated user.
func (d defaultService) findActingPatient(ctx context.Context) (*Patient, error) {
	user, ok := ctx.Value(auth.UserContextKey).(auth.User)
	if !ok {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	patient, err := d.repository.FindPatientByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if patient == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	return patient, nil
}

// findActingDoctor resolves the doctor record behind the authenticated user.
func (d defaultService) findActingDoctor(ctx context.Context) (*Doctor, error) {
	user, ok := ctx.Value(auth.UserContextKey).(auth.User)
	if !ok {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	return doctor, nil
}

// findConsultationWithEntry loads a consultation and its agenda entry by the
// consultation UUID.
func (d defaultService) findConsultationWithEntry(ctx context.Context, consultationUUID uuid.UUID) (*Consultation, *AgendaEntry, error) {
	consultation, err := d.repository.FindConsultationByUUID(ctx, consultationUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if consultation == nil {
		return nil, nil, apierrors.NewAPIError(apierrors.WithDetail(ErrConsultationNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	entry, err := d.repository.FindEntryByID(ctx, consultation.AgendaID)
	if err != nil {
		return nil, nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if entry == nil {
		return nil, nil, apierrors.NewAPIError(apierrors.WithDetail(ErrEntryNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	return consultation, entry, nil
}

// applyTransition is the only path that changes an entry's status. It writes the
// status to the agenda entry and its consultation, and adjusts the patient's
// consecutive no-show counter: NO_SHOW increments it, COMPLETED clears it. Self
// blocks carry no patient and skip the counter.
func (d defaultService) applyTransition(ctx context.Context, tx *sql.Tx, entry *AgendaEntry, to Status) error {
	if err := d.repository.UpdateStatus(ctx, tx, entry.ID, to); err != nil {
		return err
	}
	if entry.PatientID == nil {
		return nil
	}
	switch to {
	case StatusNoShow:
		return d.repository.IncrementConsecutiveNoShows(ctx, tx, *entry.PatientID)
	case StatusCompleted:
		return d.repository.SetConsecutiveNoShows(ctx, tx, *entry.PatientID, 0)
	}
	return nil
}

// isTerminal tells whether the status ends the entry's lifecycle.
func isTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
