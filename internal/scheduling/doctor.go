package scheduling

import (
	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/database"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func (d defaultService) GetMyAgenda(ctx context.Context, from time.Time, to time.Time) ([]*AgendaEntry, error) {
	if !to.After(from) {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidPeriodReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := d.repository.ListEntriesInRange(ctx, doctor.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return entries, nil
}

func (d defaultService) CreateManualConsultation(ctx context.Context, request ManualConsultationRequest) (*Consultation, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return nil, err
	}
	patient, err := d.repository.FindPatientByUUID(ctx, request.PatientUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if patient == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrPatientNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	if patient.ConsecutiveNoShows >= maxConsecutiveNoShows {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrPatientBlocked), apierrors.WithHTTPStatusCode(http.StatusForbidden))
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
	var consultation *Consultation
	err = database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		pending, err := d.repository.CountPendingBookings(ctx, tx, patient.ID, now)
		if err != nil {
			return err
		}
		if pending >= maxPendingBookings {
			return apierrors.NewAPIError(apierrors.WithDetail(ErrTooManyPending), apierrors.WithHTTPStatusCode(http.StatusConflict))
		}
		consultation, err = d.createConsultation(ctx, tx, doctor.ID, patient.ID, *assignment, request.StartAt, request.EndAt, request.Observation)
		return err
	})
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

func (d defaultService) CreateBlock(ctx context.Context, request BlockRequest) (*AgendaEntry, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return nil, err
	}
	if !request.StartAt.After(d.now()) {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrPastDate), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	entry := &AgendaEntry{
		UUID:     uuid.New(),
		DoctorID: doctor.ID,
		StartAt:  request.StartAt,
		EndAt:    request.EndAt,
		Status:   StatusBlocked,
	}
	err = database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		overlaps, err := d.repository.HasOverlap(ctx, tx, doctor.ID, request.StartAt, request.EndAt, 0)
		if err != nil {
			return err
		}
		if overlaps {
			return apierrors.NewAPIError(apierrors.WithDetail(ErrTimeConflict), apierrors.WithHTTPStatusCode(http.StatusConflict))
		}
		entry.ID, err = d.repository.InsertEntry(ctx, tx, *entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (d defaultService) DeleteBlock(ctx context.Context, entryUUID uuid.UUID) error {
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return err
	}
	entry, err := d.repository.FindEntryByUUID(ctx, entryUUID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if entry == nil {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrEntryNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	if entry.DoctorID != doctor.ID {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	if entry.Status != StatusBlocked {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrOnlyBlocksRemovable), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	// a block already under way stays on the agenda as cancelled instead of vanishing
	if !entry.StartAt.After(d.now()) {
		return database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
			return d.applyTransition(ctx, tx, entry, StatusCancelled)
		})
	}
	return d.repository.DeleteEntry(ctx, entry.ID)
}

func (d defaultService) Resolve(ctx context.Context, consultationUUID uuid.UUID, request ResolveRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return err
	}
	_, entry, err := d.findConsultationWithEntry(ctx, consultationUUID)
	if err != nil {
		return err
	}
	if entry.DoctorID != doctor.ID {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrForbidden), apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	if entry.Status != StatusActive {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrAlreadyResolved), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	// completion and no-show are outcomes, so the consultation must have started
	if request.Status != StatusCancelled && d.now().Before(entry.StartAt) {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrNotStarted), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	return database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		if err := d.applyTransition(ctx, tx, entry, request.Status); err != nil {
			return err
		}
		if request.Observation == nil {
			return nil
		}
		return d.repository.UpdateObservation(ctx, tx, entry.ID, *request.Observation)
	})
}

func (d defaultService) GetAvailability(ctx context.Context) ([]*AvailabilityWindow, error) {
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return nil, err
	}
	windows, err := d.repository.ListAvailability(ctx, doctor.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return windows, nil
}

func (d defaultService) ReplaceAvailability(ctx context.Context, windows []AvailabilityWindow) error {
	doctor, err := d.findActingDoctor(ctx)
	if err != nil {
		return err
	}
	for _, window := range windows {
		if err = window.Validate(); err != nil {
			return err
		}
	}
	if err = checkWindowOverlaps(windows); err != nil {
		return err
	}
	return database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		return d.repository.ReplaceAvailability(ctx, tx, doctor.ID, windows)
	})
}

// checkWindowOverlaps rejects sets where two windows of the same weekday intersect.
func checkWindowOverlaps(windows []AvailabilityWindow) error {
	for i := range windows {
		startI, _ := parseClock(windows[i].StartTime)
		endI, _ := parseClock(windows[i].EndTime)
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Weekday != windows[j].Weekday {
				continue
			}
			startJ, _ := parseClock(windows[j].StartTime)
			endJ, _ := parseClock(windows[j].EndTime)
			if startI < endJ && endI > startJ {
				return apierrors.NewValidationError("windows", "windows of the same weekday must not overlap")
			}
		}
	}
	return nil
}
