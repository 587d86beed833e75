package scheduling

import (
	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/database"
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

func (d defaultService) CancelAsAdmin(ctx context.Context, entryUUID uuid.UUID) error {
	entry, err := d.repository.FindEntryByUUID(ctx, entryUUID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if entry == nil {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrEntryNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	if isTerminal(entry.Status) {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrAlreadyResolved), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	return database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		return d.applyTransition(ctx, tx, entry, StatusCancelled)
	})
}

func (d defaultService) ResetNoShowCount(ctx context.Context, patientUUID uuid.UUID) error {
	patient, err := d.repository.FindPatientByUUID(ctx, patientUUID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if patient == nil {
		return apierrors.NewAPIError(apierrors.WithDetail(ErrPatientNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	return database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		return d.repository.SetConsecutiveNoShows(ctx, tx, patient.ID, 0)
	})
}
