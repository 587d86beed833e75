// Package catalog exposes the read-only reference data a patient browses before
// booking: specialties, insurance plans and the doctors attending them.
package catalog

import (
	"clinic-booking/internal/database"
	"context"
	"fmt"
)

// Service provides the catalog listings.
type Service interface {

	// ListSpecialties lists every specialty of the clinic.
	ListSpecialties(ctx context.Context) ([]*Specialty, error)

	// ListInsurancePlans lists every insurance plan the clinic accepts.
	ListInsurancePlans(ctx context.Context) ([]*InsurancePlan, error)

	// ListDoctors lists the doctors with the specialty and plan combinations they
	// attend and the consultation duration of each.
	ListDoctors(ctx context.Context) ([]*DoctorSummary, error)
}

type defaultService struct {
	repository Repository
}

// NewService creates a new catalog Service.
func NewService(dbConn database.Connection) Service {
	return &defaultService{repository: newRepository(dbConn)}
}

func (d defaultService) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	specialties, err := d.repository.ListSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return specialties, nil
}

func (d defaultService) ListInsurancePlans(ctx context.Context) ([]*InsurancePlan, error) {
	plans, err := d.repository.ListInsurancePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return plans, nil
}

func (d defaultService) ListDoctors(ctx context.Context) ([]*DoctorSummary, error) {
	doctors, err := d.repository.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return doctors, nil
}
