package catalog

import (
	"clinic-booking/internal/database"
	"context"
)

const (
	listSpecialtiesQuery = "SELECT id, uuid, name FROM tb_specialty ORDER BY name"
	listPlansQuery       = "SELECT id, uuid, name FROM tb_insurance_plan ORDER BY name"
	listDoctorsQuery     = "SELECT d.uuid, d.name, s.name AS specialty_name, p.name AS plan_name, a.duration_minutes FROM tb_doctor_specialty_plan a INNER JOIN tb_doctor d ON d.id = a.doctor_id INNER JOIN tb_specialty s ON s.id = a.specialty_id INNER JOIN tb_insurance_plan p ON p.id = a.plan_id ORDER BY d.name, s.name"
)

// Repository provides read access to the clinic's catalog.
type Repository interface {

	// ListSpecialties lists every specialty.
	ListSpecialties(ctx context.Context) ([]*Specialty, error)

	// ListInsurancePlans lists every accepted insurance plan.
	ListInsurancePlans(ctx context.Context) ([]*InsurancePlan, error)

	// ListDoctors lists every doctor with the specialties and plans it attends.
	ListDoctors(ctx context.Context) ([]*DoctorSummary, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listSpecialtiesQuery)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	specialties := make([]*Specialty, 0)
	for rows.Next() {
		specialty := new(Specialty)
		if err = database.TransformRow(rows, specialty); err != nil {
			return nil, err
		}
		specialties = append(specialties, specialty)
	}
	return specialties, nil
}

func (d defaultRepository) ListInsurancePlans(ctx context.Context) ([]*InsurancePlan, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listPlansQuery)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	plans := make([]*InsurancePlan, 0)
	for rows.Next() {
		plan := new(InsurancePlan)
		if err = database.TransformRow(rows, plan); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (d defaultRepository) ListDoctors(ctx context.Context) ([]*DoctorSummary, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listDoctorsQuery)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	doctors := make([]*DoctorSummary, 0)
	for rows.Next() {
		doctor := new(DoctorSummary)
		if err = database.TransformRow(rows, doctor); err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	return doctors, nil
}
