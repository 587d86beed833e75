package catalog

import "github.com/google/uuid"

type Specialty struct {
	ID   int64     `json:"-" dbfield:"id"`
	UUID uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name string    `json:"name" dbfield:"name"`
}

type InsurancePlan struct {
	ID   int64     `json:"-" dbfield:"id"`
	UUID uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name string    `json:"name" dbfield:"name"`
}

// DoctorSummary is the public view of a doctor offering a specialty under a plan.
type DoctorSummary struct {
	UUID            uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name            string    `json:"name" dbfield:"name"`
	SpecialtyName   string    `json:"specialty_name" dbfield:"specialty_name"`
	PlanName        string    `json:"plan_name" dbfield:"plan_name"`
	DurationMinutes int32     `json:"duration_minutes" dbfield:"duration_minutes"`
}
