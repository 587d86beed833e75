package scheduling

import (
	"clinic-booking/internal/database"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	findDoctorByUUIDQuery    = "SELECT id, uuid, user_id, name FROM tb_doctor WHERE uuid = $1"
	findDoctorByUserIDQuery  = "SELECT id, uuid, user_id, name FROM tb_doctor WHERE user_id = $1"
	findPatientByUUIDQuery   = "SELECT id, uuid, user_id, name, consecutive_no_shows FROM tb_patient WHERE uuid = $1"
	findPatientByUserIDQuery = "SELECT id, uuid, user_id, name, consecutive_no_shows FROM tb_patient WHERE user_id = $1"

	findAssignmentQuery           = "SELECT a.doctor_id, a.specialty_id, a.plan_id, a.duration_minutes FROM tb_doctor_specialty_plan a INNER JOIN tb_specialty s ON s.id = a.specialty_id INNER JOIN tb_insurance_plan p ON p.id = a.plan_id WHERE a.doctor_id = $1 AND s.uuid = $2 AND p.uuid = $3"
	findConsultationDurationQuery = "SELECT a.duration_minutes FROM tb_doctor_specialty_plan a INNER JOIN tb_specialty s ON s.id = a.specialty_id WHERE a.doctor_id = $1 AND s.uuid = $2 ORDER BY a.duration_minutes LIMIT 1"

	listAvailabilityQuery        = "SELECT id, doctor_id, weekday, start_time, end_time FROM tb_availability WHERE doctor_id = $1 ORDER BY weekday, start_time"
	listWeekdayAvailabilityQuery = "SELECT id, doctor_id, weekday, start_time, end_time FROM tb_availability WHERE doctor_id = $1 AND weekday = $2 ORDER BY start_time"
	deleteAvailabilityQuery      = "DELETE FROM tb_availability WHERE doctor_id = $1"
	insertAvailabilityQuery      = "INSERT INTO tb_availability (doctor_id, weekday, start_time, end_time) VALUES ($1, $2, $3, $4)"

	listBusyEntriesQuery    = "SELECT id, uuid, doctor_id, patient_id, start_at, end_at, status FROM tb_agenda WHERE doctor_id = $1 AND status IN ('ACTIVE', 'BLOCKED') AND start_at < $3 AND end_at > $2 ORDER BY start_at"
	listEntriesInRangeQuery = "SELECT id, uuid, doctor_id, patient_id, start_at, end_at, status FROM tb_agenda WHERE doctor_id = $1 AND start_at < $3 AND end_at > $2 ORDER BY start_at"
	findEntryByIDQuery      = "SELECT id, uuid, doctor_id, patient_id, start_at, end_at, status FROM tb_agenda WHERE id = $1"
	findEntryByUUIDQuery    = "SELECT id, uuid, doctor_id, patient_id, start_at, end_at, status FROM tb_agenda WHERE uuid = $1"
	listExpiredActiveQuery  = "SELECT id, uuid, doctor_id, patient_id, start_at, end_at, status FROM tb_agenda WHERE status = 'ACTIVE' AND end_at < $1 FOR UPDATE"

	hasOverlapQuery           = "SELECT count(id) FROM tb_agenda WHERE doctor_id = $1 AND status IN ('ACTIVE', 'BLOCKED') AND start_at < $3 AND end_at > $2 AND id <> $4"
	countPendingBookingsQuery = "SELECT count(id) FROM tb_agenda WHERE patient_id = $1 AND status = 'ACTIVE' AND start_at > $2"

	insertEntryQuery        = "INSERT INTO tb_agenda (uuid, doctor_id, patient_id, start_at, end_at, status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id"
	insertConsultationQuery = "INSERT INTO tb_consultation (uuid, agenda_id, specialty_id, plan_id, observation, status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id"
	updateEntryTimesQuery   = "UPDATE tb_agenda SET start_at = $2, end_at = $3 WHERE id = $1"
	deleteEntryQuery        = "DELETE FROM tb_agenda WHERE id = $1"

	updateEntryStatusQuery             = "UPDATE tb_agenda SET status = $2 WHERE id = $1"
	updateConsultationStatusQuery      = "UPDATE tb_consultation SET status = $2 WHERE agenda_id = $1"
	updateConsultationObservationQuery = "UPDATE tb_consultation SET observation = $2 WHERE agenda_id = $1"

	setNoShowCountQuery       = "UPDATE tb_patient SET consecutive_no_shows = $2 WHERE id = $1"
	incrementNoShowCountQuery = "UPDATE tb_patient SET consecutive_no_shows = consecutive_no_shows + 1 WHERE id = $1"

	findConsultationByUUIDQuery     = "SELECT id, uuid, agenda_id, specialty_id, plan_id, observation, status FROM tb_consultation WHERE uuid = $1"
	listConsultationsByPatientQuery = "SELECT c.id, c.uuid, c.agenda_id, c.specialty_id, c.plan_id, c.observation, c.status, g.start_at, g.end_at, d.name AS doctor_name, s.name AS specialty_name, p.name AS plan_name FROM tb_consultation c INNER JOIN tb_agenda g ON g.id = c.agenda_id INNER JOIN tb_doctor d ON d.id = g.doctor_id INNER JOIN tb_specialty s ON s.id = c.specialty_id INNER JOIN tb_insurance_plan p ON p.id = c.plan_id WHERE g.patient_id = $1 ORDER BY g.start_at DESC"
)

// Repository provides access to scheduling data. Methods that take part in an
// invariant-bearing operation receive the transaction they must run in.
type Repository interface {

	// FindDoctorByUUID finds a doctor by its UUID.
	FindDoctorByUUID(ctx context.Context, uuid uuid.UUID) (*Doctor, error)

	// FindDoctorByUserID finds a doctor by its user ID.
	FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error)

	// FindPatientByUUID finds a patient by its UUID.
	FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error)

	// FindPatientByUserID finds a patient by its user ID.
	FindPatientByUserID(ctx context.Context, userID int64) (*Patient, error)

	// FindAssignment finds the doctor/specialty/plan assignment, if the doctor offers
	// the combination.
	FindAssignment(ctx context.Context, doctorID int64, specialtyUUID uuid.UUID, planUUID uuid.UUID) (*Assignment, error)

	// FindConsultationDuration resolves the consultation duration in minutes for the
	// doctor and specialty, returning zero when the doctor does not attend it.
	FindConsultationDuration(ctx context.Context, doctorID int64, specialtyUUID uuid.UUID) (int32, error)

	// ListAvailability lists the doctor's recurring availability windows.
	ListAvailability(ctx context.Context, doctorID int64) ([]*AvailabilityWindow, error)

	// ListWeekdayAvailability lists the doctor's windows for a single weekday.
	ListWeekdayAvailability(ctx context.Context, doctorID int64, weekday int32) ([]*AvailabilityWindow, error)

	// ReplaceAvailability removes every window of the doctor and inserts the given
	// ones, within the given transaction.
	ReplaceAvailability(ctx context.Context, tx *sql.Tx, doctorID int64, windows []AvailabilityWindow) error

	// ListBusyEntries lists the doctor's active and blocked entries intersecting the
	// given period.
	ListBusyEntries(ctx context.Context, doctorID int64, from time.Time, to time.Time) ([]*AgendaEntry, error)

	// ListEntriesInRange lists every entry of the doctor intersecting the given period.
	ListEntriesInRange(ctx context.Context, doctorID int64, from time.Time, to time.Time) ([]*AgendaEntry, error)

	// FindEntryByID finds an agenda entry by its ID.
	FindEntryByID(ctx context.Context, id int64) (*AgendaEntry, error)

	// FindEntryByUUID finds an agenda entry by its UUID.
	FindEntryByUUID(ctx context.Context, uuid uuid.UUID) (*AgendaEntry, error)

	// ListExpiredActive locks and lists the entries still active whose end time has
	// passed, within the given transaction.
	ListExpiredActive(ctx context.Context, tx *sql.Tx, reference time.Time) ([]*AgendaEntry, error)

	// HasOverlap checks whether the period intersects an active or blocked entry of
	// the doctor, ignoring the entry with excludeEntryID when it is not zero.
	HasOverlap(ctx context.Context, tx *sql.Tx, doctorID int64, startAt time.Time, endAt time.Time, excludeEntryID int64) (bool, error)

	// CountPendingBookings counts the patient's active entries starting after the
	// reference time.
	CountPendingBookings(ctx context.Context, tx *sql.Tx, patientID int64, reference time.Time) (int64, error)

	// InsertEntry inserts a new agenda entry and returns its generated ID.
	InsertEntry(ctx context.Context, tx *sql.Tx, entry AgendaEntry) (int64, error)

	// InsertConsultation inserts a new consultation and returns its generated ID.
	InsertConsultation(ctx context.Context, tx *sql.Tx, consultation Consultation) (int64, error)

	// UpdateEntryTimes moves an agenda entry to a new period.
	UpdateEntryTimes(ctx context.Context, tx *sql.Tx, entryID int64, startAt time.Time, endAt time.Time) error

	// UpdateStatus writes the same status to the agenda entry and to its consultation,
	// if one exists.
	UpdateStatus(ctx context.Context, tx *sql.Tx, entryID int64, status Status) error

	// UpdateObservation updates the observation of the consultation tied to the entry.
	UpdateObservation(ctx context.Context, tx *sql.Tx, entryID int64, observation string) error

	// SetConsecutiveNoShows sets the patient's consecutive no-show counter.
	SetConsecutiveNoShows(ctx context.Context, tx *sql.Tx, patientID int64, value int32) error

	// IncrementConsecutiveNoShows increments the patient's consecutive no-show counter.
	IncrementConsecutiveNoShows(ctx context.Context, tx *sql.Tx, patientID int64) error

	// DeleteEntry hard deletes an agenda entry.
	DeleteEntry(ctx context.Context, entryID int64) error

	// FindConsultationByUUID finds a consultation by its UUID.
	FindConsultationByUUID(ctx context.Context, uuid uuid.UUID) (*Consultation, error)

	// ListConsultationsByPatient lists the patient's consultations, most recent first.
	ListConsultationsByPatient(ctx context.Context, patientID int64) ([]*Consultation, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// newRepository creates a new Repository.
func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) findDoctor(ctx context.Context, query string, param interface{}) (*Doctor, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, param)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	doctor := new(Doctor)
	for rows.Next() {
		if err = database.TransformRow(rows, doctor); err != nil {
			return nil, err
		}
		if doctor.ID > 0 {
			return doctor, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindDoctorByUUID(ctx context.Context, uuid uuid.UUID) (*Doctor, error) {
	return d.findDoctor(ctx, findDoctorByUUIDQuery, uuid)
}

func (d defaultRepository) FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	return d.findDoctor(ctx, findDoctorByUserIDQuery, userID)
}

func (d defaultRepository) findPatient(ctx context.Context, query string, param interface{}) (*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, param)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	patient := new(Patient)
	for rows.Next() {
		if err = database.TransformRow(rows, patient); err != nil {
			return nil, err
		}
		if patient.ID > 0 {
			return patient, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error) {
	return d.findPatient(ctx, findPatientByUUIDQuery, uuid)
}

func (d defaultRepository) FindPatientByUserID(ctx context.Context, userID int64) (*Patient, error) {
	return d.findPatient(ctx, findPatientByUserIDQuery, userID)
}

func (d defaultRepository) FindAssignment(ctx context.Context, doctorID int64, specialtyUUID uuid.UUID, planUUID uuid.UUID) (*Assignment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findAssignmentQuery, doctorID, specialtyUUID, planUUID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	assignment := new(Assignment)
	for rows.Next() {
		if err = database.TransformRow(rows, assignment); err != nil {
			return nil, err
		}
		if assignment.DoctorID > 0 {
			return assignment, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindConsultationDuration(ctx context.Context, doctorID int64, specialtyUUID uuid.UUID) (int32, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	row := d.dbConn.DB().QueryRowContext(ctx, findConsultationDurationQuery, doctorID, specialtyUUID)
	var duration int32
	if err := row.Scan(&duration); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return duration, nil
}

func (d defaultRepository) listAvailability(ctx context.Context, query string, params ...interface{}) ([]*AvailabilityWindow, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	windows := make([]*AvailabilityWindow, 0)
	for rows.Next() {
		window := new(AvailabilityWindow)
		if err = database.TransformRow(rows, window); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	return windows, nil
}

func (d defaultRepository) ListAvailability(ctx context.Context, doctorID int64) ([]*AvailabilityWindow, error) {
	return d.listAvailability(ctx, listAvailabilityQuery, doctorID)
}

func (d defaultRepository) ListWeekdayAvailability(ctx context.Context, doctorID int64, weekday int32) ([]*AvailabilityWindow, error) {
	return d.listAvailability(ctx, listWeekdayAvailabilityQuery, doctorID, weekday)
}

func (d defaultRepository) ReplaceAvailability(ctx context.Context, tx *sql.Tx, doctorID int64, windows []AvailabilityWindow) error {
	if _, err := tx.ExecContext(ctx, deleteAvailabilityQuery, doctorID); err != nil {
		return err
	}
	for _, window := range windows {
		if _, err := tx.ExecContext(ctx, insertAvailabilityQuery, doctorID, window.Weekday, window.StartTime, window.EndTime); err != nil {
			return err
		}
	}
	return nil
}

func (d defaultRepository) listEntries(rows *sql.Rows) ([]*AgendaEntry, error) {
	entries := make([]*AgendaEntry, 0)
	for rows.Next() {
		entry := new(AgendaEntry)
		if err := database.TransformRow(rows, entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (d defaultRepository) ListBusyEntries(ctx context.Context, doctorID int64, from time.Time, to time.Time) ([]*AgendaEntry, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listBusyEntriesQuery, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	return d.listEntries(rows)
}

func (d defaultRepository) ListEntriesInRange(ctx context.Context, doctorID int64, from time.Time, to time.Time) ([]*AgendaEntry, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listEntriesInRangeQuery, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	return d.listEntries(rows)
}

func (d defaultRepository) findEntry(ctx context.Context, query string, param interface{}) (*AgendaEntry, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, param)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	entry := new(AgendaEntry)
	for rows.Next() {
		if err = database.TransformRow(rows, entry); err != nil {
			return nil, err
		}
		if entry.ID > 0 {
			return entry, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindEntryByID(ctx context.Context, id int64) (*AgendaEntry, error) {
	return d.findEntry(ctx, findEntryByIDQuery, id)
}

func (d defaultRepository) FindEntryByUUID(ctx context.Context, uuid uuid.UUID) (*AgendaEntry, error) {
	return d.findEntry(ctx, findEntryByUUIDQuery, uuid)
}

func (d defaultRepository) ListExpiredActive(ctx context.Context, tx *sql.Tx, reference time.Time) ([]*AgendaEntry, error) {
	rows, err := tx.QueryContext(ctx, listExpiredActiveQuery, reference)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	return d.listEntries(rows)
}

func (d defaultRepository) HasOverlap(ctx context.Context, tx *sql.Tx, doctorID int64, startAt time.Time, endAt time.Time, excludeEntryID int64) (bool, error) {
	row := tx.QueryRowContext(ctx, hasOverlapQuery, doctorID, startAt, endAt, excludeEntryID)
	var count int64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d defaultRepository) CountPendingBookings(ctx context.Context, tx *sql.Tx, patientID int64, reference time.Time) (int64, error) {
	row := tx.QueryRowContext(ctx, countPendingBookingsQuery, patientID, reference)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (d defaultRepository) InsertEntry(ctx context.Context, tx *sql.Tx, entry AgendaEntry) (int64, error) {
	row := tx.QueryRowContext(ctx, insertEntryQuery, entry.UUID, entry.DoctorID, entry.PatientID, entry.StartAt, entry.EndAt, entry.Status)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d defaultRepository) InsertConsultation(ctx context.Context, tx *sql.Tx, consultation Consultation) (int64, error) {
	row := tx.QueryRowContext(ctx, insertConsultationQuery, consultation.UUID, consultation.AgendaID, consultation.SpecialtyID, consultation.PlanID, consultation.Observation, consultation.Status)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d defaultRepository) UpdateEntryTimes(ctx context.Context, tx *sql.Tx, entryID int64, startAt time.Time, endAt time.Time) error {
	result, err := tx.ExecContext(ctx, updateEntryTimesQuery, entryID, startAt, endAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("entry not updated")
	}
	return nil
}

func (d defaultRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, entryID int64, status Status) error {
	result, err := tx.ExecContext(ctx, updateEntryStatusQuery, entryID, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("entry not updated")
	}
	// self blocks have no consultation, so zero affected rows is fine here
	if _, err = tx.ExecContext(ctx, updateConsultationStatusQuery, entryID, status); err != nil {
		return err
	}
	return nil
}

func (d defaultRepository) UpdateObservation(ctx context.Context, tx *sql.Tx, entryID int64, observation string) error {
	_, err := tx.ExecContext(ctx, updateConsultationObservationQuery, entryID, observation)
	return err
}

func (d defaultRepository) SetConsecutiveNoShows(ctx context.Context, tx *sql.Tx, patientID int64, value int32) error {
	_, err := tx.ExecContext(ctx, setNoShowCountQuery, patientID, value)
	return err
}

func (d defaultRepository) IncrementConsecutiveNoShows(ctx context.Context, tx *sql.Tx, patientID int64) error {
	_, err := tx.ExecContext(ctx, incrementNoShowCountQuery, patientID)
	return err
}

func (d defaultRepository) DeleteEntry(ctx context.Context, entryID int64) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, deleteEntryQuery, entryID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("entry not deleted")
	}
	return nil
}

func (d defaultRepository) FindConsultationByUUID(ctx context.Context, uuid uuid.UUID) (*Consultation, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findConsultationByUUIDQuery, uuid)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	consultation := new(Consultation)
	for rows.Next() {
		if err = database.TransformRow(rows, consultation); err != nil {
			return nil, err
		}
		if consultation.ID > 0 {
			return consultation, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) ListConsultationsByPatient(ctx context.Context, patientID int64) ([]*Consultation, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listConsultationsByPatientQuery, patientID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	consultations := make([]*Consultation, 0)
	for rows.Next() {
		consultation := new(Consultation)
		if err = database.TransformRow(rows, consultation); err != nil {
			return nil, err
		}
		consultations = append(consultations, consultation)
	}
	return consultations, nil
}
