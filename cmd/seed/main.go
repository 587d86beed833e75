package main

import (
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

var (
	configPath = flag.String("config", "", "Config file path")
	doctors    = flag.Int("doctors", 10, "How many doctors to seed")
	patients   = flag.Int("patients", 50, "How many patients to seed")
	password   = flag.String("password", "secret", "Password given to every seeded user")
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
}

var plans = []string{
	"Basic",
	"Standard",
	"Premium",
}

func main() {
	flag.Parse()
	log.Println("seed starting")
	if *configPath == "" {
		log.Fatal("no config file path was given")
	}
	config, err := configs.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	dbConn, err := database.NewConnection(config)
	if err != nil {
		log.Fatal(err)
	}
	defer dbConn.Close()

	passHash, err := auth.EncryptPassword(*password)
	if err != nil {
		log.Fatal(err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err = database.RunInTransaction(ctx, dbConn, func(tx *sql.Tx) error {
		specialtyIDs, err := seedNames(ctx, tx, "tb_specialty", specialties)
		if err != nil {
			return err
		}
		planIDs, err := seedNames(ctx, tx, "tb_insurance_plan", plans)
		if err != nil {
			return err
		}
		if err = seedDoctors(ctx, tx, passHash, *doctors, specialtyIDs, planIDs); err != nil {
			return err
		}
		return seedPatients(ctx, tx, passHash, *patients)
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Println("seed complete")
}

func seedNames(ctx context.Context, tx *sql.Tx, table string, names []string) ([]int64, error) {
	log.Printf("seeding %d rows into %s", len(names), table)
	ids := make([]int64, 0, len(names))
	query := fmt.Sprintf("INSERT INTO %s (uuid, name) VALUES ($1, $2) RETURNING id", table)
	for _, name := range names {
		var id int64
		if err := tx.QueryRowContext(ctx, query, uuid.New(), name).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedUser(ctx context.Context, tx *sql.Tx, passHash string, role auth.Role) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		"INSERT INTO tb_user (uuid, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id",
		uuid.New(), gofakeit.Email(), passHash, role).Scan(&id)
	return id, err
}

func seedDoctors(ctx context.Context, tx *sql.Tx, passHash string, count int, specialtyIDs []int64, planIDs []int64) error {
	log.Printf("seeding %d doctors", count)
	for i := 0; i < count; i++ {
		userID, err := seedUser(ctx, tx, passHash, auth.DoctorRole)
		if err != nil {
			return err
		}
		var doctorID int64
		err = tx.QueryRowContext(ctx,
			"INSERT INTO tb_doctor (uuid, user_id, name) VALUES ($1, $2, $3) RETURNING id",
			uuid.New(), userID, gofakeit.Name()).Scan(&doctorID)
		if err != nil {
			return err
		}
		specialtyID := specialtyIDs[gofakeit.Number(0, len(specialtyIDs)-1)]
		for _, planID := range planIDs {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO tb_doctor_specialty_plan (doctor_id, specialty_id, plan_id, duration_minutes) VALUES ($1, $2, $3, $4)",
				doctorID, specialtyID, planID, gofakeit.Number(1, 4)*15)
			if err != nil {
				return err
			}
		}
		// weekday attendance, Monday to Friday
		for weekday := 1; weekday <= 5; weekday++ {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO tb_availability (doctor_id, weekday, start_time, end_time) VALUES ($1, $2, $3, $4)",
				doctorID, weekday, "08:00", "17:00")
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedPatients(ctx context.Context, tx *sql.Tx, passHash string, count int) error {
	log.Printf("seeding %d patients", count)
	for i := 0; i < count; i++ {
		userID, err := seedUser(ctx, tx, passHash, auth.PatientRole)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO tb_patient (uuid, user_id, name, consecutive_no_shows) VALUES ($1, $2, $3, 0)",
			uuid.New(), userID, gofakeit.Name())
		if err != nil {
			return err
		}
	}
	return nil
}
