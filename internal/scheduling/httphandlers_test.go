package scheduling

import (
	"bytes"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/mock"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type emptyWriter struct{}

func (e emptyWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

var testLogger = log.New(&emptyWriter{}, "", log.LstdFlags)

type mockAuthorizer struct {
	mockValidateToken        func(ctx context.Context, token string) (*auth.User, error)
	mockRefreshTokens        func(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error)
	mockGetAuthenticatedUser func(ctx context.Context) (auth.User, error)
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*auth.User, error) {
	return m.mockValidateToken(ctx, token)
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error) {
	return m.mockRefreshTokens(ctx, tokens)
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (auth.User, error) {
	return m.mockGetAuthenticatedUser(ctx)
}

func mockPatientUser() *auth.User {
	return &auth.User{
		ID:    1,
		UUID:  uuid.UUID{},
		Email: "patient@clinic.com",
		Role:  auth.PatientRole,
	}
}

func patientAuthorizer() mockAuthorizer {
	return mockAuthorizer{
		mockValidateToken: func(ctx context.Context, token string) (*auth.User, error) {
			return mockPatientUser(), nil
		},
		mockGetAuthenticatedUser: func(ctx context.Context) (auth.User, error) {
			return *mockPatientUser(), nil
		},
	}
}

func availabilityColumns() []string {
	return []string{"id", "doctor_id", "weekday", "start_time", "end_time"}
}

func durationRows(minutes int32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"duration_minutes"}).AddRow(minutes)
}

func TestGetBookableSlotsHandler(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	doctorUUID := uuid.New()
	specialtyUUID := uuid.New()
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		date          string
	}
	tests := []struct {
		name         string
		args         args
		want         int
		wantResponse string
	}{
		{
			name: "should list the free slots of the day",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns()).AddRow(5, doctorUUID, 2, "John Doe")),
					withQueryResult(findConsultationDurationQuery, durationRows(30)),
					withQueryResult(listWeekdayAvailabilityQuery, sqlmock.NewRows(availabilityColumns()).AddRow(1, 5, 1, "08:00", "09:00")),
					withQueryResult(listBusyEntriesQuery, sqlmock.NewRows(entryColumns())),
				},
				date: "2100/03/01",
			},
			want:         http.StatusOK,
			wantResponse: "[\"08:00\",\"08:30\"]\n",
		},
		{
			name: "should hide the slots taken by busy entries",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns()).AddRow(5, doctorUUID, 2, "John Doe")),
					withQueryResult(findConsultationDurationQuery, durationRows(30)),
					withQueryResult(listWeekdayAvailabilityQuery, sqlmock.NewRows(availabilityColumns()).AddRow(1, 5, 1, "08:00", "09:00")),
					withQueryResult(listBusyEntriesQuery, sqlmock.NewRows(entryColumns()).
						AddRow(10, uuid.New(), 5, int64(1), time.Date(2100, 3, 1, 8, 0, 0, 0, time.UTC), time.Date(2100, 3, 1, 8, 30, 0, 0, time.UTC), StatusActive)),
				},
				date: "2100/03/01",
			},
			want:         http.StatusOK,
			wantResponse: "[\"08:30\"]\n",
		},
		{
			name: "should return an empty list for a past date",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				date:   "2000/01/01",
			},
			want:         http.StatusOK,
			wantResponse: "[]\n",
		},
		{
			name: "should not list slots of an unknown doctor",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns())),
				},
				date: "2100/03/01",
			},
			want: http.StatusNotFound,
		},
		{
			name: "should not list slots for a combination the doctor does not attend",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns()).AddRow(5, doctorUUID, 2, "John Doe")),
					withQueryResult(findConsultationDurationQuery, sqlmock.NewRows([]string{"duration_minutes"})),
				},
				date: "2100/03/01",
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "should reject a malformed date",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				date:   "2100/AA/01",
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			Setup(router, testLogger, patientAuthorizer(), config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			tokens := auth.MustGenerateTokens(context.TODO(), config.PrivateKey(), *mockPatientUser())
			req, _ := http.NewRequest("GET", fmt.Sprintf("/api/v1/schedule/%s/%s/%s", doctorUUID, specialtyUUID, tt.args.date), nil)
			req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", tokens.AccessToken))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if tt.wantResponse != "" && recorder.Body.String() != tt.wantResponse {
				t.Errorf("response body is incorrect, got %s, want %s", recorder.Body.String(), tt.wantResponse)
			}
		})
	}
}

func TestBookHandler(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	doctorUUID := uuid.New()
	request := BookingRequest{
		DoctorUUID:    doctorUUID,
		SpecialtyUUID: uuid.New(),
		PlanUUID:      uuid.New(),
		StartAt:       time.Now().Add(48 * time.Hour),
	}
	assignmentRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"doctor_id", "specialty_id", "plan_id", "duration_minutes"}).AddRow(5, 7, 9, 30)
	}
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		body          interface{}
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should book a consultation",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findPatientByUserIDQuery, sqlmock.NewRows(patientColumns()).AddRow(1, uuid.New(), 1, "Jane Roe", 0)),
					withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns()).AddRow(5, doctorUUID, 2, "John Doe")),
					withQueryResult(findAssignmentQuery, assignmentRows()),
					withBegin(),
					withQueryResult(countPendingBookingsQuery, countRows(0)),
					withQueryResult(hasOverlapQuery, countRows(0)),
					withQueryResult(insertEntryQuery, idRows(10)),
					withQueryResult(insertConsultationQuery, idRows(20)),
					withCommit(),
				},
				body: request,
			},
			want: http.StatusCreated,
		},
		{
			name: "should not book over a conflicting period",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findPatientByUserIDQuery, sqlmock.NewRows(patientColumns()).AddRow(1, uuid.New(), 1, "Jane Roe", 0)),
					withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns()).AddRow(5, doctorUUID, 2, "John Doe")),
					withQueryResult(findAssignmentQuery, assignmentRows()),
					withBegin(),
					withQueryResult(countPendingBookingsQuery, countRows(0)),
					withQueryResult(hasOverlapQuery, countRows(1)),
					withRollback(),
				},
				body: request,
			},
			want: http.StatusConflict,
		},
		{
			name: "should not book for a blocked patient",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withQueryResult(findPatientByUserIDQuery, sqlmock.NewRows(patientColumns()).AddRow(1, uuid.New(), 1, "Jane Roe", 3)),
				},
				body: request,
			},
			want: http.StatusForbidden,
		},
		{
			name: "should reject a booking without a doctor",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				body: BookingRequest{
					SpecialtyUUID: request.SpecialtyUUID,
					PlanUUID:      request.PlanUUID,
					StartAt:       request.StartAt,
				},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should reject a malformed body",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				body:   "not a json object",
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			Setup(router, testLogger, patientAuthorizer(), config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			tokens := auth.MustGenerateTokens(context.TODO(), config.PrivateKey(), *mockPatientUser())
			body, _ := json.Marshal(tt.args.body)
			req, _ := http.NewRequest("POST", "/api/v1/consultations", bytes.NewBuffer(body))
			req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", tokens.AccessToken))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}
