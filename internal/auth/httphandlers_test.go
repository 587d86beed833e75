package auth

import (
	"bytes"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/mock"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	hashedTestPassword = "$2a$10$1Q/8dWTn4AsoKm0SIVl8LeBf8x0jNPf7Wj92Ywmk07XI.9s95b/eK"
	plainTestPassword  = "test"
)

var logger = log.New(os.Stdout, "", log.LstdFlags)

type mockAuthorizer struct {
	mockValidateToken        func(ctx context.Context, token string) (*User, error)
	mockRefreshTokens        func(ctx context.Context, tokens Tokens) (*Tokens, error)
	mockGetAuthenticatedUser func(ctx context.Context) (User, error)
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*User, error) {
	return m.mockValidateToken(ctx, token)
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error) {
	return m.mockRefreshTokens(ctx, tokens)
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (User, error) {
	return m.mockGetAuthenticatedUser(ctx)
}

func withFindUserByEmailResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByEmailQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindUserByEmailError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByEmailQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func withCheckUserPasswordResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(checkUserPasswordQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindUserByUUIDResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByUUIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func userColumns() []string {
	return []string{"id", "uuid", "email", "role"}
}

func TestAuthenticate(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	type args struct {
		config        configs.Config
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		credentials   Credentials
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should authenticate the user",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(sqlmock.NewRows(userColumns()).AddRow(1, uuid.New(), "patient@clinic.com", PatientRole)),
					withCheckUserPasswordResult(sqlmock.NewRows([]string{"id", "password"}).AddRow(1, hashedTestPassword)),
				},
				credentials: Credentials{
					Email:    "patient@clinic.com",
					Password: plainTestPassword,
				},
			},
			want: http.StatusOK,
		},
		{
			name: "should not authenticate an unknown user",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(sqlmock.NewRows(userColumns())),
				},
				credentials: Credentials{
					Email:    "patient@clinic.com",
					Password: plainTestPassword,
				},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not authenticate the user with a wrong password",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(sqlmock.NewRows(userColumns()).AddRow(1, uuid.New(), "patient@clinic.com", PatientRole)),
					withCheckUserPasswordResult(sqlmock.NewRows([]string{"id", "password"}).AddRow(1, "not-the-hash")),
				},
				credentials: Credentials{
					Email:    "patient@clinic.com",
					Password: plainTestPassword,
				},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not authenticate the user due to a database error while searching for the user",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailError(),
				},
				credentials: Credentials{
					Email:    "patient@clinic.com",
					Password: plainTestPassword,
				},
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should not authenticate the user because the email was empty",
			args: args{
				config:      config,
				dbConn:      mock.MustCreateConnectionMock(),
				credentials: Credentials{Password: plainTestPassword},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not authenticate the user because the password was empty",
			args: args{
				config:      config,
				dbConn:      mock.MustCreateConnectionMock(),
				credentials: Credentials{Email: "patient@clinic.com"},
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, tt.args.config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			body, _ := json.Marshal(tt.args.credentials)
			req, _ := http.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestGetAuthenticatedUser(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	type args struct {
		config        configs.Config
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		tokens        *Tokens
	}
	tests := []struct {
		name         string
		args         args
		want         int
		wantResponse string
	}{
		{
			name: "should get the authenticated user",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDResult(sqlmock.NewRows(userColumns()).AddRow(1, uuid.UUID{}, "patient@clinic.com", PatientRole)),
				},
				tokens: MustGenerateTokens(context.TODO(), config.PrivateKey(), User{
					ID:    1,
					UUID:  uuid.UUID{},
					Email: "patient@clinic.com",
					Role:  PatientRole,
				}),
			},
			want:         http.StatusOK,
			wantResponse: "{\"uuid\":\"00000000-0000-0000-0000-000000000000\",\"email\":\"patient@clinic.com\",\"role\":\"PATIENT\"}\n",
		},
		{
			name: "should not get the authenticated user because the user was not found",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDResult(sqlmock.NewRows(userColumns())),
				},
				tokens: MustGenerateTokens(context.TODO(), config.PrivateKey(), User{
					ID:    1,
					UUID:  uuid.UUID{},
					Email: "patient@clinic.com",
					Role:  PatientRole,
				}),
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not get the authenticated user without a token",
			args: args{
				config: config,
				dbConn: mock.MustCreateConnectionMock(),
			},
			want: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, tt.args.config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			req, _ := http.NewRequest("GET", "/api/v1/auth/me", nil)
			if tt.args.tokens != nil {
				req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", tt.args.tokens.AccessToken))
			}

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
