package scheduling

import (
	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/logging"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/google/uuid"

	"github.com/go-chi/chi/v5"
)

type httpHandler struct {
	authorizer auth.Authorizer
	service    Service
	logger     *log.Logger
}

// Setup setups the routes handled by the scheduling context and returns the service,
// so the caller can also hand it to the expiry sweeper.
func Setup(router *chi.Mux, logger *log.Logger, authorizer auth.Authorizer, config configs.Config, dbConn database.Connection) Service {
	handler := &httpHandler{logger: logger, authorizer: authorizer, service: NewService(config, dbConn)}

	// protected routes, only for patients
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.PatientRole))
		group.Get("/api/v1/schedule/{doctorUUID}/{specialtyUUID}/{year}/{month}", handler.GetBookableDays)
		group.Get("/api/v1/schedule/{doctorUUID}/{specialtyUUID}/{year}/{month}/{day}", handler.GetBookableSlots)
		group.Get("/api/v1/consultations", handler.ListMyConsultations)
		group.Post("/api/v1/consultations", handler.Book)
		group.Delete("/api/v1/consultations/{consultationUUID}", handler.CancelBooking)
		group.Put("/api/v1/consultations/{consultationUUID}/schedule", handler.Reschedule)
	})

	// protected routes, only for doctors
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.DoctorRole))
		group.Get("/api/v1/agenda", handler.GetMyAgenda)
		group.Post("/api/v1/agenda/consultations", handler.CreateManualConsultation)
		group.Put("/api/v1/agenda/consultations/{consultationUUID}/resolution", handler.Resolve)
		group.Post("/api/v1/agenda/blockers", handler.CreateBlock)
		group.Delete("/api/v1/agenda/blockers/{entryUUID}", handler.DeleteBlock)
		group.Get("/api/v1/agenda/availability", handler.GetAvailability)
		group.Put("/api/v1/agenda/availability", handler.ReplaceAvailability)
	})

	// protected routes, only for administrators
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.AdminRole))
		group.Delete("/api/v1/admin/agenda/{entryUUID}", handler.CancelAsAdmin)
		group.Delete("/api/v1/admin/patients/{patientUUID}/no-shows", handler.ResetNoShowCount)
	})

	return handler.service
}

// writeServiceError translates a service error into the response status, falling
// back to a 500 when the error carries no status of its own.
func (h httpHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
	switch v := err.(type) {
	case *apierrors.APIError:
		w.WriteHeader(v.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(err)
		return
	case *apierrors.ValidationError:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(err)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

// parseDateParameters parses the year, month and day parameters into a valid time.
func (h httpHandler) parseDateParameters(r *http.Request) (time.Time, error) {
	var zeroTime time.Time
	year := chi.URLParam(r, "year")
	month := chi.URLParam(r, "month")
	day := chi.URLParam(r, "day")
	if year == "" || month == "" || day == "" {
		return zeroTime, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidDateReference), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	concatDate := fmt.Sprintf("%s-%s-%s", year, month, day)
	date, err := time.Parse("2006-01-02", concatDate)
	if err != nil {
		return zeroTime, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidDateReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return date, nil
}

// parseMonthParameters parses the year and month parameters.
func (h httpHandler) parseMonthParameters(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, 0, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidMonthReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidMonthReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return year, time.Month(month), nil
}

// parsePeriodQuery parses the from and to date query parameters into a half-open
// period, to being inclusive as a date.
func (h httpHandler) parsePeriodQuery(r *http.Request) (time.Time, time.Time, error) {
	var zeroTime time.Time
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		return zeroTime, zeroTime, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidPeriodReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		return zeroTime, zeroTime, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidPeriodReference), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return from, to.AddDate(0, 0, 1), nil
}

// parseUUIDParameter parses a UUID parameter into a valid UUID.
func (h httpHandler) parseUUIDParameter(parName string, r *http.Request) (uuid.UUID, error) {
	zeroUUID := uuid.UUID{}
	uuidPar := chi.URLParam(r, parName)
	if uuidPar == "" {
		return zeroUUID, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidIdentifier), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	parsedUUID, err := uuid.Parse(uuidPar)
	if err != nil {
		return zeroUUID, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidIdentifier), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return parsedUUID, nil
}

func (h httpHandler) GetBookableSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctorUUID, err := h.parseUUIDParameter("doctorUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	specialtyUUID, err := h.parseUUIDParameter("specialtyUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	date, err := h.parseDateParameters(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	slots, err := h.service.GetBookableSlots(ctx, doctorUUID, specialtyUUID, date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(slots)
}

func (h httpHandler) GetBookableDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctorUUID, err := h.parseUUIDParameter("doctorUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	specialtyUUID, err := h.parseUUIDParameter("specialtyUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	year, month, err := h.parseMonthParameters(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	days, err := h.service.GetBookableDays(ctx, doctorUUID, specialtyUUID, year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(days)
}

func (h httpHandler) Book(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	request := new(BookingRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	consultation, err := h.service.Book(ctx, *request)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(consultation)
}

func (h httpHandler) ListMyConsultations(w http.ResponseWriter, r *http.Request) {
	consultations, err := h.service.ListMyConsultations(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(consultations)
}

func (h httpHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	consultationUUID, err := h.parseUUIDParameter("consultationUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err = h.service.CancelBooking(r.Context(), consultationUUID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	consultationUUID, err := h.parseUUIDParameter("consultationUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	request := new(RescheduleRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	consultation, err := h.service.Reschedule(r.Context(), consultationUUID, *request)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(consultation)
}

func (h httpHandler) GetMyAgenda(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parsePeriodQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	entries, err := h.service.GetMyAgenda(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(entries)
}

func (h httpHandler) CreateManualConsultation(w http.ResponseWriter, r *http.Request) {
	request := new(ManualConsultationRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	consultation, err := h.service.CreateManualConsultation(r.Context(), *request)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(consultation)
}

func (h httpHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	consultationUUID, err := h.parseUUIDParameter("consultationUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	request := new(ResolveRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err = h.service.Resolve(r.Context(), consultationUUID, *request); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	request := new(BlockRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	entry, err := h.service.CreateBlock(r.Context(), *request)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(entry)
}

func (h httpHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	entryUUID, err := h.parseUUIDParameter("entryUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err = h.service.DeleteBlock(r.Context(), entryUUID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	windows, err := h.service.GetAvailability(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(windows)
}

func (h httpHandler) ReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	windows := make([]AvailabilityWindow, 0)
	if err := json.NewDecoder(r.Body).Decode(&windows); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.service.ReplaceAvailability(r.Context(), windows); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) CancelAsAdmin(w http.ResponseWriter, r *http.Request) {
	entryUUID, err := h.parseUUIDParameter("entryUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err = h.service.CancelAsAdmin(r.Context(), entryUUID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) ResetNoShowCount(w http.ResponseWriter, r *http.Request) {
	patientUUID, err := h.parseUUIDParameter("patientUUID", r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err = h.service.ResetNoShowCount(r.Context(), patientUUID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
