package catalog

import (
	"clinic-booking/internal/auth"
	"clinic-booking/internal/database"
	"clinic-booking/internal/logging"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type httpHandler struct {
	service Service
	logger  *log.Logger
}

// Setup setups the routes handled by the catalog context.
func Setup(router *chi.Mux, logger *log.Logger, authorizer auth.Authorizer, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(dbConn)}

	// protected routes, for any authenticated user
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Get("/api/v1/catalog/specialties", handler.ListSpecialties)
		group.Get("/api/v1/catalog/plans", handler.ListInsurancePlans)
		group.Get("/api/v1/catalog/doctors", handler.ListDoctors)
	})
}

func (h httpHandler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := h.service.ListSpecialties(r.Context())
	if err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(specialties)
}

func (h httpHandler) ListInsurancePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListInsurancePlans(r.Context())
	if err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(plans)
}

func (h httpHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.ListDoctors(r.Context())
	if err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(doctors)
}
