package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-tours-api/internal/middleware"
	"go-tours-api/internal/model"
	"go-tours-api/internal/service"
	"go-tours-api/pkg/apierror"
)

type ReviewHandler struct {
	service *service.ReviewService
}

func NewReviewHandler(service *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) ListByTour(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListByTour(r.Context(), chi.URLParam(r, "tour_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, reviews, nil)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.CreateReviewRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	review, err := h.service.Create(r.Context(), chi.URLParam(r, "tour_id"), principal.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, review, nil)
}
