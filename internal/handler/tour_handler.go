package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-tours-api/internal/model"
	"go-tours-api/internal/service"
	"go-tours-api/pkg/apierror"
)

const maxPageSize = 100

type TourHandler struct {
	service *service.TourService
}

func NewTourHandler(service *service.TourService) *TourHandler {
	return &TourHandler{service: service}
}

func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTourFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tours, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = maxPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	writeSuccess(w, http.StatusOK, tours, &model.Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	})
}

func (h *TourHandler) TopCheap(w http.ResponseWriter, r *http.Request) {
	tours, err := h.service.TopCheap(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tours, nil)
}

func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	tour, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tour, nil)
}

func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateTourRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	tour, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, tour, nil)
}

func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateTourRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	tour, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tour, nil)
}

func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseTourFilter maps the list query string onto a TourFilter:
// ?difficulty=easy&price[gte]=400&price[lte]=1500&duration[gte]=5
// &sort=-ratings_average,price&page=2&limit=10
func parseTourFilter(r *http.Request) (model.TourFilter, error) {
	q := r.URL.Query()
	filter := model.TourFilter{Difficulty: strings.TrimSpace(q.Get("difficulty"))}

	var err error
	if filter.MinPrice, err = parseFloatParam(q.Get("price[gte]"), "price[gte]"); err != nil {
		return model.TourFilter{}, err
	}
	if filter.MaxPrice, err = parseFloatParam(q.Get("price[lte]"), "price[lte]"); err != nil {
		return model.TourFilter{}, err
	}
	if filter.MinDuration, err = parseIntParam(q.Get("duration[gte]"), "duration[gte]"); err != nil {
		return model.TourFilter{}, err
	}
	if filter.MaxDuration, err = parseIntParam(q.Get("duration[lte]"), "duration[lte]"); err != nil {
		return model.TourFilter{}, err
	}

	for _, field := range strings.Split(q.Get("sort"), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		sort := model.TourSort{Field: field}
		if strings.HasPrefix(field, "-") {
			sort = model.TourSort{Field: field[1:], Desc: true}
		}
		filter.Sort = append(filter.Sort, sort)
	}

	if page, err := parseIntParam(q.Get("page"), "page"); err != nil {
		return model.TourFilter{}, err
	} else if page != nil {
		filter.Page = *page
	}

	if limit, err := parseIntParam(q.Get("limit"), "limit"); err != nil {
		return model.TourFilter{}, err
	} else if limit != nil {
		filter.Limit = min(*limit, maxPageSize)
	}

	return filter, nil
}

func parseFloatParam(raw string, name string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apierror.New("BAD_REQUEST", "invalid numeric parameter", name, http.StatusBadRequest)
	}
	return &v, nil
}

func parseIntParam(raw string, name string) (*int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, apierror.New("BAD_REQUEST", "invalid numeric parameter", name, http.StatusBadRequest)
	}
	return &v, nil
}
