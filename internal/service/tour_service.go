package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-tours-api/internal/model"
	"go-tours-api/pkg/apierror"
)

const defaultRatingsAverage = 4.5

var tourDifficulties = map[string]struct{}{
	"easy":      {},
	"medium":    {},
	"difficult": {},
}

type tourStore interface {
	List(ctx context.Context, filter model.TourFilter) ([]model.Tour, int, error)
	FindByID(ctx context.Context, id string) (model.Tour, error)
	Create(ctx context.Context, t model.Tour) error
	Update(ctx context.Context, t model.Tour) error
	Delete(ctx context.Context, id string) error
}

type TourService struct {
	tours tourStore
}

func NewTourService(tours tourStore) *TourService {
	return &TourService{tours: tours}
}

func (s *TourService) List(ctx context.Context, filter model.TourFilter) ([]model.Tour, int, error) {
	return s.tours.List(ctx, filter)
}

// TopCheap is the "top 5 cheap" alias: best-rated first, cheapest among
// equals.
func (s *TourService) TopCheap(ctx context.Context) ([]model.Tour, error) {
	tours, _, err := s.tours.List(ctx, model.TourFilter{
		Sort: []model.TourSort{
			{Field: "ratings_average", Desc: true},
			{Field: "price"},
		},
		Limit: 5,
	})
	return tours, err
}

func (s *TourService) Get(ctx context.Context, id string) (model.Tour, error) {
	return s.tours.FindByID(ctx, id)
}

func (s *TourService) Create(ctx context.Context, req model.CreateTourRequest) (model.Tour, error) {
	if err := validateTourFields(req.Name, req.DurationDays, req.MaxGroupSize, req.Difficulty, req.Price, req.Summary); err != nil {
		return model.Tour{}, err
	}

	now := time.Now().UTC()
	tour := model.Tour{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		DurationDays:   req.DurationDays,
		MaxGroupSize:   req.MaxGroupSize,
		Difficulty:     req.Difficulty,
		Price:          req.Price,
		PriceDiscount:  req.PriceDiscount,
		Summary:        strings.TrimSpace(req.Summary),
		Description:    strings.TrimSpace(req.Description),
		RatingsAverage: defaultRatingsAverage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		return model.Tour{}, err
	}
	return tour, nil
}

func (s *TourService) Update(ctx context.Context, id string, req model.UpdateTourRequest) (model.Tour, error) {
	tour, err := s.tours.FindByID(ctx, id)
	if err != nil {
		return model.Tour{}, err
	}

	if req.Name != nil {
		tour.Name = strings.TrimSpace(*req.Name)
	}
	if req.DurationDays != nil {
		tour.DurationDays = *req.DurationDays
	}
	if req.MaxGroupSize != nil {
		tour.MaxGroupSize = *req.MaxGroupSize
	}
	if req.Difficulty != nil {
		tour.Difficulty = *req.Difficulty
	}
	if req.Price != nil {
		tour.Price = *req.Price
	}
	if req.PriceDiscount != nil {
		tour.PriceDiscount = req.PriceDiscount
	}
	if req.Summary != nil {
		tour.Summary = strings.TrimSpace(*req.Summary)
	}
	if req.Description != nil {
		tour.Description = strings.TrimSpace(*req.Description)
	}

	if err := validateTourFields(tour.Name, tour.DurationDays, tour.MaxGroupSize, tour.Difficulty, tour.Price, tour.Summary); err != nil {
		return model.Tour{}, err
	}

	if err := s.tours.Update(ctx, tour); err != nil {
		return model.Tour{}, err
	}
	return tour, nil
}

func (s *TourService) Delete(ctx context.Context, id string) error {
	return s.tours.Delete(ctx, id)
}

func validateTourFields(name string, duration int, groupSize int, difficulty string, price float64, summary string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apierror.New("BAD_REQUEST", "a tour must have a name", "name", http.StatusBadRequest)
	case duration <= 0:
		return apierror.New("BAD_REQUEST", "a tour must have a duration", "duration_days", http.StatusBadRequest)
	case groupSize <= 0:
		return apierror.New("BAD_REQUEST", "a tour must have a group size", "max_group_size", http.StatusBadRequest)
	case price <= 0:
		return apierror.New("BAD_REQUEST", "a tour must have a price", "price", http.StatusBadRequest)
	case strings.TrimSpace(summary) == "":
		return apierror.New("BAD_REQUEST", "a tour must have a summary", "summary", http.StatusBadRequest)
	}

	if _, ok := tourDifficulties[difficulty]; !ok {
		return apierror.New("BAD_REQUEST", "difficulty must be easy, medium or difficult", "difficulty", http.StatusBadRequest)
	}
	return nil
}
