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

type reviewStore interface {
	ListByTour(ctx context.Context, tourID string) ([]model.Review, error)
	Create(ctx context.Context, rv model.Review) error
}

type tourLookup interface {
	FindByID(ctx context.Context, id string) (model.Tour, error)
}

type ReviewService struct {
	reviews reviewStore
	tours   tourLookup
}

func NewReviewService(reviews reviewStore, tours tourLookup) *ReviewService {
	return &ReviewService{reviews: reviews, tours: tours}
}

func (s *ReviewService) ListByTour(ctx context.Context, tourID string) ([]model.Review, error) {
	if _, err := s.tours.FindByID(ctx, tourID); err != nil {
		return nil, err
	}
	return s.reviews.ListByTour(ctx, tourID)
}

// Create attaches the review to the tour from the route and the author from
// the authenticated principal; neither is taken from the request body.
func (s *ReviewService) Create(ctx context.Context, tourID string, authorID string, req model.CreateReviewRequest) (model.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return model.Review{}, apierror.New("BAD_REQUEST", "rating must be between 1 and 5", "rating", http.StatusBadRequest)
	}
	if strings.TrimSpace(req.Review) == "" {
		return model.Review{}, apierror.New("BAD_REQUEST", "review text is required", "review", http.StatusBadRequest)
	}

	if _, err := s.tours.FindByID(ctx, tourID); err != nil {
		return model.Review{}, err
	}

	review := model.Review{
		ID:        uuid.NewString(),
		TourID:    tourID,
		UserID:    authorID,
		Rating:    req.Rating,
		Review:    strings.TrimSpace(req.Review),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return model.Review{}, err
	}
	return review, nil
}
