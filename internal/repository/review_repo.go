package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-tours-api/internal/model"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) ListByTour(ctx context.Context, tourID string) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tour_id, user_id, rating, review, created_at
		 FROM reviews WHERE tour_id = $1 ORDER BY created_at DESC`, tourID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0)
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.TourID, &rv.UserID, &rv.Rating, &rv.Review, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Create inserts the review and refreshes the tour's rating aggregate in
// the same transaction so the denormalized counters never drift.
func (r *ReviewRepository) Create(ctx context.Context, rv model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO reviews (id, tour_id, user_id, rating, review, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rv.ID, rv.TourID, rv.UserID, rv.Rating, rv.Review, rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE tours SET
		   ratings_quantity = sub.cnt,
		   ratings_average  = sub.avg
		 FROM (SELECT COUNT(*) AS cnt, AVG(rating) AS avg FROM reviews WHERE tour_id = $1) AS sub
		 WHERE tours.id = $1`,
		rv.TourID)
	if err != nil {
		return fmt.Errorf("refresh tour ratings: %w", err)
	}

	return tx.Commit(ctx)
}
