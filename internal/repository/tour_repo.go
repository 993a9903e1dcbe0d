package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-tours-api/internal/model"
)

const tourColumns = `id, name, duration_days, max_group_size, difficulty, price, price_discount,
	summary, description, ratings_average, ratings_quantity, created_at, updated_at`

// sortableTourColumns whitelists client-driven sort fields; anything else
// is rejected before it reaches SQL.
var sortableTourColumns = map[string]string{
	"name":            "name",
	"price":           "price",
	"duration_days":   "duration_days",
	"ratings_average": "ratings_average",
	"created_at":      "created_at",
}

type TourRepository struct {
	pool *pgxpool.Pool
}

func NewTourRepository(pool *pgxpool.Pool) *TourRepository {
	return &TourRepository{pool: pool}
}

// List applies the filter, a whitelisted sort and pagination, and returns
// the page plus the total match count for the response meta.
func (r *TourRepository) List(ctx context.Context, filter model.TourFilter) ([]model.Tour, int, error) {
	where, args := buildTourWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tours`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tours: %w", err)
	}

	orderBy, err := buildTourOrder(filter.Sort)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s FROM tours%s%s LIMIT $%d OFFSET $%d`,
		tourColumns, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	tours := make([]model.Tour, 0)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, 0, err
		}
		tours = append(tours, t)
	}
	return tours, total, rows.Err()
}

func (r *TourRepository) FindByID(ctx context.Context, id string) (model.Tour, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = $1`, id)
	t, err := scanTour(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Tour{}, model.ErrTourNotFound
	}
	if err != nil {
		return model.Tour{}, fmt.Errorf("find tour: %w", err)
	}
	return t, nil
}

func (r *TourRepository) Create(ctx context.Context, t model.Tour) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tours (id, name, duration_days, max_group_size, difficulty, price, price_discount,
		                    summary, description, ratings_average, ratings_quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Name, t.DurationDays, t.MaxGroupSize, t.Difficulty, t.Price, t.PriceDiscount,
		t.Summary, t.Description, t.RatingsAverage, t.RatingsQuantity, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: tour name taken", model.ErrInvalidInput)
		}
		return fmt.Errorf("create tour: %w", err)
	}
	return nil
}

func (r *TourRepository) Update(ctx context.Context, t model.Tour) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tours SET name = $2, duration_days = $3, max_group_size = $4, difficulty = $5,
		        price = $6, price_discount = $7, summary = $8, description = $9, updated_at = $10
		 WHERE id = $1`,
		t.ID, t.Name, t.DurationDays, t.MaxGroupSize, t.Difficulty,
		t.Price, t.PriceDiscount, t.Summary, t.Description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update tour: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTourNotFound
	}
	return nil
}

func (r *TourRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTourNotFound
	}
	return nil
}

func buildTourWhere(filter model.TourFilter) (string, []any) {
	clauses := []string{}
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Difficulty != "" {
		add("difficulty = $%d", filter.Difficulty)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.MinDuration != nil {
		add("duration_days >= $%d", *filter.MinDuration)
	}
	if filter.MaxDuration != nil {
		add("duration_days <= $%d", *filter.MaxDuration)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildTourOrder(sorts []model.TourSort) (string, error) {
	if len(sorts) == 0 {
		return " ORDER BY created_at DESC", nil
	}

	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		column, ok := sortableTourColumns[s.Field]
		if !ok {
			return "", fmt.Errorf("%w: cannot sort by %q", model.ErrInvalidInput, s.Field)
		}
		direction := "ASC"
		if s.Desc {
			direction = "DESC"
		}
		parts = append(parts, column+" "+direction)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func scanTour(row pgx.Row) (model.Tour, error) {
	var t model.Tour
	err := row.Scan(&t.ID, &t.Name, &t.DurationDays, &t.MaxGroupSize, &t.Difficulty,
		&t.Price, &t.PriceDiscount, &t.Summary, &t.Description,
		&t.RatingsAverage, &t.RatingsQuantity, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
