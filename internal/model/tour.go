package model

import "time"

type Tour struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DurationDays    int       `json:"duration_days"`
	MaxGroupSize    int       `json:"max_group_size"`
	Difficulty      string    `json:"difficulty"`
	Price           float64   `json:"price"`
	PriceDiscount   *float64  `json:"price_discount,omitempty"`
	Summary         string    `json:"summary"`
	Description     string    `json:"description,omitempty"`
	RatingsAverage  float64   `json:"ratings_average"`
	RatingsQuantity int       `json:"ratings_quantity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TourFilter captures the supported list query: equality and range filters,
// a whitelist-checked sort expression, and pagination.
type TourFilter struct {
	Difficulty  string
	MinPrice    *float64
	MaxPrice    *float64
	MinDuration *int
	MaxDuration *int
	Sort        []TourSort
	Page        int
	Limit       int
}

type TourSort struct {
	Field string
	Desc  bool
}
