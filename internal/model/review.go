package model

import "time"

type Review struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}
