package model

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"password_current"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type UpdateMeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CreateTourRequest struct {
	Name          string   `json:"name"`
	DurationDays  int      `json:"duration_days"`
	MaxGroupSize  int      `json:"max_group_size"`
	Difficulty    string   `json:"difficulty"`
	Price         float64  `json:"price"`
	PriceDiscount *float64 `json:"price_discount"`
	Summary       string   `json:"summary"`
	Description   string   `json:"description"`
}

// UpdateTourRequest uses pointers so absent fields are left untouched.
type UpdateTourRequest struct {
	Name          *string  `json:"name"`
	DurationDays  *int     `json:"duration_days"`
	MaxGroupSize  *int     `json:"max_group_size"`
	Difficulty    *string  `json:"difficulty"`
	Price         *float64 `json:"price"`
	PriceDiscount *float64 `json:"price_discount"`
	Summary       *string  `json:"summary"`
	Description   *string  `json:"description"`
}

type CreateReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}
