package domain

import "time"

// User is a registered seller.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Tel          string    `json:"tel"`
	MarketID     int64     `json:"market_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Account is a user together with the name of their market.
type Account struct {
	User
	MarketName string `json:"market_name"`
}
