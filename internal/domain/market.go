package domain

import "time"

// Market is a selling location sellers and products are affiliated with.
type Market struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
