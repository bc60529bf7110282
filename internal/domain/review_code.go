package domain

import "time"

// Review code format: 8 characters drawn from A-Z and 0-9.
const (
	ReviewCodeLength   = 8
	ReviewCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ReviewCode is a single-use token a seller hands to a buyer. It moves from
// unused to used exactly once and is never reissued.
type ReviewCode struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	UserID    int64      `json:"user_id"`
	Used      bool       `json:"used"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// SellerFeed is what a seller sees on their feedback page.
type SellerFeed struct {
	ActiveCode *ReviewCode    `json:"active_code,omitempty"`
	Reviews    []SellerReview `json:"reviews"`
}

// IsWellFormedCode reports whether s could be a review code.
func IsWellFormedCode(s string) bool {
	if len(s) != ReviewCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
