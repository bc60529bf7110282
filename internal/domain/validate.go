package domain

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
	"github.com/isokoinfo/marketplace/pkg/validator"
)

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// ValidateUserName requires a non-empty name that fits users.name.
func ValidateUserName(name string) error {
	if name == "" {
		return apperrors.InvalidInput(MsgNameRequired)
	}
	if validator.Var(name, "max=200") != nil {
		return apperrors.InvalidInput(MsgNameTooLong)
	}
	return nil
}

// ValidatePasswordLength rejects passwords bcrypt cannot hash. The limit
// is in bytes, not characters.
func ValidatePasswordLength(password string) error {
	if len(password) > MaxPasswordBytes {
		return apperrors.InvalidInput(MsgPasswordTooLong)
	}
	return nil
}

// ValidatePhone checks the 07 + 8 digits format.
func ValidatePhone(tel string) error {
	if validator.Var(tel, "required,phone07") != nil {
		return apperrors.InvalidInput(MsgInvalidPhone)
	}
	return nil
}

// ParseMarketID parses a market id form value; it must be a positive integer.
func ParseMarketID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(MsgMarketRequired)
	}
	return id, nil
}

// ValidateProductName requires 3 to 100 characters after trimming.
func ValidateProductName(name string) error {
	if name == "" {
		return apperrors.InvalidInput(MsgProductName)
	}
	if validator.Var(name, "min=3,max=100") != nil {
		return apperrors.InvalidInput(MsgProductNameLength)
	}
	return nil
}

// ValidateCategory requires a category of at most 50 characters.
func ValidateCategory(category string) error {
	if category == "" {
		return apperrors.InvalidInput(MsgCategoryRequired)
	}
	if validator.Var(category, "max=50") != nil {
		return apperrors.InvalidInput(MsgCategoryTooLong)
	}
	return nil
}

// ValidateSellingUnit requires a selling unit of at most 50 characters.
func ValidateSellingUnit(unit string) error {
	if unit == "" {
		return apperrors.InvalidInput(MsgUnitRequired)
	}
	if validator.Var(unit, "max=50") != nil {
		return apperrors.InvalidInput(MsgUnitTooLong)
	}
	return nil
}

// ParsePrice parses a non-negative, finite decimal price.
func ParsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, apperrors.InvalidInput(MsgPriceInvalid)
	}
	if price < 0 {
		return 0, apperrors.InvalidInput(MsgPriceNegative)
	}
	return price, nil
}

// ParseRating parses an integer rating between MinRating and MaxRating.
func ParseRating(raw string) (int, error) {
	rating, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || rating < MinRating || rating > MaxRating {
		return 0, apperrors.InvalidInput(MsgRatingRange)
	}
	return rating, nil
}

// ValidateComment requires a non-blank comment of bounded length.
func ValidateComment(comment string) error {
	if strings.TrimSpace(comment) == "" {
		return apperrors.InvalidInput(MsgCommentRequired)
	}
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return apperrors.InvalidInput(MsgCommentTooLong)
	}
	return nil
}

// ValidateMarketName requires a non-empty name of at most 200 characters.
func ValidateMarketName(name string) error {
	if validator.Var(name, "required,max=200") != nil {
		return apperrors.InvalidInput(MsgMarketNameInvalid)
	}
	return nil
}
