package domain

import "errors"

// Review-code redemption failures.
var (
	ErrInvalidCode       = errors.New("review code invalid or already used")
	ErrOwnershipMismatch = errors.New("review code belongs to another seller")

	// ErrCodeCollision means a freshly generated code matched an existing one.
	ErrCodeCollision = errors.New("review code collision")
)

// User-facing messages.
const (
	MsgPasswordMismatch  = "Passwords don't match."
	MsgInvalidPhone      = "Phone number must start with 07 and be 10 digits long."
	MsgNameTaken         = "Username taken. Choose a different one."
	MsgNameRequired      = "Name is required."
	MsgNameTooLong       = "Name must be at most 200 characters."
	MsgPasswordRequired  = "Password is required."
	MsgPasswordTooLong   = "Password must be at most 72 bytes."
	MsgMarketRequired    = "Please choose a market."
	MsgUnknownMarket     = "That market does not exist."
	MsgInvalidLogin      = "Invalid username or password"
	MsgProductName       = "Product name is required."
	MsgProductNameLength = "Product name must be between 3 and 100 characters."
	MsgPriceNegative     = "Price cannot be negative."
	MsgPriceInvalid      = "Price must be a valid number."
	MsgImageRequired     = "Product image is required."
	MsgImageType         = "Product image must be a JPEG, PNG, WebP or GIF file."
	MsgImageTooLarge     = "Product image is too large."
	MsgCategoryRequired  = "Category is required."
	MsgCategoryTooLong   = "Category must be at most 50 characters."
	MsgUnitRequired      = "Selling unit is required."
	MsgUnitTooLong       = "Selling unit must be at most 50 characters."
	MsgNoEditPermission  = "You don't have permission to edit this product."
	MsgNoDeletePerm      = "You don't have permission to delete this product."
	MsgInvalidCode       = "That code is invalid or already used!"
	MsgCodeWrongSeller   = "That code does not belong to this seller."
	MsgRatingRange       = "Rating must be a whole number from 1 to 5."
	MsgCommentRequired   = "Comment is required."
	MsgCommentTooLong    = "Comment must be at most 1000 characters."
	MsgMarketNameInvalid = "Market name is required and must be at most 200 characters."
	MsgMarketExists      = "That market already exists."
	MsgLoginRequired     = "You need to login first!"
)
