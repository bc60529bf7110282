package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reviewCodesIssued counts review codes minted.
	reviewCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_review_codes_issued_total",
			Help: "Total number of review codes issued",
		},
	)

	// reviewCodeCollisions counts generated codes discarded because they
	// matched an existing code.
	reviewCodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_review_code_collisions_total",
			Help: "Total number of generated review codes that collided with an existing code",
		},
	)

	// reviewRedemptions counts redemption attempts by outcome.
	reviewRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_review_redemptions_total",
			Help: "Total number of review code redemptions by result",
		},
		[]string{"result"},
	)

	// accountActions counts account lifecycle events.
	accountActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_account_actions_total",
			Help: "Total number of account actions by type and result",
		},
		[]string{"action", "result"},
	)

	// orphanedImages counts images left in the media store because
	// destroying them failed after the database change committed.
	orphanedImages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_orphaned_images_total",
			Help: "Total number of product images that could not be destroyed",
		},
	)
)

// Redemption results.
const (
	redeemOK           = "ok"
	redeemInvalidCode  = "invalid_code"
	redeemWrongSeller  = "wrong_seller"
	redeemNoProduct    = "product_not_found"
	redeemInvalidInput = "invalid_input"
	redeemError        = "error"
)
