package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrUnknownProduct      = errors.New("unknown product identifier")
	ErrNoMatchingOffer     = errors.New("no matching offer for plan")
	ErrConsumptionInFlight = errors.New("purchase consumption already in progress")
)
