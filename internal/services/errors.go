package services

import "errors"

// Error kinds surfaced by the negotiation core. Handlers map these onto HTTP status
// codes; services wrap them with fmt.Errorf("...: %w", ...) context so errors.Is
// keeps working through the wrapping.
var (
	// ErrOfferNotFound        — the offer does not exist or is deleted.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrCounterOfferNotFound — the counter-offer does not exist or is deleted.
	ErrCounterOfferNotFound = errors.New("counter-offer not found")
	// ErrBidNotFound          — a bid referenced by the caller does not exist.
	ErrBidNotFound = errors.New("bid not found")
	// ErrForbidden            — the actor is not a party to the negotiation, or is
	// acting on their own proposal where only the counter-party may.
	ErrForbidden = errors.New("actor is not permitted to perform this action")
	// ErrInvalidState         — the requested action is not reachable from the
	// entity's current status.
	ErrInvalidState = errors.New("action not valid for current status")
	// ErrExpired              — the negotiation window has passed; the entity has
	// been force-moved to EXPIRED as a side effect of detecting this.
	ErrExpired = errors.New("negotiation window has expired")
	// ErrConflict             — a duplicate live offer/bid, or a concurrent
	// transition won the race.
	ErrConflict = errors.New("conflicting negotiation state")
	// ErrInvalidArgument      — quantity, price, or allocation plan violations.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCounterOfferLimit    — the negotiation thread already holds the maximum
	// number of counter-offers.
	ErrCounterOfferLimit = errors.New("counter-offer limit reached")
)
