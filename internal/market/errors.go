package market

import "errors"

// Exchange failure conditions. "Already exchanged" and "not exchangeable"
// are deliberately distinct so callers can tell a spent option from an
// expired one.
var (
	ErrAlreadyExchanged  = errors.New("option already exchanged")
	ErrNotExchangeable   = errors.New("option outside its exchange window")
	ErrOptionNotHeld     = errors.New("buyer does not hold the option")
	ErrInsufficientFunds = errors.New("buyer has insufficient funds")
	ErrSellerUnavailable = errors.New("no seller to receive the strike")
)
