package ledger

import (
	"errors"
	"fmt"

	"token-ledger/internal/address"
	"token-ledger/internal/domain"
)

// Sentinel errors. Every failing operation returns one of these (possibly
// wrapped or carried by a typed error) and leaves no committed mutation.
var (
	ErrFeatureDisabled       = errors.New("feature disabled")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrNotAMinter            = fmt.Errorf("%w: minting is allowed to minter accounts only", ErrNotAuthorized)
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientSupply    = errors.New("amount exceeds the total supply")
	ErrBalanceOverflow       = errors.New("balance would exceed the supported maximum")
	ErrSupplyOverflow        = errors.New("total supply would exceed the supported maximum")
	ErrUnsupportedToken      = errors.New("tried to deposit an unsupported token")
	ErrNoFundsSent           = errors.New("no funds were sent to be deposited")
	ErrReserveInsufficient   = errors.New("redeem amount exceeds the deposit reserve")
	ErrViewingKey            = errors.New("wrong viewing key for this address or viewing key not set")
	ErrContractStopped       = errors.New("contract is stopped")
	ErrInvalidAddress        = address.ErrInvalidAddress
	ErrInvalidMessage        = errors.New("invalid message")
)

// ViewingKeyErrorMsg is the generic text of a failed authenticated query.
const ViewingKeyErrorMsg = "Wrong viewing key for this address or viewing key not set"

// errNotAdmin is returned by admin-only operations called by anyone else.
var errNotAdmin = fmt.Errorf("%w: this is an admin command, admin commands can only be run from admin address", ErrNotAuthorized)

// FeatureDisabledError names the disabled feature.
type FeatureDisabledError struct {
	Feature string
}

func (e *FeatureDisabledError) Error() string {
	return fmt.Sprintf("%s functionality is not enabled for this token", e.Feature)
}

// Is implements errors.Is support.
func (e *FeatureDisabledError) Is(target error) bool {
	return target == ErrFeatureDisabled
}

// InsufficientFundsError carries the balance and the amount that was required.
type InsufficientFundsError struct {
	Balance  domain.Amount
	Required domain.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance=%s, required=%s", e.Balance, e.Required)
}

// Is implements errors.Is support.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// InsufficientAllowanceError carries the usable allowance and the amount that was required.
// Allowance is zero when the stored record has expired.
type InsufficientAllowanceError struct {
	Allowance domain.Amount
	Required  domain.Amount
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance: allowance=%s, required=%s", e.Allowance, e.Required)
}

// Is implements errors.Is support.
func (e *InsufficientAllowanceError) Is(target error) bool {
	return target == ErrInsufficientAllowance
}
