package payment

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/tindero-pos/tindero/internal/money"
)

// TabStatus is the state of a customer's store credit.
type TabStatus string

const (
	// TabActive allows charging.
	TabActive TabStatus = "active"
	// TabSuspended allows charging but flags a warning.
	TabSuspended TabStatus = "suspended"
	// TabFrozen rejects any further charge.
	TabFrozen TabStatus = "frozen"
)

// CustomerTab is the slice of customer state payment validation needs.
type CustomerTab struct {
	Balance     float64
	CreditLimit float64
	Status      TabStatus
}

// Result carries the computed fields of a successful validation.
type Result struct {
	Change          float64
	NewTabBalance   float64
	TabCharge       float64
	OverrideApplied bool
	Warnings        []string
}

var (
	// ErrInsufficientPayment indicates tendered or combined amounts fall
	// short of the total.
	ErrInsufficientPayment = errors.New("payment: insufficient payment")
	// ErrInvalidReference indicates a malformed wallet reference.
	ErrInvalidReference = errors.New("payment: wallet reference must be at least 10 alphanumeric characters")
	// ErrTabFrozen indicates the customer's tab accepts no further charges.
	ErrTabFrozen = errors.New("payment: tab is frozen")
	// ErrNoCredit indicates no credit has been extended to the customer.
	ErrNoCredit = errors.New("payment: no credit extended")
	// ErrCreditLimitExceeded indicates the charge exceeds the credit limit.
	ErrCreditLimitExceeded = errors.New("payment: exceeds credit limit")
	// ErrCustomerRequired indicates a tab method without an attached customer.
	ErrCustomerRequired = errors.New("payment: tab payment requires a customer")
	// ErrTooManyComponents indicates more than two split components.
	ErrTooManyComponents = errors.New("payment: split supports at most two components")
	// ErrZeroComponent indicates a split component with no amount.
	ErrZeroComponent = errors.New("payment: split components must carry a positive amount")
	// ErrChangeWithoutCash indicates split overpayment with no cash leg to
	// return change on.
	ErrChangeWithoutCash = errors.New("payment: change requires a cash component")
	// ErrExceedsBalance indicates a settlement larger than the open balance.
	ErrExceedsBalance = errors.New("payment: settlement exceeds outstanding balance")
	// ErrMustBePositive indicates a non-positive settlement amount.
	ErrMustBePositive = errors.New("payment: amount must be positive")
)

var walletReferencePattern = regexp.MustCompile(`^[A-Za-z0-9]{10,}$`)

// Validate dispatches to the per-method rules. tab may be nil for methods
// that do not touch store credit.
func Validate(m Method, total float64, tab *CustomerTab) (Result, error) {
	switch v := m.(type) {
	case Cash:
		return ValidateCash(total, v.Tendered)
	case Wallet:
		if err := ValidateWallet(v.Reference); err != nil {
			return Result{}, err
		}
		return Result{}, nil
	case Tab:
		if tab == nil {
			return Result{}, ErrCustomerRequired
		}
		return ValidateTab(total, tab.Balance, tab.CreditLimit, tab.Status, v.Override)
	case Split:
		return ValidateSplit(total, v, tab)
	}
	return Result{}, fmt.Errorf("%w: %T", ErrUnknownType, m)
}

// ValidateCash checks tendered cash against the total and computes change.
func ValidateCash(total, tendered float64) (Result, error) {
	total = money.RoundCents(total)
	tendered = money.RoundCents(tendered)
	if total <= 0 {
		return Result{}, fmt.Errorf("%w: total must be positive", ErrInsufficientPayment)
	}
	if tendered <= 0 {
		return Result{}, fmt.Errorf("%w: tendered amount must be positive", ErrInsufficientPayment)
	}
	if !money.GTE(tendered, total) {
		return Result{}, fmt.Errorf("%w: short by %.2f", ErrInsufficientPayment, money.Sub(total, tendered))
	}
	return Result{Change: money.Sub(tendered, total)}, nil
}

// ValidateWallet checks the transfer reference shape.
func ValidateWallet(reference string) error {
	if !walletReferencePattern.MatchString(reference) {
		return ErrInvalidReference
	}
	return nil
}

// ValidateTab checks a store-credit charge against the customer's balance,
// limit, and tab status. A frozen tab hard-fails; a suspended one passes
// with a warning. Override lets the charge exceed the limit and is flagged
// for audit.
func ValidateTab(amount, balance, limit float64, status TabStatus, override bool) (Result, error) {
	amount = money.RoundCents(amount)
	if amount <= 0 {
		return Result{}, ErrMustBePositive
	}
	if status == TabFrozen {
		return Result{}, ErrTabFrozen
	}
	if limit <= 0 {
		return Result{}, ErrNoCredit
	}
	result := Result{
		NewTabBalance: money.Add(balance, amount),
		TabCharge:     amount,
	}
	if status == TabSuspended {
		result.Warnings = append(result.Warnings, "tab is suspended")
	}
	if money.GT(result.NewTabBalance, limit) {
		if !override {
			return Result{}, fmt.Errorf("%w: new balance %.2f exceeds limit %.2f", ErrCreditLimitExceeded, result.NewTabBalance, limit)
		}
		result.OverrideApplied = true
		result.Warnings = append(result.Warnings, "credit limit overridden")
		return result, nil
	}
	if money.GTE(result.NewTabBalance, money.RoundCents(limit*0.8)) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("tab balance %.2f is above 80%% of the %.2f limit", result.NewTabBalance, limit))
	}
	return result, nil
}

// ValidateSplit checks a two-component split. Every component must pass its
// own method rules against its share; the combined amount must cover the
// total, and any change is attributed to the cash component.
func ValidateSplit(total float64, split Split, tab *CustomerTab) (Result, error) {
	total = money.RoundCents(total)
	if total <= 0 {
		return Result{}, fmt.Errorf("%w: total must be positive", ErrInsufficientPayment)
	}
	if len(split.Components) == 0 {
		return Result{}, fmt.Errorf("%w: at least one component required", ErrZeroComponent)
	}
	if len(split.Components) > 2 {
		return Result{}, ErrTooManyComponents
	}

	var sum float64
	var hasCash bool
	combined := Result{}
	for _, c := range split.Components {
		amount := money.RoundCents(c.Amount)
		if amount <= 0 {
			return Result{}, ErrZeroComponent
		}
		sum = money.Add(sum, amount)
		switch inner := c.Method.(type) {
		case Cash:
			hasCash = true
		case Wallet:
			if err := ValidateWallet(inner.Reference); err != nil {
				return Result{}, err
			}
		case Tab:
			if tab == nil {
				return Result{}, ErrCustomerRequired
			}
			tabResult, err := ValidateTab(amount, tab.Balance, tab.CreditLimit, tab.Status, inner.Override)
			if err != nil {
				return Result{}, err
			}
			combined.NewTabBalance = tabResult.NewTabBalance
			combined.TabCharge = tabResult.TabCharge
			combined.OverrideApplied = combined.OverrideApplied || tabResult.OverrideApplied
			combined.Warnings = append(combined.Warnings, tabResult.Warnings...)
		case Split:
			return Result{}, errors.New("payment: split components cannot nest")
		}
	}
	if !money.GTE(sum, total) {
		return Result{}, fmt.Errorf("%w: short by %.2f", ErrInsufficientPayment, money.Sub(total, sum))
	}
	change := money.Sub(sum, total)
	if change > 0 && !hasCash {
		return Result{}, ErrChangeWithoutCash
	}
	combined.Change = change
	return combined, nil
}

// ValidateSettlement checks a tab pay-down (not a sale) against the open
// balance.
func ValidateSettlement(amount, balance float64) error {
	amount = money.RoundCents(amount)
	if amount <= 0 {
		return ErrMustBePositive
	}
	if money.GT(amount, balance) {
		return fmt.Errorf("%w: %.2f owed", ErrExceedsBalance, money.RoundCents(balance))
	}
	return nil
}
