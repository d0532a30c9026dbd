package payment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCash(t *testing.T) {
	result, err := ValidateCash(75.50, 100)
	require.NoError(t, err)
	require.InDelta(t, 24.50, result.Change, 0.001)

	_, err = ValidateCash(100, 50)
	require.ErrorIs(t, err, ErrInsufficientPayment)
	require.Contains(t, err.Error(), "50.00")

	_, err = ValidateCash(0, 50)
	require.ErrorIs(t, err, ErrInsufficientPayment)

	_, err = ValidateCash(50, 0)
	require.ErrorIs(t, err, ErrInsufficientPayment)

	// Exact payment gives zero change.
	result, err = ValidateCash(20, 20)
	require.NoError(t, err)
	require.Zero(t, result.Change)
}

func TestValidateWallet(t *testing.T) {
	require.NoError(t, ValidateWallet("ABC1234567"))
	require.NoError(t, ValidateWallet("1234567890123"))
	require.ErrorIs(t, ValidateWallet("ABC123"), ErrInvalidReference)
	require.ErrorIs(t, ValidateWallet("ABC-1234567"), ErrInvalidReference)
	require.ErrorIs(t, ValidateWallet(""), ErrInvalidReference)
	require.ErrorIs(t, ValidateWallet("ABC 1234567"), ErrInvalidReference)
}

func TestValidateTab(t *testing.T) {
	result, err := ValidateTab(100, 200, 1000, TabActive, false)
	require.NoError(t, err)
	require.InDelta(t, 300.0, result.NewTabBalance, 0.001)
	require.Empty(t, result.Warnings)

	_, err = ValidateTab(600, 500, 1000, TabActive, false)
	require.ErrorIs(t, err, ErrCreditLimitExceeded)
	require.Contains(t, err.Error(), "exceeds")

	_, err = ValidateTab(100, 0, 0, TabActive, false)
	require.ErrorIs(t, err, ErrNoCredit)

	_, err = ValidateTab(100, 0, 1000, TabFrozen, false)
	require.ErrorIs(t, err, ErrTabFrozen)

	result, err = ValidateTab(100, 0, 1000, TabSuspended, false)
	require.NoError(t, err)
	require.Contains(t, result.Warnings, "tab is suspended")

	result, err = ValidateTab(600, 500, 1000, TabActive, true)
	require.NoError(t, err)
	require.True(t, result.OverrideApplied)
	require.InDelta(t, 1100.0, result.NewTabBalance, 0.001)

	// Crossing 80% of the limit attaches a warning without blocking.
	result, err = ValidateTab(400, 450, 1000, TabActive, false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)

	_, err = ValidateTab(0, 0, 1000, TabActive, false)
	require.ErrorIs(t, err, ErrMustBePositive)
}

func TestValidateSplit(t *testing.T) {
	split := Split{Components: []Component{
		{Method: Cash{Tendered: 50}, Amount: 50},
		{Method: Wallet{Reference: "ABC1234567"}, Amount: 50},
	}}

	result, err := ValidateSplit(100, split, nil)
	require.NoError(t, err)
	require.Zero(t, result.Change)

	_, err = ValidateSplit(110, split, nil)
	require.ErrorIs(t, err, ErrInsufficientPayment)
	require.Contains(t, err.Error(), "10.00")

	// Overpayment returns change on the cash leg.
	result, err = ValidateSplit(90, split, nil)
	require.NoError(t, err)
	require.InDelta(t, 10.0, result.Change, 0.001)

	// Overpayment without a cash leg cannot return change.
	walletOnly := Split{Components: []Component{
		{Method: Wallet{Reference: "ABC1234567"}, Amount: 120},
	}}
	_, err = ValidateSplit(100, walletOnly, nil)
	require.ErrorIs(t, err, ErrChangeWithoutCash)

	three := Split{Components: []Component{
		{Method: Cash{}, Amount: 10},
		{Method: Cash{}, Amount: 10},
		{Method: Cash{}, Amount: 10},
	}}
	_, err = ValidateSplit(30, three, nil)
	require.ErrorIs(t, err, ErrTooManyComponents)

	zero := Split{Components: []Component{
		{Method: Cash{}, Amount: 0},
		{Method: Wallet{Reference: "ABC1234567"}, Amount: 100},
	}}
	_, err = ValidateSplit(100, zero, nil)
	require.ErrorIs(t, err, ErrZeroComponent)

	badRef := Split{Components: []Component{
		{Method: Cash{}, Amount: 50},
		{Method: Wallet{Reference: "short"}, Amount: 50},
	}}
	_, err = ValidateSplit(100, badRef, nil)
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestValidateSplitWithTabComponent(t *testing.T) {
	tab := &CustomerTab{Balance: 100, CreditLimit: 1000, Status: TabActive}
	split := Split{Components: []Component{
		{Method: Cash{Tendered: 40}, Amount: 40},
		{Method: Tab{CustomerID: 1}, Amount: 60},
	}}
	result, err := ValidateSplit(100, split, tab)
	require.NoError(t, err)
	require.InDelta(t, 160.0, result.NewTabBalance, 0.001)
	require.InDelta(t, 60.0, result.TabCharge, 0.001)

	_, err = ValidateSplit(100, split, nil)
	require.ErrorIs(t, err, ErrCustomerRequired)

	frozen := &CustomerTab{Balance: 100, CreditLimit: 1000, Status: TabFrozen}
	_, err = ValidateSplit(100, split, frozen)
	require.ErrorIs(t, err, ErrTabFrozen)
}

func TestValidateSettlement(t *testing.T) {
	require.NoError(t, ValidateSettlement(50, 100))
	require.NoError(t, ValidateSettlement(100, 100))
	require.ErrorIs(t, ValidateSettlement(150, 100), ErrExceedsBalance)
	require.ErrorIs(t, ValidateSettlement(0, 100), ErrMustBePositive)
	require.ErrorIs(t, ValidateSettlement(-5, 100), ErrMustBePositive)
}

func TestDecode(t *testing.T) {
	m, err := Decode("Cash", json.RawMessage(`{"tendered": 100}`), 0, false)
	require.NoError(t, err)
	require.Equal(t, Cash{Tendered: 100}, m)

	m, err = Decode("GCash", json.RawMessage(`{"reference": "ABC1234567"}`), 0, false)
	require.NoError(t, err)
	require.Equal(t, Wallet{Reference: "ABC1234567"}, m)

	m, err = Decode("Tab", nil, 42, true)
	require.NoError(t, err)
	require.Equal(t, Tab{CustomerID: 42, Override: true}, m)

	m, err = Decode("Split", json.RawMessage(`{"components":[{"type":"Cash","amount":50},{"type":"Wallet","amount":50,"reference":"ABC1234567"}]}`), 0, false)
	require.NoError(t, err)
	split, ok := m.(Split)
	require.True(t, ok)
	require.Len(t, split.Components, 2)

	_, err = Decode("Cheque", nil, 0, false)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestCustomerID(t *testing.T) {
	require.Equal(t, int64(0), CustomerID(Cash{Tendered: 10}))
	require.Equal(t, int64(7), CustomerID(Tab{CustomerID: 7}))
	require.Equal(t, int64(7), CustomerID(Split{Components: []Component{
		{Method: Cash{Tendered: 40}, Amount: 40},
		{Method: Tab{CustomerID: 7}, Amount: 60},
	}}))

	// paymentInfo alone can identify the tab customer.
	m, err := Decode("Tab", json.RawMessage(`{"customer_id": 9}`), 0, false)
	require.NoError(t, err)
	require.Equal(t, int64(9), CustomerID(m))
}
