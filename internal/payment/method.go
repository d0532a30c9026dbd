// Package payment models the closed set of payment methods and their
// validation rules. Methods are decoded once at the HTTP boundary into a
// typed variant; nothing downstream branches on string tags or re-parses
// payload JSON.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type tags the wire representation of a method.
type Type string

const (
	// TypeCash is payment in physical cash.
	TypeCash Type = "Cash"
	// TypeWallet is a mobile-wallet transfer identified by a reference.
	TypeWallet Type = "Wallet"
	// TypeTab charges the sale to a customer's store credit.
	TypeTab Type = "Tab"
	// TypeSplit combines two component methods.
	TypeSplit Type = "Split"
)

// Method is the closed sum of payment variants. Only types in this package
// implement it.
type Method interface {
	Type() Type
	isMethod()
}

// Cash carries the amount the customer handed over.
type Cash struct {
	Tendered float64 `json:"tendered"`
}

// Wallet carries the mobile-wallet transfer reference.
type Wallet struct {
	Reference string `json:"reference"`
}

// Tab charges the customer's store credit. Override marks an explicit
// manager override of the credit limit; it is audited by the pipeline.
type Tab struct {
	CustomerID int64 `json:"customer_id"`
	Override   bool  `json:"override"`
}

// Split combines at most two components.
type Split struct {
	Components []Component `json:"components"`
}

// Component is one leg of a split payment.
type Component struct {
	Method Method
	Amount float64
}

func (Cash) Type() Type   { return TypeCash }
func (Wallet) Type() Type { return TypeWallet }
func (Tab) Type() Type    { return TypeTab }
func (Split) Type() Type  { return TypeSplit }

func (Cash) isMethod()   {}
func (Wallet) isMethod() {}
func (Tab) isMethod()    {}
func (Split) isMethod()  {}

// ErrUnknownType indicates an unsupported payment type tag.
var ErrUnknownType = errors.New("payment: unknown payment type")

// CustomerID reports the customer a method charges, or zero when the method
// does not involve a tab.
func CustomerID(m Method) int64 {
	switch v := m.(type) {
	case Tab:
		return v.CustomerID
	case Split:
		for _, c := range v.Components {
			if tab, ok := c.Method.(Tab); ok && tab.CustomerID != 0 {
				return tab.CustomerID
			}
		}
	}
	return 0
}

type componentWire struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Tendered  float64 `json:"tendered"`
	Reference string  `json:"reference"`
}

type infoWire struct {
	Tendered   float64         `json:"tendered"`
	Reference  string          `json:"reference"`
	CustomerID int64           `json:"customer_id"`
	Components []componentWire `json:"components"`
}

// Decode parses the wire (paymentType, paymentInfo) pair into a typed
// Method. This is the only place the string tag is interpreted.
func Decode(typeTag string, info json.RawMessage, customerID int64, override bool) (Method, error) {
	var wire infoWire
	if len(info) > 0 {
		if err := json.Unmarshal(info, &wire); err != nil {
			return nil, fmt.Errorf("payment: decode payment info: %w", err)
		}
	}
	switch normalizeType(typeTag) {
	case TypeCash:
		return Cash{Tendered: wire.Tendered}, nil
	case TypeWallet:
		return Wallet{Reference: wire.Reference}, nil
	case TypeTab:
		id := wire.CustomerID
		if id == 0 {
			id = customerID
		}
		return Tab{CustomerID: id, Override: override}, nil
	case TypeSplit:
		split := Split{}
		for _, c := range wire.Components {
			inner, err := decodeComponent(c, customerID, override)
			if err != nil {
				return nil, err
			}
			split.Components = append(split.Components, inner)
		}
		return split, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeTag)
}

func decodeComponent(c componentWire, customerID int64, override bool) (Component, error) {
	switch normalizeType(c.Type) {
	case TypeCash:
		tendered := c.Tendered
		if tendered == 0 {
			tendered = c.Amount
		}
		return Component{Method: Cash{Tendered: tendered}, Amount: c.Amount}, nil
	case TypeWallet:
		return Component{Method: Wallet{Reference: c.Reference}, Amount: c.Amount}, nil
	case TypeTab:
		return Component{Method: Tab{CustomerID: customerID, Override: override}, Amount: c.Amount}, nil
	case TypeSplit:
		return Component{}, errors.New("payment: split components cannot nest")
	}
	return Component{}, fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
}

func normalizeType(tag string) Type {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "cash":
		return TypeCash
	case "wallet", "gcash":
		// Legacy clients send the wallet brand name as the tag.
		return TypeWallet
	case "tab":
		return TypeTab
	case "split":
		return TypeSplit
	}
	return Type(tag)
}
