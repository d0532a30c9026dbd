package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tindero-pos/tindero/internal/catalog"
	"github.com/tindero-pos/tindero/internal/money"
	"github.com/tindero-pos/tindero/internal/payment"
	"github.com/tindero-pos/tindero/internal/shared"
	"github.com/tindero-pos/tindero/internal/units"
)

// StockPolicy decides what happens when a decrement under lock would drive
// stock negative.
type StockPolicy int

const (
	// ClampToZero floors the balance at zero and lets the sale through.
	// Availability-optimistic: two near-simultaneous sales of a scarce
	// ingredient both succeed, the second consuming whatever is left.
	ClampToZero StockPolicy = iota
	// RejectOverdraw rejects the sale instead of overdrawing.
	RejectOverdraw
)

// ErrInsufficientStock is returned under RejectOverdraw when a decrement
// would overdraw the balance.
var ErrInsufficientStock = errors.New("sales: insufficient stock")

// apply returns the new balance after removing delta, and whether the
// balance was clamped.
func (p StockPolicy) apply(current, delta float64) (float64, bool, error) {
	next := current - delta
	if next >= 0 {
		return next, false, nil
	}
	if p == RejectOverdraw {
		return current, false, ErrInsufficientStock
	}
	return 0, true, nil
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByIdempotencyKey(ctx context.Context, key string) (Transaction, error)
}

// TxRepository exposes the operations the pipeline performs inside one
// atomic unit of work.
type TxRepository interface {
	FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error)
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	InsertItems(ctx context.Context, txID int64, items []TransactionItem) error
	GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error)
	UpdateProductQuantity(ctx context.Context, id int64, quantity float64) error
	GetIngredientForUpdate(ctx context.Context, id int64) (catalog.Ingredient, error)
	UpdateIngredientQuantity(ctx context.Context, id int64, quantity float64) error
	InsertIngredientHistory(ctx context.Context, entry catalog.HistoryEntry) error
	GetCustomerForUpdate(ctx context.Context, id int64) (Customer, error)
	UpdateCustomer(ctx context.Context, customer Customer) error
	InsertAudit(ctx context.Context, log shared.AuditLog) error
}

// Service runs the transaction commit pipeline.
type Service struct {
	repo   RepositoryPort
	policy StockPolicy
	now    func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Policy StockPolicy
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, policy: cfg.Policy, now: time.Now}
}

// ItemInput is one cart line as submitted by the client.
type ItemInput struct {
	ProductID int64
	Name      string
	Price     float64
	Quantity  int
}

// CommitRequest is a full sale submission.
type CommitRequest struct {
	Items          []ItemInput
	Subtotal       float64
	TaxAmount      float64
	Discount       float64
	Total          float64
	Status         Status
	Method         payment.Method
	PaymentInfo    []byte
	PaidAmount     float64
	ChangeAmount   float64
	CustomerID     int64
	IdempotencyKey string
	OrderNumber    string
	ActorID        int64
}

// rejection wraps a client-correctable validation failure so the pipeline
// can tell it apart from infrastructure errors while still aborting the
// unit of work.
type rejection struct {
	err error
}

func (r rejection) Error() string { return r.err.Error() }
func (r rejection) Unwrap() error { return r.err }

// Commit turns a cart and payment method into a durable sale. All writes
// happen in one repeatable-read transaction: the sale row, stock and
// ingredient decrements, history rows, customer updates, and the
// credit-limit-override audit land together or not at all. A duplicate
// idempotency key returns the original transaction as Replayed, whether it
// is seen before the insert or races into the unique index.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (Outcome, error) {
	if len(req.Items) == 0 {
		return Rejected{Reason: ErrEmptyCart}, nil
	}
	if req.Status == StatusPaid && req.Method == nil {
		return Rejected{Reason: fmt.Errorf("%w: payment method required", payment.ErrUnknownType)}, nil
	}
	if req.CustomerID == 0 && req.Method != nil {
		// A tab sale may identify the customer only inside paymentInfo.
		req.CustomerID = payment.CustomerID(req.Method)
	}

	now := s.now().UTC()
	changeID := uuid.NewString()
	var (
		committed Transaction
		replayed  *Transaction
		warnings  []string
	)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if req.IdempotencyKey != "" {
			existing, err := tx.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if err == nil {
				replayed = &existing
				return nil
			}
			if !errors.Is(err, ErrTransactionNotFound) {
				return err
			}
		}

		// Lock the customer up front: tab validation must read balance and
		// limit under the same lock the later update takes.
		var customer *Customer
		if req.CustomerID != 0 && req.Status == StatusPaid {
			c, err := tx.GetCustomerForUpdate(ctx, req.CustomerID)
			if err != nil {
				if errors.Is(err, ErrCustomerNotFound) {
					return rejection{err: err}
				}
				return err
			}
			customer = &c
		}

		var payResult payment.Result
		if req.Status == StatusPaid {
			var tab *payment.CustomerTab
			if customer != nil {
				tab = &payment.CustomerTab{
					Balance:     customer.TabBalance,
					CreditLimit: customer.CreditLimit,
					Status:      customer.TabStatus,
				}
			}
			result, err := payment.Validate(req.Method, req.Total, tab)
			if err != nil {
				return rejection{err: err}
			}
			payResult = result
			warnings = append(warnings, result.Warnings...)
		}

		record := s.buildTransaction(req, payResult, now)
		id, err := tx.InsertTransaction(ctx, record)
		if err != nil {
			return err
		}
		record.ID = id
		if err := tx.InsertItems(ctx, id, record.Items); err != nil {
			return err
		}

		if req.Status == StatusPaid {
			for _, item := range req.Items {
				itemWarnings, err := s.reconcileItem(ctx, tx, item, changeID, req.ActorID)
				if err != nil {
					return err
				}
				warnings = append(warnings, itemWarnings...)
			}
		}

		if customer != nil {
			s.applyCustomerStats(customer, record.Total, now)
			if payResult.TabCharge > 0 {
				customer.TabBalance = payResult.NewTabBalance
			}
			if err := tx.UpdateCustomer(ctx, *customer); err != nil {
				return err
			}
			if payResult.OverrideApplied {
				// The override record must commit with the sale it
				// authorises; a failed audit write rolls the sale back.
				err := tx.InsertAudit(ctx, shared.AuditLog{
					ActorID:  req.ActorID,
					Action:   "sales:credit_limit_override",
					Entity:   "customer",
					EntityID: fmt.Sprintf("%d", customer.ID),
					Meta: map[string]any{
						"transaction": record.OrderNumber,
						"prior_limit": customer.CreditLimit,
						"new_balance": payResult.NewTabBalance,
					},
				})
				if err != nil {
					return err
				}
			}
		}

		committed = record
		return nil
	})
	if err != nil {
		var rej rejection
		if errors.As(err, &rej) {
			return Rejected{Reason: rej.err}, nil
		}
		if errors.Is(err, ErrDuplicateKey) {
			// Lost the race on the unique index: the other submission won,
			// return its result.
			existing, readErr := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if readErr != nil {
				return nil, readErr
			}
			return Replayed{Transaction: existing}, nil
		}
		return nil, err
	}
	if replayed != nil {
		return Replayed{Transaction: *replayed}, nil
	}
	return Committed{Transaction: committed, Warnings: warnings}, nil
}

func (s *Service) buildTransaction(req CommitRequest, payResult payment.Result, now time.Time) Transaction {
	orderNumber := req.OrderNumber
	if orderNumber == "" {
		orderNumber = fmt.Sprintf("OR-%d", now.UnixNano())
	}
	paymentType := payment.Type("")
	if req.Method != nil {
		paymentType = req.Method.Type()
	}
	paid := money.RoundCents(req.PaidAmount)
	change := money.RoundCents(req.ChangeAmount)
	if payResult.Change > 0 {
		change = payResult.Change
	}
	record := Transaction{
		OrderNumber:    orderNumber,
		Status:         req.Status,
		PaymentType:    paymentType,
		PaymentInfo:    req.PaymentInfo,
		IdempotencyKey: req.IdempotencyKey,
		Subtotal:       money.RoundCents(req.Subtotal),
		TaxAmount:      money.RoundCents(req.TaxAmount),
		Discount:       money.RoundCents(req.Discount),
		Total:          money.RoundCents(req.Total),
		PaidAmount:     paid,
		ChangeAmount:   change,
		CustomerID:     req.CustomerID,
		Daypart:        Daypart(now),
		DayType:        DayType(now),
		CreatedAt:      now,
	}
	for _, item := range req.Items {
		record.Items = append(record.Items, TransactionItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     money.RoundCents(item.Price),
			Quantity:  item.Quantity,
		})
	}
	return record
}

// reconcileItem decrements whichever stock model the product uses. Recipe
// lines run in their stored order so two concurrent commits lock
// ingredients in the same sequence.
func (s *Service) reconcileItem(ctx context.Context, tx TxRepository, item ItemInput, changeID string, actorID int64) ([]string, error) {
	product, err := tx.GetProductForUpdate(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, rejection{err: fmt.Errorf("sales: unknown product %d", item.ProductID)}
		}
		return nil, err
	}
	sold := float64(item.Quantity)
	var warnings []string

	switch {
	case product.TrackStock:
		next, clamped, err := s.policy.apply(product.Quantity, sold)
		if err != nil {
			return nil, rejection{err: fmt.Errorf("%w: product %q", err, product.Name)}
		}
		if clamped {
			warnings = append(warnings, fmt.Sprintf("product %q stock clamped to zero", product.Name))
		}
		if err := tx.UpdateProductQuantity(ctx, product.ID, next); err != nil {
			return nil, err
		}

	case product.LinkedIngredientID != 0:
		w, err := s.decrementIngredient(ctx, tx, product.LinkedIngredientID, sold, changeID, actorID, fmt.Sprintf("sale of %q", product.Name))
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)

	case len(product.Recipe) > 0:
		for _, line := range product.Recipe {
			w, err := s.decrementIngredient(ctx, tx, line.IngredientID, line.Quantity*sold, changeID, actorID, fmt.Sprintf("sale of %q", product.Name))
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, w...)
		}
	}
	return warnings, nil
}

// decrementIngredient removes baseUnits of stock from one ingredient,
// converting to packages, clamping per policy, and appending a history row
// under the sale's change ID. An invalid package size degrades to a warning
// so one broken ingredient row cannot block unrelated sales.
func (s *Service) decrementIngredient(ctx context.Context, tx TxRepository, ingredientID int64, baseUnits float64, changeID string, actorID int64, reason string) ([]string, error) {
	ing, err := tx.GetIngredientForUpdate(ctx, ingredientID)
	if err != nil {
		if errors.Is(err, catalog.ErrIngredientNotFound) {
			return []string{fmt.Sprintf("ingredient %d missing, stock not decremented", ingredientID)}, nil
		}
		return nil, err
	}
	packages, err := units.PackagesForBaseUnits(baseUnits, ing.PackageSize)
	if err != nil {
		return []string{fmt.Sprintf("ingredient %q has invalid package size, stock not decremented", ing.Name)}, nil
	}
	next, clamped, err := s.policy.apply(ing.Quantity, packages)
	if err != nil {
		return nil, rejection{err: fmt.Errorf("%w: ingredient %q", err, ing.Name)}
	}
	var warnings []string
	if clamped {
		warnings = append(warnings, fmt.Sprintf("ingredient %q stock clamped to zero", ing.Name))
	}
	if err := tx.UpdateIngredientQuantity(ctx, ing.ID, next); err != nil {
		return nil, err
	}
	entry := catalog.HistoryEntry{
		IngredientID: ing.ID,
		ChangeID:     changeID,
		Field:        "quantity",
		OldValue:     ing.Quantity,
		NewValue:     next,
		Source:       "sale",
		Reason:       reason,
		ActorID:      actorID,
	}
	if err := tx.InsertIngredientHistory(ctx, entry); err != nil {
		return nil, err
	}
	return warnings, nil
}

func (s *Service) applyCustomerStats(c *Customer, total float64, now time.Time) {
	c.VisitCount++
	c.LifetimeSpend = money.Add(c.LifetimeSpend, total)
	if c.VisitCount > 0 {
		c.AvgTicket = money.RoundCents(c.LifetimeSpend / float64(c.VisitCount))
	}
	if c.FirstVisit.IsZero() {
		c.FirstVisit = now
	}
	c.LastVisit = now
	c.IsRegular = c.VisitCount >= 5
}

// SettleTab pays down part or all of a customer's open balance. Not a
// sale: it only moves the balance and records the payment in the audit
// trail.
func (s *Service) SettleTab(ctx context.Context, customerID int64, amount float64, actorID int64) (Customer, error) {
	if customerID == 0 {
		return Customer{}, errors.New("sales: customer required")
	}
	var updated Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		customer, err := tx.GetCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if err := payment.ValidateSettlement(amount, customer.TabBalance); err != nil {
			return err
		}
		customer.TabBalance = money.Sub(customer.TabBalance, amount)
		if err := tx.UpdateCustomer(ctx, customer); err != nil {
			return err
		}
		err = tx.InsertAudit(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "sales:tab_settlement",
			Entity:   "customer",
			EntityID: fmt.Sprintf("%d", customerID),
			Meta: map[string]any{
				"amount":      money.RoundCents(amount),
				"new_balance": customer.TabBalance,
			},
		})
		if err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return Customer{}, err
	}
	return updated, nil
}
