package sales

import (
	"errors"
	"time"

	"github.com/tindero-pos/tindero/internal/payment"
)

// Status is the lifecycle state of a transaction.
type Status int

const (
	// StatusHeld is an open order with no payment applied.
	StatusHeld Status = 0
	// StatusPaid is a committed sale.
	StatusPaid Status = 1
)

// Transaction is a durable sale record. Committed rows are immutable.
type Transaction struct {
	ID             int64
	OrderNumber    string
	Status         Status
	PaymentType    payment.Type
	PaymentInfo    []byte
	IdempotencyKey string
	Subtotal       float64
	TaxAmount      float64
	Discount       float64
	Total          float64
	PaidAmount     float64
	ChangeAmount   float64
	CustomerID     int64
	Daypart        string
	DayType        string
	CreatedAt      time.Time
	Items          []TransactionItem
}

// TransactionItem snapshots one sold line: name and price are copied at
// sale time so later catalog edits cannot rewrite history.
type TransactionItem struct {
	ID        int64
	ProductID int64
	Name      string
	Price     float64
	Quantity  int
}

// Customer is the slice of the customer record the pipeline reads and
// mutates. Customer CRUD lives elsewhere; only the commit pipeline may
// touch the tab balance.
type Customer struct {
	ID            int64
	Name          string
	TabBalance    float64
	CreditLimit   float64
	TabStatus     payment.TabStatus
	VisitCount    int
	LifetimeSpend float64
	AvgTicket     float64
	FirstVisit    time.Time
	LastVisit     time.Time
	IsRegular     bool
}

// Outcome is the tagged result of one commit attempt. Exactly one of the
// three variants comes back; infrastructure failures surface as a separate
// error so callers can retry through the offline queue.
type Outcome interface {
	isOutcome()
}

// Committed is a freshly committed transaction with all side effects
// applied.
type Committed struct {
	Transaction Transaction
	Warnings    []string
}

// Replayed is the original transaction for a duplicate idempotency key. No
// new row, no side effects.
type Replayed struct {
	Transaction Transaction
}

// Rejected is a validation failure; nothing was written.
type Rejected struct {
	Reason error
}

func (Committed) isOutcome() {}
func (Replayed) isOutcome()  {}
func (Rejected) isOutcome()  {}

// ErrTransactionNotFound indicates a missing transaction row.
var ErrTransactionNotFound = errors.New("sales: transaction not found")

// ErrCustomerNotFound indicates a missing customer row.
var ErrCustomerNotFound = errors.New("sales: customer not found")

// ErrDuplicateKey indicates an idempotency-key collision on insert. The
// pipeline treats it as replay, not as an error.
var ErrDuplicateKey = errors.New("sales: idempotency key already used")

// ErrEmptyCart indicates a submission with no items.
var ErrEmptyCart = errors.New("sales: transaction requires at least one item")
