package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tindero-pos/tindero/internal/catalog"
	"github.com/tindero-pos/tindero/internal/platform/db"
	"github.com/tindero-pos/tindero/internal/shared"
)

// Repository persists sales data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction. The
// whole commit pipeline runs in one of these; any error rolls everything
// back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const transactionColumns = `id, order_number, status, payment_type, payment_info, idempotency_key,
subtotal, tax_amount, discount, total, paid_amount, change_amount, customer_id, daypart, day_type, created_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var key *string
	var customerID *int64
	err := row.Scan(&t.ID, &t.OrderNumber, &t.Status, &t.PaymentType, &t.PaymentInfo, &key,
		&t.Subtotal, &t.TaxAmount, &t.Discount, &t.Total, &t.PaidAmount, &t.ChangeAmount,
		&customerID, &t.Daypart, &t.DayType, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	if key != nil {
		t.IdempotencyKey = *key
	}
	if customerID != nil {
		t.CustomerID = *customerID
	}
	return t, nil
}

func loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, t *Transaction) error {
	rows, err := q.Query(ctx, `SELECT id, product_id, name, price, quantity FROM transaction_items WHERE transaction_id=$1 ORDER BY id ASC`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item TransactionItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return err
		}
		t.Items = append(t.Items, item)
	}
	return rows.Err()
}

// GetByIdempotencyKey loads a transaction by key outside any transaction,
// used to resolve a lost insert race.
func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key=$1`, key))
	if err != nil {
		return Transaction{}, err
	}
	if err := loadItems(ctx, r.pool, &t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// ClearIdempotencyKeysBefore nulls idempotency keys on transactions committed
// before the cutoff so the unique index stays small. The cutoff must sit well
// past the offline queue's retention or a late replay would re-commit.
func (r *Repository) ClearIdempotencyKeysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET idempotency_key = NULL
WHERE idempotency_key IS NOT NULL AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error) {
	t, err := scanTransaction(r.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key=$1`, key))
	if err != nil {
		return Transaction{}, err
	}
	if err := loadItems(ctx, r.tx, &t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var key *string
	if t.IdempotencyKey != "" {
		key = &t.IdempotencyKey
	}
	var customerID *int64
	if t.CustomerID != 0 {
		customerID = &t.CustomerID
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (order_number, status, payment_type, payment_info, idempotency_key,
subtotal, tax_amount, discount, total, paid_amount, change_amount, customer_id, daypart, day_type, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15) RETURNING id`,
		t.OrderNumber, t.Status, t.PaymentType, t.PaymentInfo, key,
		t.Subtotal, t.TaxAmount, t.Discount, t.Total, t.PaidAmount, t.ChangeAmount,
		customerID, t.Daypart, t.DayType, t.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateKey
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertItems(ctx context.Context, txID int64, items []TransactionItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO transaction_items (transaction_id, product_id, name, price, quantity)
VALUES ($1,$2,$3,$4,$5)`, txID, item.ProductID, item.Name, item.Price, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	var linked *int64
	err := r.tx.QueryRow(ctx, `SELECT id, name, price, track_stock, quantity, linked_ingredient_id
FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&p.ID, &p.Name, &p.Price, &p.TrackStock, &p.Quantity, &linked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrProductNotFound
		}
		return catalog.Product{}, err
	}
	if linked != nil {
		p.LinkedIngredientID = *linked
	}
	rows, err := r.tx.Query(ctx, `SELECT product_id, ingredient_id, quantity FROM recipe_items WHERE product_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return catalog.Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item catalog.RecipeItem
		if err := rows.Scan(&item.ProductID, &item.IngredientID, &item.Quantity); err != nil {
			return catalog.Product{}, err
		}
		p.Recipe = append(p.Recipe, item)
	}
	return p, rows.Err()
}

func (r *txRepository) UpdateProductQuantity(ctx context.Context, id int64, quantity float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=NOW() WHERE id=$1`, id, quantity)
	return err
}

func (r *txRepository) GetIngredientForUpdate(ctx context.Context, id int64) (catalog.Ingredient, error) {
	var ing catalog.Ingredient
	err := r.tx.QueryRow(ctx, `SELECT id, name, base_unit, package_unit, package_size, cost_per_package, quantity, par_level, updated_at
FROM ingredients WHERE id=$1 FOR UPDATE`, id).
		Scan(&ing.ID, &ing.Name, &ing.BaseUnit, &ing.PackageUnit, &ing.PackageSize, &ing.CostPerPackage, &ing.Quantity, &ing.ParLevel, &ing.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Ingredient{}, catalog.ErrIngredientNotFound
		}
		return catalog.Ingredient{}, err
	}
	return ing, nil
}

func (r *txRepository) UpdateIngredientQuantity(ctx context.Context, id int64, quantity float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE ingredients SET quantity=$2, updated_at=NOW() WHERE id=$1`, id, quantity)
	return err
}

func (r *txRepository) InsertIngredientHistory(ctx context.Context, entry catalog.HistoryEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ingredient_history (ingredient_id, change_id, field, old_value, new_value, source, reason, actor_id, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		entry.IngredientID, entry.ChangeID, entry.Field, entry.OldValue, entry.NewValue, entry.Source, entry.Reason, entry.ActorID)
	return err
}

func (r *txRepository) GetCustomerForUpdate(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.tx.QueryRow(ctx, `SELECT id, name, tab_balance, credit_limit, tab_status, visit_count, lifetime_spend, avg_ticket,
COALESCE(first_visit, 'epoch'), COALESCE(last_visit, 'epoch'), is_regular
FROM customers WHERE id=$1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Name, &c.TabBalance, &c.CreditLimit, &c.TabStatus, &c.VisitCount, &c.LifetimeSpend, &c.AvgTicket,
			&c.FirstVisit, &c.LastVisit, &c.IsRegular)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrCustomerNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *txRepository) UpdateCustomer(ctx context.Context, c Customer) error {
	_, err := r.tx.Exec(ctx, `UPDATE customers SET tab_balance=$2, visit_count=$3, lifetime_spend=$4, avg_ticket=$5,
first_visit=$6, last_visit=$7, is_regular=$8, updated_at=NOW() WHERE id=$1`,
		c.ID, c.TabBalance, c.VisitCount, c.LifetimeSpend, c.AvgTicket, c.FirstVisit, c.LastVisit, c.IsRegular)
	return err
}

func (r *txRepository) InsertAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.InsertAudit(ctx, r.tx, log)
}
