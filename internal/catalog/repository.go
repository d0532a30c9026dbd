package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tindero-pos/tindero/internal/platform/db"
	"github.com/tindero-pos/tindero/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the restock service.
type TxRepository interface {
	GetIngredientForUpdate(ctx context.Context, id int64) (Ingredient, error)
	UpdateIngredient(ctx context.Context, ing Ingredient) error
	InsertHistory(ctx context.Context, entry HistoryEntry) error
	InsertAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("catalog repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetProduct loads a product with its recipe lines.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	var linked *int64
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, track_stock, quantity, linked_ingredient_id
FROM products WHERE id=$1`, id).Scan(&p.ID, &p.Name, &p.Price, &p.TrackStock, &p.Quantity, &linked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	if linked != nil {
		p.LinkedIngredientID = *linked
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, ingredient_id, quantity
FROM recipe_items WHERE product_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item RecipeItem
		if err := rows.Scan(&item.ProductID, &item.IngredientID, &item.Quantity); err != nil {
			return Product{}, err
		}
		p.Recipe = append(p.Recipe, item)
	}
	return p, rows.Err()
}

// GetIngredients loads the named ingredients keyed by ID. Missing IDs are
// simply absent from the map; the availability calculator degrades them to
// warnings.
func (r *Repository) GetIngredients(ctx context.Context, ids []int64) (map[int64]Ingredient, error) {
	result := make(map[int64]Ingredient, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, base_unit, package_unit, package_size, cost_per_package, quantity, par_level, updated_at
FROM ingredients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.BaseUnit, &ing.PackageUnit, &ing.PackageSize, &ing.CostPerPackage, &ing.Quantity, &ing.ParLevel, &ing.UpdatedAt); err != nil {
			return nil, err
		}
		result[ing.ID] = ing
	}
	return result, rows.Err()
}

// ListBelowPar lists ingredients whose package quantity sits at or below the
// reorder threshold. Used by the low-stock scan job.
func (r *Repository) ListBelowPar(ctx context.Context) ([]Ingredient, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, base_unit, package_unit, package_size, cost_per_package, quantity, par_level, updated_at
FROM ingredients WHERE par_level > 0 AND quantity <= par_level ORDER BY quantity ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ingredient
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.BaseUnit, &ing.PackageUnit, &ing.PackageSize, &ing.CostPerPackage, &ing.Quantity, &ing.ParLevel, &ing.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (r *txRepository) GetIngredientForUpdate(ctx context.Context, id int64) (Ingredient, error) {
	var ing Ingredient
	err := r.tx.QueryRow(ctx, `SELECT id, name, base_unit, package_unit, package_size, cost_per_package, quantity, par_level, updated_at
FROM ingredients WHERE id=$1 FOR UPDATE`, id).
		Scan(&ing.ID, &ing.Name, &ing.BaseUnit, &ing.PackageUnit, &ing.PackageSize, &ing.CostPerPackage, &ing.Quantity, &ing.ParLevel, &ing.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ingredient{}, ErrIngredientNotFound
		}
		return Ingredient{}, err
	}
	return ing, nil
}

func (r *txRepository) UpdateIngredient(ctx context.Context, ing Ingredient) error {
	_, err := r.tx.Exec(ctx, `UPDATE ingredients SET quantity=$2, cost_per_package=$3, package_size=$4, updated_at=NOW()
WHERE id=$1`, ing.ID, ing.Quantity, ing.CostPerPackage, ing.PackageSize)
	return err
}

func (r *txRepository) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ingredient_history (ingredient_id, change_id, field, old_value, new_value, source, reason, actor_id, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		entry.IngredientID, entry.ChangeID, entry.Field, entry.OldValue, entry.NewValue, entry.Source, entry.Reason, entry.ActorID)
	return err
}

func (r *txRepository) InsertAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.InsertAudit(ctx, r.tx, log)
}
