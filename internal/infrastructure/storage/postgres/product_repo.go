package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
)

// ProductRepo is the PostgreSQL implementation of product.Repository.
type ProductRepo struct {
	txm *TxManager
}

var _ product.Repository = (*ProductRepo)(nil)

func NewProductRepo(txm *TxManager) *ProductRepo {
	return &ProductRepo{txm: txm}
}

const productTable = "products"

var productColumns = []string{
	"id", "site_id", "company_id",
	"name", "barcode",
	"cost", "price",
	"stock", "min_stock",
	"blister_price", "blister_factor",
	"box_price", "box_factor",
	"package_price", "package_factor",
	"units_sold", "expires_at",
	"version", "created_at", "updated_at",
}

func productValues(p *product.Product) map[string]any {
	return map[string]any{
		"id":             p.ID,
		"site_id":        p.SiteID,
		"company_id":     p.CompanyID,
		"name":           p.Name,
		"barcode":        p.Barcode,
		"cost":           p.Cost,
		"price":          p.Price,
		"stock":          p.Stock,
		"min_stock":      p.MinStock,
		"blister_price":  p.BlisterPrice,
		"blister_factor": p.BlisterFactor,
		"box_price":      p.BoxPrice,
		"box_factor":     p.BoxFactor,
		"package_price":  p.PackagePrice,
		"package_factor": p.PackageFactor,
		"units_sold":     p.UnitsSold,
		"expires_at":     p.ExpiresAt,
		"version":        p.Version,
		"created_at":     p.CreatedAt,
		"updated_at":     p.UpdatedAt,
	}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := Builder().
		Insert(productTable).
		SetMap(productValues(p)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "product", p.ID)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(productColumns...).
		From(productTable).
		Where(squirrel.Eq{"id": productID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, translateError(err, "product", productID)
	}
	return &p, nil
}

func (r *ProductRepo) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(productColumns...).
		From(productTable).
		Where(squirrel.Eq{"barcode": barcode}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, translateError(err, "product", barcode)
	}
	return &p, nil
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}

	values := productValues(p)
	delete(values, "id")
	delete(values, "site_id")
	delete(values, "company_id")
	delete(values, "version")
	values["version"] = p.Version + 1

	sql, args, err := Builder().
		Update(productTable).
		SetMap(values).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "product", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", p.ID)
	}
	p.Version++
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Delete(productTable).
		Where(squirrel.Eq{"id": productID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "product", productID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(productColumns...).
		From(productTable).
		Where(tenantEq(t)).
		OrderBy("name ASC")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.Eq{"barcode": filter.Search},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var products []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ReserveStock decrements stock only when enough remains, in one statement.
// Zero affected rows means either a missing product or not enough stock;
// a follow-up read distinguishes the two for the error detail.
func (r *ProductRepo) ReserveStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(productTable).
		Set("stock", squirrel.Expr("stock - ?", qty)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": productID}).
		Where(tenantEq(t)).
		Where(squirrel.Expr("stock >= ?", qty)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reserve: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "product", productID)
	}
	if tag.RowsAffected() == 0 {
		p, getErr := r.GetByID(ctx, productID)
		if getErr != nil {
			return getErr
		}
		return apperror.NewInsufficientStock(productID.String(), int64(qty), int64(p.Stock))
	}
	return nil
}

func (r *ProductRepo) ReleaseStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(productTable).
		Set("stock", squirrel.Expr("stock + ?", qty)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": productID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "product", productID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

func (r *ProductRepo) AddUnitsSold(ctx context.Context, productID id.ID, qty types.Quantity) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(productTable).
		Set("units_sold", squirrel.Expr("units_sold + ?", qty)).
		Where(squirrel.Eq{"id": productID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "product", productID)
	}
	return nil
}

func (r *ProductRepo) FindLowStock(ctx context.Context) ([]*product.Product, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(productColumns...).
		From(productTable).
		Where(tenantEq(t)).
		Where(squirrel.Expr("stock <= min_stock")).
		OrderBy("stock ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var products []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("find low stock: %w", err)
	}
	return products, nil
}

func (r *ProductRepo) FindExpiring(ctx context.Context, before time.Time) ([]*product.Product, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(productColumns...).
		From(productTable).
		Where(tenantEq(t)).
		Where(squirrel.LtOrEq{"expires_at": before}).
		OrderBy("expires_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var products []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("find expiring: %w", err)
	}
	return products, nil
}
