package postgres

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/tenant"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// tenantEq builds the tenant-scoping predicate shared by every query.
func tenantEq(t tenant.Tenant) squirrel.Eq {
	return squirrel.Eq{
		"site_id":    t.SiteID,
		"company_id": t.CompanyID,
	}
}

// requireTenant extracts the tenant or returns the standard error.
func requireTenant(ctx context.Context) (tenant.Tenant, error) {
	return tenant.Require(ctx)
}

// translateError maps driver errors to application errors.
func translateError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, "").WithCause(err)
	}
	return err
}
