// Package register provides cash register (caja) sessions: the open/close
// accounting period during which an operator's sales are attributed to one
// cash drawer, and the reconciliation of counted against expected cash.
package register

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
)

// Status is the session lifecycle state. Closed is terminal.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Session is one drawer period for one operator.
type Session struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`
	UserID    id.ID `db:"user_id" json:"userId"`

	Status Status `db:"status" json:"status"`

	// OpeningFloat is the cash placed in the drawer at open.
	OpeningFloat types.Money `db:"opening_float" json:"openingFloat"`

	// System totals per payment method, stamped at close.
	SystemCash         types.Money `db:"system_cash" json:"systemCash"`
	SystemMobileWallet types.Money `db:"system_mobile_wallet" json:"systemMobileWallet"`
	SystemBankTransfer types.Money `db:"system_bank_transfer" json:"systemBankTransfer"`
	SystemOther        types.Money `db:"system_other" json:"systemOther"`

	// CountedCash is the physically counted drawer amount declared at close.
	CountedCash *types.Money `db:"counted_cash" json:"countedCash,omitempty"`

	// Surplus and Shortfall split the signed difference between counted and
	// expected cash; at most one of them is positive.
	Surplus   types.Money `db:"surplus" json:"surplus"`
	Shortfall types.Money `db:"shortfall" json:"shortfall"`

	OpenedAt time.Time  `db:"opened_at" json:"openedAt"`
	ClosedAt *time.Time `db:"closed_at" json:"closedAt,omitempty"`
}

// NewSession opens a drawer period with the given float.
func NewSession(t tenant.Tenant, userID id.ID, openingFloat types.Money) *Session {
	return &Session{
		ID:                 id.New(),
		SiteID:             t.SiteID,
		CompanyID:          t.CompanyID,
		UserID:             userID,
		Status:             StatusOpen,
		OpeningFloat:       openingFloat,
		SystemCash:         types.Zero(),
		SystemMobileWallet: types.Zero(),
		SystemBankTransfer: types.Zero(),
		SystemOther:        types.Zero(),
		Surplus:            types.Zero(),
		Shortfall:          types.Zero(),
		OpenedAt:           time.Now().UTC(),
	}
}

// Validate implements invariant checks before persistence.
func (s *Session) Validate(ctx context.Context) error {
	if id.IsNil(s.UserID) {
		return apperror.NewValidation("user is required").
			WithDetail("field", "userId")
	}
	if s.OpeningFloat.IsNegative() {
		return apperror.NewValidation("opening float cannot be negative").
			WithDetail("field", "openingFloat")
	}
	return nil
}

// Summary is the per-method breakdown of completed sales since opening.
type Summary struct {
	Cash         types.Money `json:"cash"`
	MobileWallet types.Money `json:"mobileWallet"`
	BankTransfer types.Money `json:"bankTransfer"`
	Other        types.Money `json:"other"`
	Total        types.Money `json:"total"`
	SaleCount    int         `json:"saleCount"`
}

// Repository defines tenant-scoped persistence for register sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, sessionID id.ID) (*Session, error)
	Update(ctx context.Context, s *Session) error

	// GetOpenByUser returns the operator's open session, or NotFound.
	// At most one session is open per (user, site, company).
	GetOpenByUser(ctx context.Context, userID id.ID) (*Session, error)

	List(ctx context.Context, userID *id.ID, limit, offset int) ([]*Session, error)
}
