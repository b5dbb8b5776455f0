package register

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	appctx "farmapos/internal/core/context"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/tx"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/auth"
	"farmapos/internal/domain/sale"
	"farmapos/pkg/logger"
)

// Service provides register session operations: open, summarize, close.
type Service struct {
	repo  Repository
	sales sale.Repository
	txm   tx.Manager
}

// NewService creates a new register service.
func NewService(repo Repository, sales sale.Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, sales: sales, txm: txm}
}

func (s *Service) currentUserID(ctx context.Context) (id.ID, error) {
	raw := appctx.GetUserID(ctx)
	if raw == "" {
		return id.Nil(), apperror.NewUnauthorized("no authenticated user")
	}
	userID, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewUnauthorized("invalid user id").WithCause(err)
	}
	return userID, nil
}

// Open starts a session with the given cash float. Fails when the operator
// already has one open.
func (s *Service) Open(ctx context.Context, openingFloat types.Money) (*Session, error) {
	t, err := tenant.Require(ctx)
	if err != nil {
		return nil, apperror.NewNoTenant()
	}
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetOpenByUser(ctx, userID); err == nil {
		return nil, apperror.NewRegisterAlreadyOpen(existing.ID.String())
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	session := NewSession(t, userID, openingFloat)
	if err := session.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	logger.Info(ctx, "register opened",
		"session_id", session.ID,
		"opening_float", openingFloat.StringFixed(2),
	)
	return session, nil
}

// Current returns the operator's open session.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOpenByUser(ctx, userID)
}

// ComputeSummary groups the owner's completed sales since opening by payment
// method. Methods outside the known set fold into cash: the conservative
// bucket for reconciliation.
func (s *Service) ComputeSummary(ctx context.Context, session *Session) (Summary, error) {
	sales, err := s.sales.ListCompletedSince(ctx, session.UserID, session.OpenedAt)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Cash:         types.Zero(),
		MobileWallet: types.Zero(),
		BankTransfer: types.Zero(),
		Other:        types.Zero(),
		Total:        types.Zero(),
	}
	for _, sl := range sales {
		switch sl.PaymentMethod {
		case sale.PayMobileWallet:
			sum.MobileWallet = sum.MobileWallet.Add(sl.AmountDue)
		case sale.PayBankTransfer:
			sum.BankTransfer = sum.BankTransfer.Add(sl.AmountDue)
		case sale.PayOther:
			sum.Other = sum.Other.Add(sl.AmountDue)
		default:
			sum.Cash = sum.Cash.Add(sl.AmountDue)
		}
		sum.Total = sum.Total.Add(sl.AmountDue)
		sum.SaleCount++
	}
	return sum, nil
}

// Close reconciles and terminates the session: expected cash is the cash
// sales plus the opening float, the signed difference against the counted
// amount splits into surplus or shortfall. A closed session stays closed.
func (s *Service) Close(ctx context.Context, sessionID id.ID, countedCash types.Money) (*Session, error) {
	if countedCash.IsNegative() {
		return nil, apperror.NewValidation("counted cash cannot be negative").
			WithDetail("field", "countedCash")
	}
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var session *Session
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID && !appctx.HasRole(ctx, auth.RoleAdmin) {
			return apperror.NewForbidden("session belongs to another operator")
		}
		if session.Status != StatusOpen {
			return apperror.NewRegisterClosed(session.ID.String())
		}

		summary, err := s.ComputeSummary(ctx, session)
		if err != nil {
			return err
		}

		systemCash := summary.Cash.Add(session.OpeningFloat)
		difference := countedCash.Sub(systemCash)

		session.SystemCash = summary.Cash
		session.SystemMobileWallet = summary.MobileWallet
		session.SystemBankTransfer = summary.BankTransfer
		session.SystemOther = summary.Other
		session.CountedCash = &countedCash
		session.Surplus = types.Zero()
		session.Shortfall = types.Zero()
		if difference.IsPositive() {
			session.Surplus = difference
		} else if difference.IsNegative() {
			session.Shortfall = difference.Neg()
		}

		now := time.Now().UTC()
		session.Status = StatusClosed
		session.ClosedAt = &now
		return s.repo.Update(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "register closed",
		"session_id", session.ID,
		"surplus", session.Surplus.StringFixed(2),
		"shortfall", session.Shortfall.StringFixed(2),
	)
	return session, nil
}

// List returns past sessions, newest first.
func (s *Service) List(ctx context.Context, userID *id.ID, limit, offset int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, userID, limit, offset)
}
