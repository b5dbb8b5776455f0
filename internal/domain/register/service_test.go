package register

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/apperror"
	appctx "farmapos/internal/core/context"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/auth"
	"farmapos/internal/domain/sale"
)

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memSessions struct {
	items map[id.ID]*Session
}

func newMemSessions() *memSessions {
	return &memSessions{items: make(map[id.ID]*Session)}
}

func (m *memSessions) Create(ctx context.Context, s *Session) error {
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	s, ok := m.items[sessionID]
	if !ok {
		return nil, apperror.NewNotFound("register session", sessionID.String())
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Update(ctx context.Context, s *Session) error {
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *memSessions) GetOpenByUser(ctx context.Context, userID id.ID) (*Session, error) {
	for _, s := range m.items {
		if s.UserID == userID && s.Status == StatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("open register session", userID.String())
}

func (m *memSessions) List(ctx context.Context, userID *id.ID, limit, offset int) ([]*Session, error) {
	var out []*Session
	for _, s := range m.items {
		if userID != nil && s.UserID != *userID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

// fixedSales serves a canned set of completed sales.
type fixedSales struct {
	sale.Repository
	completed []*sale.Sale
}

func (f *fixedSales) ListCompletedSince(ctx context.Context, userID id.ID, since time.Time) ([]*sale.Sale, error) {
	return f.completed, nil
}

func testContext(userID id.ID) context.Context {
	t := tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
	ctx := tenant.WithTenant(context.Background(), t)
	return appctx.WithUser(ctx, &appctx.UserContext{
		UserID:    userID.String(),
		SiteID:    t.SiteID.String(),
		CompanyID: t.CompanyID.String(),
	})
}

func completedSale(method sale.PaymentMethod, amount string) *sale.Sale {
	return &sale.Sale{
		ID:            id.New(),
		Status:        sale.StatusCompleted,
		PaymentMethod: method,
		AmountDue:     types.MustMoney(amount),
	}
}

func TestOpen_SecondSessionRejected(t *testing.T) {
	userID := id.New()
	ctx := testContext(userID)
	svc := NewService(newMemSessions(), &fixedSales{}, nopTx{})

	_, err := svc.Open(ctx, types.MustMoney("100.00"))
	require.NoError(t, err)

	_, err = svc.Open(ctx, types.MustMoney("50.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeRegisterAlreadyOpen))
}

func TestComputeSummary_GroupsByMethod(t *testing.T) {
	userID := id.New()
	ctx := testContext(userID)
	sales := &fixedSales{completed: []*sale.Sale{
		completedSale(sale.PayCash, "50.00"),
		completedSale(sale.PayCash, "25.50"),
		completedSale(sale.PayMobileWallet, "30.00"),
		completedSale(sale.PayBankTransfer, "100.00"),
		completedSale(sale.PayOther, "7.00"),
		// Unknown methods fold into cash, the conservative bucket.
		completedSale(sale.PaymentMethod("voucher"), "10.00"),
	}}
	svc := NewService(newMemSessions(), sales, nopTx{})

	session, err := svc.Open(ctx, types.Zero())
	require.NoError(t, err)

	sum, err := svc.ComputeSummary(ctx, session)
	require.NoError(t, err)

	assert.True(t, sum.Cash.Equal(types.MustMoney("85.50")), "cash: %s", sum.Cash)
	assert.True(t, sum.MobileWallet.Equal(types.MustMoney("30.00")))
	assert.True(t, sum.BankTransfer.Equal(types.MustMoney("100.00")))
	assert.True(t, sum.Other.Equal(types.MustMoney("7.00")))
	assert.True(t, sum.Total.Equal(types.MustMoney("222.50")), "total: %s", sum.Total)
	assert.Equal(t, 6, sum.SaleCount)
}

func TestClose_Reconciliation(t *testing.T) {
	tests := []struct {
		name          string
		countedCash   string
		wantSurplus   string
		wantShortfall string
	}{
		{"exact count balances", "180.00", "0", "0"},
		{"overage becomes surplus", "185.00", "5.00", "0"},
		{"missing cash becomes shortfall", "175.00", "0", "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := id.New()
			ctx := testContext(userID)
			sales := &fixedSales{completed: []*sale.Sale{
				completedSale(sale.PayCash, "80.00"),
				completedSale(sale.PayMobileWallet, "40.00"),
			}}
			svc := NewService(newMemSessions(), sales, nopTx{})

			session, err := svc.Open(ctx, types.MustMoney("100.00"))
			require.NoError(t, err)

			// Expected drawer cash: 100.00 float + 80.00 cash sales = 180.00.
			closed, err := svc.Close(ctx, session.ID, types.MustMoney(tt.countedCash))
			require.NoError(t, err)

			assert.Equal(t, StatusClosed, closed.Status)
			require.NotNil(t, closed.ClosedAt)
			require.NotNil(t, closed.CountedCash)
			assert.True(t, closed.SystemCash.Equal(types.MustMoney("80.00")))
			assert.True(t, closed.SystemMobileWallet.Equal(types.MustMoney("40.00")))
			assert.True(t, closed.Surplus.Equal(types.MustMoney(tt.wantSurplus)),
				"surplus: want %s got %s", tt.wantSurplus, closed.Surplus)
			assert.True(t, closed.Shortfall.Equal(types.MustMoney(tt.wantShortfall)),
				"shortfall: want %s got %s", tt.wantShortfall, closed.Shortfall)
		})
	}
}

func TestClose_AlreadyClosedRejected(t *testing.T) {
	userID := id.New()
	ctx := testContext(userID)
	svc := NewService(newMemSessions(), &fixedSales{}, nopTx{})

	session, err := svc.Open(ctx, types.Zero())
	require.NoError(t, err)
	_, err = svc.Close(ctx, session.ID, types.Zero())
	require.NoError(t, err)

	_, err = svc.Close(ctx, session.ID, types.Zero())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeRegisterClosed))
}

func TestClose_OtherOperatorRejected(t *testing.T) {
	owner := id.New()
	sessions := newMemSessions()
	svc := NewService(sessions, &fixedSales{}, nopTx{})

	session, err := svc.Open(testContext(owner), types.MustMoney("100.00"))
	require.NoError(t, err)

	_, err = svc.Close(testContext(id.New()), session.ID, types.MustMoney("100.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	assert.Equal(t, StatusOpen, sessions.items[session.ID].Status)
}

func TestClose_AdminMayCloseAnyDrawer(t *testing.T) {
	owner := id.New()
	svc := NewService(newMemSessions(), &fixedSales{}, nopTx{})

	session, err := svc.Open(testContext(owner), types.Zero())
	require.NoError(t, err)

	adminCtx := testContext(id.New())
	appctx.GetUser(adminCtx).Role = auth.RoleAdmin

	closed, err := svc.Close(adminCtx, session.ID, types.Zero())
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
}

func TestClose_NegativeCountRejected(t *testing.T) {
	svc := NewService(newMemSessions(), &fixedSales{}, nopTx{})

	_, err := svc.Close(testContext(id.New()), id.New(), types.MustMoney("-1.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
