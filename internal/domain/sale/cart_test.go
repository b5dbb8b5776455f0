package sale

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
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/events"
	"farmapos/internal/domain/product"
)

// --- in-memory fakes ---

// nopTx runs the function without a real transaction. The engine's
// transactional guarantees are exercised against Postgres; here we only
// verify the call sequence and state transitions.
type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memProducts struct {
	items map[id.ID]*product.Product
}

func newMemProducts(ps ...*product.Product) *memProducts {
	m := &memProducts{items: make(map[id.ID]*product.Product)}
	for _, p := range ps {
		m.items[p.ID] = p
	}
	return m
}

func (m *memProducts) Create(ctx context.Context, p *product.Product) error {
	m.items[p.ID] = p
	return nil
}

func (m *memProducts) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := m.items[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	for _, p := range m.items {
		if p.Barcode == barcode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("product", barcode)
}

func (m *memProducts) Update(ctx context.Context, p *product.Product) error {
	m.items[p.ID] = p
	return nil
}

func (m *memProducts) Delete(ctx context.Context, productID id.ID) error {
	delete(m.items, productID)
	return nil
}

func (m *memProducts) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProducts) ReserveStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	p, ok := m.items[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	if p.Stock < qty {
		return apperror.NewInsufficientStock(productID.String(), int64(qty), int64(p.Stock))
	}
	p.Stock -= qty
	return nil
}

func (m *memProducts) ReleaseStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	p, ok := m.items[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	p.Stock += qty
	return nil
}

func (m *memProducts) AddUnitsSold(ctx context.Context, productID id.ID, qty types.Quantity) error {
	p, ok := m.items[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	p.UnitsSold += qty
	return nil
}

func (m *memProducts) FindLowStock(ctx context.Context) ([]*product.Product, error) {
	return nil, nil
}

func (m *memProducts) FindExpiring(ctx context.Context, before time.Time) ([]*product.Product, error) {
	return nil, nil
}

type memSales struct {
	sales map[id.ID]*Sale
	lines map[id.ID]Line
}

func newMemSales() *memSales {
	return &memSales{sales: make(map[id.ID]*Sale), lines: make(map[id.ID]Line)}
}

func (m *memSales) Create(ctx context.Context, s *Sale) error {
	cp := *s
	cp.Lines = nil
	m.sales[s.ID] = &cp
	return nil
}

func (m *memSales) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	s, ok := m.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	cp := *s
	return &cp, nil
}

func (m *memSales) Update(ctx context.Context, s *Sale) error {
	cp := *s
	cp.Lines = nil
	m.sales[s.ID] = &cp
	return nil
}

func (m *memSales) GetPendingByUser(ctx context.Context, userID id.ID) (*Sale, error) {
	for _, s := range m.sales {
		if s.UserID == userID && s.Status == StatusPending {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("pending sale", userID.String())
}

func (m *memSales) GetLines(ctx context.Context, saleID id.ID) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.SaleID == saleID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memSales) InsertLine(ctx context.Context, line *Line) error {
	m.lines[line.ID] = *line
	return nil
}

func (m *memSales) UpdateLine(ctx context.Context, line *Line) error {
	m.lines[line.ID] = *line
	return nil
}

func (m *memSales) DeleteLine(ctx context.Context, lineID id.ID) error {
	delete(m.lines, lineID)
	return nil
}

func (m *memSales) DeleteLines(ctx context.Context, saleID id.ID) error {
	for lid, l := range m.lines {
		if l.SaleID == saleID {
			delete(m.lines, lid)
		}
	}
	return nil
}

func (m *memSales) ListCompletedSince(ctx context.Context, userID id.ID, since time.Time) ([]*Sale, error) {
	var out []*Sale
	for _, s := range m.sales {
		if s.UserID == userID && s.Status == StatusCompleted && s.CompletedAt != nil && !s.CompletedAt.Before(since) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memClients struct {
	items map[id.ID]*client.Client
}

func newMemClients(cs ...*client.Client) *memClients {
	m := &memClients{items: make(map[id.ID]*client.Client)}
	for _, c := range cs {
		m.items[c.ID] = c
	}
	return m
}

func (m *memClients) Create(ctx context.Context, c *client.Client) error {
	m.items[c.ID] = c
	return nil
}

func (m *memClients) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	c, ok := m.items[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID.String())
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) GetByName(ctx context.Context, name string) (*client.Client, error) {
	for _, c := range m.items {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("client", name)
}

func (m *memClients) Update(ctx context.Context, c *client.Client) error {
	m.items[c.ID] = c
	return nil
}

func (m *memClients) List(ctx context.Context, search string, limit, offset int) ([]*client.Client, error) {
	var out []*client.Client
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, nil
}

func (m *memClients) AddPoints(ctx context.Context, clientID id.ID, delta int64) error {
	c, ok := m.items[clientID]
	if !ok {
		return apperror.NewNotFound("client", clientID.String())
	}
	if c.Points+delta < 0 {
		return apperror.NewInsufficientPoints(clientID.String(), -delta, c.Points)
	}
	c.Points += delta
	return nil
}

// --- fixtures ---

func testTenant() tenant.Tenant {
	return tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
}

func testContext(t tenant.Tenant, userID id.ID) context.Context {
	ctx := tenant.WithTenant(context.Background(), t)
	return appctx.WithUser(ctx, &appctx.UserContext{
		UserID:    userID.String(),
		SiteID:    t.SiteID.String(),
		CompanyID: t.CompanyID.String(),
	})
}

func aspirin(t tenant.Tenant, stock types.Quantity) *product.Product {
	p := product.New(t, "Aspirin 500mg", types.MustMoney("2.50"))
	p.Stock = stock
	p.MinStock = 5
	boxPrice := types.MustMoney("22.00")
	boxFactor := types.Quantity(10)
	p.BoxPrice = &boxPrice
	p.BoxFactor = &boxFactor
	return p
}

func newTestEngine(products *memProducts, clients *memClients) (*Engine, *memSales) {
	sales := newMemSales()
	e := NewEngine(sales, products, clients, nopTx{}, DefaultOptions())
	return e, sales
}

// --- tests ---

func TestAddItem_ReservesStockAndPrices(t *testing.T) {
	tn := testTenant()
	userID := id.New()
	ctx := testContext(tn, userID)

	p := aspirin(tn, 100)
	products := newMemProducts(p)
	e, _ := newTestEngine(products, newMemClients())

	s, err := e.AddItem(ctx, p.ID, 3, product.UnitBase)
	require.NoError(t, err)

	require.Len(t, s.Lines, 1)
	l := s.Lines[0]
	assert.Equal(t, int64(3), l.Quantity)
	assert.True(t, l.UnitPrice.Equal(types.MustMoney("2.50")))
	assert.True(t, l.Subtotal.Equal(types.MustMoney("7.50")))
	assert.Equal(t, types.Quantity(97), products.items[p.ID].Stock)
	assert.True(t, s.Subtotal.Equal(types.MustMoney("7.50")))
}

func TestAddItem_MergesSameProductUnit(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 100)
	products := newMemProducts(p)
	e, _ := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 2, product.UnitBase)
	require.NoError(t, err)
	s, err := e.AddItem(ctx, p.ID, 3, product.UnitBase)
	require.NoError(t, err)

	require.Len(t, s.Lines, 1)
	assert.Equal(t, int64(5), s.Lines[0].Quantity)
	assert.Equal(t, types.Quantity(95), products.items[p.ID].Stock)
}

func TestAddItem_InsufficientStockLeavesCartUnchanged(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 2)
	products := newMemProducts(p)
	e, sales := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 3, product.UnitBase)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, types.Quantity(2), products.items[p.ID].Stock, "stock must not move")
	assert.Empty(t, sales.lines, "no line may be written")
}

func TestAddItem_UnknownUnitRejected(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())
	p := aspirin(tn, 10)
	e, _ := newTestEngine(newMemProducts(p), newMemClients())

	_, err := e.AddItem(ctx, p.ID, 1, product.Unit("pallet"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestAddItem_TierNotConfigured(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())
	p := aspirin(tn, 50) // has box tier, no blister tier
	e, _ := newTestEngine(newMemProducts(p), newMemClients())

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBlister)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestUpdateQuantity_AutoTierPromotion(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 100) // box = 10 units at 22.00
	products := newMemProducts(p)
	e, _ := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBase)
	require.NoError(t, err)

	s, err := e.UpdateQuantity(ctx, p.ID, 10)
	require.NoError(t, err)

	require.Len(t, s.Lines, 1)
	l := s.Lines[0]
	assert.Equal(t, product.UnitBox, l.Unit, "ten base units promote to one box")
	assert.Equal(t, int64(1), l.Quantity)
	assert.Equal(t, types.Quantity(10), l.Factor)
	assert.True(t, l.UnitPrice.Equal(types.MustMoney("22.00")))
	assert.True(t, l.Subtotal.Equal(types.MustMoney("22.00")))
	assert.Equal(t, types.Quantity(90), products.items[p.ID].Stock)
}

func TestUpdateQuantity_StockConservation(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 20)
	products := newMemProducts(p)
	e, _ := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 5, product.UnitBase)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(15), products.items[p.ID].Stock)

	_, err = e.UpdateQuantity(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(18), products.items[p.ID].Stock, "shrinking releases the difference")

	_, err = e.UpdateQuantity(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(13), products.items[p.ID].Stock, "growing reserves the difference")
}

func TestUpdateQuantity_BeyondStockKeepsLine(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 8)
	products := newMemProducts(p)
	e, sales := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 5, product.UnitBase)
	require.NoError(t, err)

	_, err = e.UpdateQuantity(ctx, p.ID, 9)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Line and reserved stock stay where they were.
	assert.Equal(t, types.Quantity(3), products.items[p.ID].Stock)
	for _, l := range sales.lines {
		assert.Equal(t, int64(5), l.Quantity)
	}
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 20)
	products := newMemProducts(p)
	e, sales := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 4, product.UnitBase)
	require.NoError(t, err)

	s, err := e.UpdateQuantity(ctx, p.ID, 0)
	require.NoError(t, err)

	assert.Empty(t, s.Lines)
	assert.Empty(t, sales.lines)
	assert.Equal(t, types.Quantity(20), products.items[p.ID].Stock, "all reserved stock returns")
}

func TestChangeUnit_RepricesAndAdjustsStock(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 50)
	products := newMemProducts(p)
	e, _ := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 2, product.UnitBase)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(48), products.items[p.ID].Stock)

	s, err := e.ChangeUnit(ctx, p.ID, product.UnitBox)
	require.NoError(t, err)

	l := s.Lines[0]
	assert.Equal(t, product.UnitBox, l.Unit)
	assert.Equal(t, int64(2), l.Quantity, "quantity survives the unit switch")
	assert.True(t, l.UnitPrice.Equal(types.MustMoney("22.00")))
	assert.Equal(t, types.Quantity(30), products.items[p.ID].Stock, "2 boxes reserve 20 base units")
}

func TestRemoveItem_ReleasesStock(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 30)
	products := newMemProducts(p)
	e, sales := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 6, product.UnitBase)
	require.NoError(t, err)

	s, err := e.RemoveItem(ctx, p.ID)
	require.NoError(t, err)

	assert.Empty(t, s.Lines)
	assert.Empty(t, sales.lines)
	assert.Equal(t, types.Quantity(30), products.items[p.ID].Stock)
}

func TestCancel_RestoresAllStock(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p1 := aspirin(tn, 40)
	p2 := product.New(tn, "Ibuprofen 400mg", types.MustMoney("3.80"))
	p2.Stock = 15
	products := newMemProducts(p1, p2)
	e, sales := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p1.ID, 10, product.UnitBase)
	require.NoError(t, err)
	_, err = e.AddItem(ctx, p2.ID, 5, product.UnitBase)
	require.NoError(t, err)

	require.NoError(t, e.Cancel(ctx))

	assert.Equal(t, types.Quantity(40), products.items[p1.ID].Stock)
	assert.Equal(t, types.Quantity(15), products.items[p2.ID].Stock)

	for _, s := range sales.sales {
		assert.Equal(t, StatusCancelled, s.Status)
		assert.True(t, s.AmountDue.IsZero())
	}
}

func TestCancel_ThenNewCartStartsEmpty(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 10)
	e, _ := newTestEngine(newMemProducts(p), newMemClients())

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBase)
	require.NoError(t, err)
	require.NoError(t, e.Cancel(ctx))

	s, err := e.FindOrCreatePending(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Lines)
	assert.Equal(t, client.WalkIn, s.ClientName)
}

func TestRedeemPoints_RequiresClient(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 10)
	e, _ := newTestEngine(newMemProducts(p), newMemClients())

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBase)
	require.NoError(t, err)

	_, err = e.RedeemPoints(ctx, RedeemedItem{ID: id.New(), Name: "Paracetamol gift", PointsCost: 50})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestRedeemPoints_BalanceCoversAllRedemptions(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 10)
	c := client.New(tn, "Maria Lopez")
	c.Points = 120
	clients := newMemClients(c)
	e, _ := newTestEngine(newMemProducts(p), clients)

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBase)
	require.NoError(t, err)
	_, err = e.AttachClient(ctx, &c.ID)
	require.NoError(t, err)

	s, err := e.RedeemPoints(ctx, RedeemedItem{ID: id.New(), Name: "Vitamin C", PointsCost: 80})
	require.NoError(t, err)
	assert.Equal(t, int64(80), s.RedeemedPoints())

	// Second redemption would need 160 total against a balance of 120.
	_, err = e.RedeemPoints(ctx, RedeemedItem{ID: id.New(), Name: "Vitamin C", PointsCost: 80})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientPoints(err))

	// No points move before completion.
	assert.Equal(t, int64(120), clients.items[c.ID].Points)
}

func TestSetDiscount_MutualExclusion(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 100)
	e, _ := newTestEngine(newMemProducts(p), newMemClients())
	_, err := e.AddItem(ctx, p.ID, 4, product.UnitBase)
	require.NoError(t, err)

	s, err := e.SetDiscount(ctx, types.MustMoney("10"), types.Zero())
	require.NoError(t, err)
	assert.True(t, s.DiscountPercent.Equal(types.MustMoney("10")))

	// A fixed amount replaces the percentage.
	s, err = e.SetDiscount(ctx, types.Zero(), types.MustMoney("2.00"))
	require.NoError(t, err)
	assert.True(t, s.DiscountAmount.Equal(types.MustMoney("2.00")))
	assert.True(t, s.DiscountPercent.IsZero(), "percent: %s", s.DiscountPercent)

	// And a percentage replaces the fixed amount.
	s, err = e.SetDiscount(ctx, types.MustMoney("5"), types.Zero())
	require.NoError(t, err)
	assert.True(t, s.DiscountPercent.Equal(types.MustMoney("5")))
	assert.True(t, s.DiscountAmount.IsZero(), "amount: %s", s.DiscountAmount)
}

func TestSale_DiscountSetters(t *testing.T) {
	s := NewPending(testTenant(), id.New())

	require.NoError(t, s.SetDiscountAmount(types.MustMoney("3.50")))
	require.NoError(t, s.SetDiscountPercent(types.MustMoney("15")))
	assert.True(t, s.DiscountAmount.IsZero())

	require.NoError(t, s.SetDiscountAmount(types.MustMoney("1.00")))
	assert.True(t, s.DiscountPercent.IsZero())

	assert.Error(t, s.SetDiscountPercent(types.MustMoney("101")))
	assert.Error(t, s.SetDiscountPercent(types.MustMoney("-1")))
	assert.Error(t, s.SetDiscountAmount(types.MustMoney("-0.01")))
}

func TestAttachClient_DetachBlockedWithRedemptions(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 10)
	c := client.New(tn, "Maria Lopez")
	c.Points = 100
	e, _ := newTestEngine(newMemProducts(p), newMemClients(c))

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBase)
	require.NoError(t, err)
	_, err = e.AttachClient(ctx, &c.ID)
	require.NoError(t, err)
	_, err = e.RedeemPoints(ctx, RedeemedItem{ID: id.New(), Name: "Gift", PointsCost: 40})
	require.NoError(t, err)

	_, err = e.AttachClient(ctx, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestFinalize_EmptySaleRejected(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())
	e, _ := newTestEngine(newMemProducts(), newMemClients())

	_, err := e.FindOrCreatePending(ctx)
	require.NoError(t, err)

	_, _, err = e.Finalize(ctx, PayCash, types.Zero())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestFinalize_CompletesAndCounts(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 100)
	products := newMemProducts(p)
	e, sales := newTestEngine(products, newMemClients())

	_, err := e.AddItem(ctx, p.ID, 4, product.UnitBase) // 10.00
	require.NoError(t, err)

	s, totals, err := e.Finalize(ctx, PayCash, types.MustMoney("20.00"))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.CompletedAt)
	assert.True(t, totals.AmountDue.Equal(types.MustMoney("10.00")))
	assert.True(t, totals.Change.Equal(types.MustMoney("10.00")))
	assert.Equal(t, types.Quantity(4), products.items[p.ID].UnitsSold)

	stored := sales.sales[s.ID]
	assert.Equal(t, StatusCompleted, stored.Status)

	// The draft is gone: a new cart starts fresh.
	next, err := e.FindOrCreatePending(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, next.ID)
}

func TestFinalize_TenderBelowDueRejected(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 100)
	e, _ := newTestEngine(newMemProducts(p), newMemClients())

	_, err := e.AddItem(ctx, p.ID, 4, product.UnitBase) // 10.00
	require.NoError(t, err)

	_, _, err = e.Finalize(ctx, PayCash, types.MustMoney("5.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestFinalize_MutationAfterCompletionRejected(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 100)
	e, sales := newTestEngine(newMemProducts(p), newMemClients())

	_, err := e.AddItem(ctx, p.ID, 1, product.UnitBase)
	require.NoError(t, err)
	s, _, err := e.Finalize(ctx, PayMobileWallet, types.Zero())
	require.NoError(t, err)

	// Force the completed sale back as the lookup result to prove the
	// status guard, not just the pending-only query.
	completed := sales.sales[s.ID]
	err = completed.CanMutate()
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeSaleNotPending))
}

// recordingNotifier captures finalize side effects.
type recordingNotifier struct {
	lowStock  []id.ID
	largeSale []id.ID
}

func (r *recordingNotifier) NotifyLowStock(ctx context.Context, productID id.ID, name string, stock, minStock types.Quantity) {
	r.lowStock = append(r.lowStock, productID)
}

func (r *recordingNotifier) NotifyLargeSale(ctx context.Context, saleID id.ID, amount types.Money) {
	r.largeSale = append(r.largeSale, saleID)
}

func TestFinalize_SideEffects(t *testing.T) {
	tn := testTenant()
	ctx := testContext(tn, id.New())

	p := aspirin(tn, 6) // min stock 5: selling 2 drops it to 4
	bigPrice := types.MustMoney("300.00")
	p.Price = bigPrice
	products := newMemProducts(p)

	e, _ := newTestEngine(products, newMemClients())
	notifier := &recordingNotifier{}
	bus := events.NewBus()
	var published []events.SaleCompleted
	bus.SubscribeSaleCompleted(func(ctx context.Context, ev events.SaleCompleted) {
		published = append(published, ev)
	})
	e.WithNotifier(notifier).WithBus(bus)

	_, err := e.AddItem(ctx, p.ID, 2, product.UnitBase) // 600.00, above the 500 threshold
	require.NoError(t, err)

	s, totals, err := e.Finalize(ctx, PayMobileWallet, types.Zero())
	require.NoError(t, err)

	assert.Equal(t, []id.ID{p.ID}, notifier.lowStock)
	assert.Equal(t, []id.ID{s.ID}, notifier.largeSale)
	require.Len(t, published, 1)
	assert.Equal(t, s.ID, published[0].SaleID)
	assert.True(t, published[0].AmountDue.Equal(totals.AmountDue))
}
