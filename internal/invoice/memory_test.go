package invoice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/settings"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*Invoice
	items    map[uuid.UUID][]Item
	counters map[uuid.UUID]int
	keys     map[string]bool
	clients  *fakeClients
	ticks    int
}

func newMemoryRepo(c *fakeClients) *memoryRepo {
	return &memoryRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		items:    make(map[uuid.UUID][]Item),
		counters: make(map[uuid.UUID]int),
		keys:     make(map[string]bool),
		clients:  c,
	}
}

func (m *memoryRepo) tick() time.Time {
	m.ticks++
	return time.Date(2024, 1, 1, 0, 0, m.ticks, 0, time.UTC)
}

func (m *memoryRepo) CreateWithItems(_ context.Context, prefix string, inv Invoice, items []Item, key string) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key != "" {
		k := inv.TenantID.String() + "/" + key
		if m.keys[k] {
			return Invoice{}, shared.ErrIdempotencyConflict
		}
		m.keys[k] = true
	}
	m.counters[inv.TenantID]++
	inv.ID = uuid.New()
	inv.Number = fmt.Sprintf("%s%06d", prefix, m.counters[inv.TenantID])
	inv.CreatedAt = m.tick()
	inv.UpdatedAt = inv.CreatedAt
	stored := make([]Item, len(items))
	for i, it := range items {
		it.ID = uuid.New()
		it.InvoiceID = inv.ID
		it.Position = i + 1
		stored[i] = it
	}
	m.invoices[inv.ID] = &inv
	m.items[inv.ID] = stored
	return inv, nil
}

func (m *memoryRepo) Get(_ context.Context, tenantID, id uuid.UUID) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID || inv.DeletedAt != nil {
		return Invoice{}, ErrNotFound
	}
	return *inv, nil
}

func (m *memoryRepo) Items(_ context.Context, tenantID, id uuid.UUID) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invoices[id]; !ok || inv.TenantID != tenantID {
		return nil, nil
	}
	return append([]Item(nil), m.items[id]...), nil
}

func (m *memoryRepo) List(_ context.Context, tenantID uuid.UUID, f ListFilter, today time.Time, limit, offset int) ([]ListRow, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []ListRow
	for _, inv := range m.invoices {
		if inv.TenantID != tenantID || inv.DeletedAt != nil {
			continue
		}
		switch f.Status {
		case "":
		case StatusOverdue:
			if inv.DisplayStatus(today) != StatusOverdue {
				continue
			}
		default:
			if inv.Status != f.Status {
				continue
			}
		}
		if f.Kind != "" && inv.Kind != f.Kind {
			continue
		}
		if f.Type != "" && inv.Type != f.Type {
			continue
		}
		if f.ClientID != nil && inv.ClientID != *f.ClientID {
			continue
		}
		c := m.clients.rows[inv.ClientID]
		if f.Search != "" && !strings.Contains(inv.Number, f.Search) && !strings.Contains(c.Name, f.Search) {
			continue
		}
		row := ListRow{Invoice: *inv, ClientName: c.Name, ClientTaxNumber: c.TaxNumber}
		if inv.RelatedInvoiceID != nil {
			row.OriginalNumber = m.invoices[*inv.RelatedInvoiceID].Number
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Number < matched[j].Number })
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, tenantID, id uuid.UUID, from, to Status) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID || inv.Status != from {
		return Invoice{}, ErrInvalidTransition
	}
	inv.Status = to
	inv.UpdatedAt = m.tick()
	return *inv, nil
}

func (m *memoryRepo) Update(_ context.Context, in Invoice) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[in.ID]
	if !ok || inv.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}
	in.UpdatedAt = m.tick()
	*inv = in
	return in, nil
}

func (m *memoryRepo) ReplaceItems(_ context.Context, in Invoice, items []Item) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[in.ID]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if inv.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}
	inv.Subtotal, inv.TaxRate, inv.VATAmount, inv.TotalAmount = in.Subtotal, in.TaxRate, in.VATAmount, in.TotalAmount
	inv.UpdatedAt = m.tick()
	m.items[in.ID] = items
	return *inv, nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID || inv.Status != StatusDraft {
		return ErrNotDraft
	}
	now := m.tick()
	inv.DeletedAt = &now
	return nil
}

func (m *memoryRepo) CreditedTotal(_ context.Context, tenantID, id uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, inv := range m.invoices {
		if inv.TenantID != tenantID || inv.RelatedInvoiceID == nil || *inv.RelatedInvoiceID != id {
			continue
		}
		if inv.Kind == taxrule.KindCreditNote && inv.Status != StatusCancelled && inv.DeletedAt == nil {
			sum = sum.Add(inv.TotalAmount)
		}
	}
	return sum, nil
}

type fakeClients struct {
	rows map[uuid.UUID]clients.Client
}

func newFakeClients() *fakeClients {
	return &fakeClients{rows: make(map[uuid.UUID]clients.Client)}
}

func (f *fakeClients) add(tenantID uuid.UUID, name, taxNumber string) clients.Client {
	c := clients.Client{ID: uuid.New(), TenantID: tenantID, Name: name, TaxNumber: taxNumber, City: "Riyadh", Status: clients.StatusActive}
	f.rows[c.ID] = c
	return c
}

func (f *fakeClients) Get(_ context.Context, tenantID, id uuid.UUID) (clients.Client, error) {
	c, ok := f.rows[id]
	if !ok || c.TenantID != tenantID {
		return clients.Client{}, clients.ErrNotFound
	}
	return c, nil
}

func (f *fakeClients) GetInvoiceable(ctx context.Context, tenantID, id uuid.UUID) (clients.Client, error) {
	c, err := f.Get(ctx, tenantID, id)
	if err != nil {
		return clients.Client{}, err
	}
	if !c.Invoiceable() {
		return clients.Client{}, clients.ErrClientUnavailable
	}
	return c, nil
}

type fakeSettings struct {
	st settings.Settings
}

func (f *fakeSettings) Get(_ context.Context, tenantID uuid.UUID) (settings.Settings, error) {
	st := f.st
	st.TenantID = tenantID
	return st, nil
}

func readySettings() *fakeSettings {
	st := settings.Defaults(uuid.Nil)
	st.SellerName = "Acme"
	st.VATNumber = "300000000000003"
	st.CRNumber = "1010010000"
	st.FooterText = "Thank you"
	return &fakeSettings{st: st}
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context, uuid.UUID) error {
	c.calls++
	return nil
}

type recordingEnqueuer struct {
	ids []uuid.UUID
}

func (r *recordingEnqueuer) EnqueueInvoiceRender(_ context.Context, _, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return nil
}
