package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

var testNow = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)

type fixture struct {
	tenant   uuid.UUID
	repo     *memoryRepo
	clients  *fakeClients
	settings *fakeSettings
	svc      *Service
	org      clients.Client
	person   clients.Client
}

func newFixture() *fixture {
	f := &fixture{tenant: uuid.New(), clients: newFakeClients(), settings: readySettings()}
	f.repo = newMemoryRepo(f.clients)
	f.org = f.clients.add(f.tenant, "Client Co", "311111111111113")
	f.person = f.clients.add(f.tenant, "Sara", "")
	f.svc = NewService(f.repo, f.clients, f.settings, nil).WithClock(func() time.Time { return testNow })
	return f
}

func (f *fixture) createInput(typ string) CreateInput {
	return CreateInput{
		Type:     typ,
		ClientID: f.org.ID.String(),
		Items:    []ItemInput{{Description: "Consulting", Quantity: 2, UnitPrice: 100}},
	}
}

func (f *fixture) issued(t *testing.T, typ string) Invoice {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), f.tenant, f.createInput(typ))
	require.NoError(t, err)
	inv, err = f.svc.UpdateStatus(context.Background(), f.tenant, inv.ID, StatusInput{Status: "sent"})
	require.NoError(t, err)
	return inv
}

func TestCreateStandardTax(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.Create(context.Background(), f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", inv.Number)
	assert.Equal(t, StatusDraft, inv.Status)
	assert.Equal(t, taxrule.KindInvoice, inv.Kind)
	assert.Equal(t, "2024-01-01", inv.IssueDate.Format(dateLayout))
	assert.Equal(t, "2024-01-31", inv.DueDate.Format(dateLayout))
	assert.True(t, inv.TaxRate.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "200.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", inv.VATAmount.StringFixed(2))
	assert.Equal(t, "230.00", inv.TotalAmount.StringFixed(2))

	items, err := f.repo.Items(context.Background(), f.tenant, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "200.00", items[0].Total.StringFixed(2))

	second, err := f.svc.Create(context.Background(), f.tenant, f.createInput("simplified_tax"))
	require.NoError(t, err)
	assert.Equal(t, "INV-000002", second.Number)
}

func TestCreateNonTaxForcesZeroRate(t *testing.T) {
	f := newFixture()
	in := f.createInput("non_tax")
	rate := decimal.NewFromInt(15)
	in.TaxRate = &rate
	inv, err := f.svc.Create(context.Background(), f.tenant, in)
	require.NoError(t, err)
	assert.True(t, inv.TaxRate.IsZero())
	assert.Equal(t, "0.00", inv.VATAmount.StringFixed(2))
	assert.Equal(t, "200.00", inv.TotalAmount.StringFixed(2))
}

func TestCreateWithZATCADisabledStoresNoVAT(t *testing.T) {
	f := newFixture()
	f.svc.WithZATCA(false)
	inv, err := f.svc.Create(context.Background(), f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)
	assert.Equal(t, taxrule.StandardTax, inv.Type)
	assert.True(t, inv.VATAmount.IsZero())
	assert.Equal(t, "200.00", inv.TotalAmount.StringFixed(2))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()

	in := f.createInput("proforma")
	_, err := f.svc.Create(context.Background(), f.tenant, in)
	require.ErrorIs(t, err, httpx.ErrValidation)

	in = f.createInput("standard_tax")
	in.Items = nil
	_, err = f.svc.Create(context.Background(), f.tenant, in)
	require.ErrorIs(t, err, httpx.ErrValidation)

	in = f.createInput("standard_tax")
	in.Items[0].Quantity = 0
	_, err = f.svc.Create(context.Background(), f.tenant, in)
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "items[0].quantity")

	in = f.createInput("standard_tax")
	in.IssueDate = "2024-02-10"
	in.DueDate = "2024-02-01"
	_, err = f.svc.Create(context.Background(), f.tenant, in)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "due_date")

	in = f.createInput("standard_tax")
	rate := decimal.NewFromInt(120)
	in.TaxRate = &rate
	_, err = f.svc.Create(context.Background(), f.tenant, in)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRejectsUnavailableClient(t *testing.T) {
	f := newFixture()
	c := f.clients.rows[f.person.ID]
	c.Status = clients.StatusInactive
	f.clients.rows[c.ID] = c

	in := f.createInput("simplified_tax")
	in.ClientID = c.ID.String()
	_, err := f.svc.Create(context.Background(), f.tenant, in)
	require.ErrorIs(t, err, clients.ErrClientUnavailable)
}

func TestCreateIdempotencyKey(t *testing.T) {
	f := newFixture()
	in := f.createInput("standard_tax")
	in.IdempotencyKey = "req-1"
	_, err := f.svc.Create(context.Background(), f.tenant, in)
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.tenant, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture()
	enq := &recordingEnqueuer{}
	f.svc.WithEnqueuer(enq)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.tenant, inv.ID, StatusInput{Status: "paid"})
	require.ErrorIs(t, err, ErrInvalidTransition)

	sent, err := f.svc.UpdateStatus(ctx, f.tenant, inv.ID, StatusInput{Status: "sent"})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)
	assert.Equal(t, []uuid.UUID{inv.ID}, enq.ids)

	paid, err := f.svc.UpdateStatus(ctx, f.tenant, inv.ID, StatusInput{Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)

	_, err = f.svc.UpdateStatus(ctx, f.tenant, inv.ID, StatusInput{Status: "draft"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusSent))
	assert.True(t, CanTransition(StatusDraft, StatusCancelled))
	assert.True(t, CanTransition(StatusSent, StatusPaid))
	assert.True(t, CanTransition(StatusSent, StatusCancelled))
	assert.False(t, CanTransition(StatusPaid, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusDraft))
	assert.False(t, CanTransition(StatusDraft, StatusPaid))
}

func TestDisplayStatusOverdue(t *testing.T) {
	inv := Invoice{Status: StatusSent, DueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, StatusSent, inv.DisplayStatus(time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, StatusOverdue, inv.DisplayStatus(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)))
	inv.Status = StatusPaid
	assert.Equal(t, StatusPaid, inv.DisplayStatus(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDraftOnlyMutations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.issued(t, "standard_tax")

	err := f.svc.Delete(ctx, f.tenant, inv.ID)
	require.ErrorIs(t, err, ErrNotDraft)

	_, err = f.svc.ReplaceItems(ctx, f.tenant, inv.ID, ReplaceItemsInput{Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 1}}})
	require.ErrorIs(t, err, ErrNotDraft)

	notes := "changed"
	_, err = f.svc.Update(ctx, f.tenant, inv.ID, UpdateInput{Notes: &notes})
	require.ErrorIs(t, err, ErrNotDraft)
}

func TestReplaceItemsRecomputesTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)

	updated, err := f.svc.ReplaceItems(ctx, f.tenant, inv.ID, ReplaceItemsInput{Items: []ItemInput{
		{Description: "Hosting", Quantity: 3, UnitPrice: 10.5},
		{Description: "Setup", Quantity: 1, UnitPrice: 50},
	}})
	require.NoError(t, err)
	assert.Equal(t, "81.50", updated.Subtotal.StringFixed(2))
	assert.Equal(t, "12.23", updated.VATAmount.StringFixed(2))
	assert.Equal(t, "93.73", updated.TotalAmount.StringFixed(2))

	_, items, err := f.svc.Get(ctx, f.tenant, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Hosting", items[0].Description)
}

func TestUpdateDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.tenant, f.createInput("simplified_tax"))
	require.NoError(t, err)

	notes := "  paid by transfer "
	updated, err := f.svc.Update(ctx, f.tenant, inv.ID, UpdateInput{
		ClientID:  f.person.ID.String(),
		IssueDate: "2024-01-05",
		DueDate:   "2024-01-20",
		IssueTime: "09:30:00",
		Notes:     &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, f.person.ID, updated.ClientID)
	assert.Equal(t, "2024-01-05", updated.IssueDate.Format(dateLayout))
	assert.Equal(t, "paid by transfer", updated.Notes)
	require.NotNil(t, updated.IssueTime)
	assert.Equal(t, "09:30:00", *updated.IssueTime)
	assert.Equal(t, "230.00", updated.TotalAmount.StringFixed(2))

	_, err = f.svc.Update(ctx, f.tenant, inv.ID, UpdateInput{DueDate: "2023-12-01"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.tenant, inv.ID))
	_, _, err = f.svc.Get(ctx, f.tenant, inv.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreditNote(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)
	_, err = f.svc.CreateCreditNote(ctx, f.tenant, draft.ID, CreditNoteInput{})
	require.ErrorIs(t, err, ErrOriginalNotIssued)

	orig := f.issued(t, "standard_tax")
	note, err := f.svc.CreateCreditNote(ctx, f.tenant, orig.ID, CreditNoteInput{Notes: "returned"})
	require.NoError(t, err)
	assert.Equal(t, taxrule.KindCreditNote, note.Kind)
	assert.Equal(t, taxrule.StandardTax, note.Type)
	require.NotNil(t, note.RelatedInvoiceID)
	assert.Equal(t, orig.ID, *note.RelatedInvoiceID)
	assert.Equal(t, "230.00", note.TotalAmount.StringFixed(2))
	assert.Equal(t, "-230.00", note.SignedTotal().StringFixed(2))
	assert.Equal(t, "30.00", note.VATAmount.StringFixed(2))

	_, err = f.svc.CreateCreditNote(ctx, f.tenant, orig.ID, CreditNoteInput{
		Items: []ItemInput{{Description: "extra", Quantity: 1, UnitPrice: 1}},
	})
	require.ErrorIs(t, err, ErrCreditExceedsOriginal)

	_, err = f.svc.UpdateStatus(ctx, f.tenant, note.ID, StatusInput{Status: "sent"})
	require.NoError(t, err)
	_, err = f.svc.CreateCreditNote(ctx, f.tenant, note.ID, CreditNoteInput{})
	require.ErrorIs(t, err, ErrCreditOfCredit)
}

func TestPartialCreditNotes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orig := f.issued(t, "non_tax")

	half := CreditNoteInput{Items: []ItemInput{{Description: "Consulting", Quantity: 1, UnitPrice: 100}}}
	_, err := f.svc.CreateCreditNote(ctx, f.tenant, orig.ID, half)
	require.NoError(t, err)
	_, err = f.svc.CreateCreditNote(ctx, f.tenant, orig.ID, half)
	require.NoError(t, err)
	_, err = f.svc.CreateCreditNote(ctx, f.tenant, orig.ID, half)
	require.ErrorIs(t, err, ErrCreditExceedsOriginal)
}

func TestListAndExportRows(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orig := f.issued(t, "standard_tax")
	_, err := f.svc.CreateCreditNote(ctx, f.tenant, orig.ID, CreditNoteInput{})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.tenant, f.createInput("non_tax"))
	require.NoError(t, err)

	rows, page, err := f.svc.List(ctx, f.tenant, ListFilter{Kind: taxrule.KindCreditNote})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, rows, 1)
	assert.Equal(t, orig.Number, rows[0].OriginalNumber)

	rows, _, err = f.svc.List(ctx, f.tenant, ListFilter{Status: StatusSent})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	out, err := f.svc.ExportRows(ctx, f.tenant, ListFilter{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "230.00", out[0].Total.StringFixed(2))
	assert.Equal(t, "-230.00", out[1].Total.StringFixed(2))
	assert.Equal(t, "SAR", out[1].Currency)
	assert.Equal(t, "Client Co", out[2].ClientName)
}

func TestMutationsInvalidateCaches(t *testing.T) {
	f := newFixture()
	inv := &countingInvalidator{}
	f.svc.WithInvalidators(inv)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.tenant, f.createInput("standard_tax"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.tenant, created.ID, StatusInput{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)
}

func TestComputeTotalsSharedPath(t *testing.T) {
	items := []Item{{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)}}
	std := taxrule.Resolve(taxrule.Input{Type: taxrule.StandardTax, ZATCAEnabled: true})
	credit := taxrule.Resolve(taxrule.Input{Type: taxrule.StandardTax, Kind: taxrule.KindCreditNote, ZATCAEnabled: true})

	a := ComputeTotals(decimal.NewFromInt(15), items, std)
	b := ComputeTotals(decimal.NewFromInt(15), items, std)
	assert.Equal(t, a.Total.String(), b.Total.String())

	c := ComputeTotals(decimal.NewFromInt(15), items, credit)
	assert.True(t, c.Total.Equal(a.Total.Neg()))
	assert.True(t, Sign(taxrule.KindCreditNote).Equal(decimal.NewFromInt(-1)))
}
