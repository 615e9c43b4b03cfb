package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/odyssey-erp/fatoora/internal/app"
	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/invoice"
	"github.com/odyssey-erp/fatoora/internal/platform/cache"
	"github.com/odyssey-erp/fatoora/internal/platform/db"
	"github.com/odyssey-erp/fatoora/internal/settings"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	rdb, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	svc, err := app.NewServices(cfg, pool, rdb, nil, nil, app.NewLogger(cfg))
	if err != nil {
		log.Fatalf("init services: %v", err)
	}

	fmt.Println("→ Registering demo tenant...")
	t, key, err := svc.Tenants.Register(ctx, "Demo Trading Co.")
	if err != nil {
		log.Fatalf("register tenant: %v", err)
	}

	fmt.Println("→ Seeding invoice settings...")
	if _, err := svc.Settings.Upsert(ctx, t.ID, settings.UpsertInput{
		SellerName:   "Demo Trading Co.",
		VATNumber:    "310122393500003",
		CRNumber:     "1010010000",
		Address:      "King Fahd Road",
		City:         "Riyadh",
		FooterText:   "Thank you for your business",
		NumberPrefix: "INV-",
	}); err != nil {
		log.Fatalf("seed settings: %v", err)
	}

	fmt.Println("→ Seeding clients...")
	seeded := make([]clients.Client, 0, 3)
	for _, in := range []clients.Input{
		{Name: "Al Noor Contracting", TaxNumber: "300000000000003", City: "Jeddah", Email: "ap@alnoor.example"},
		{Name: "Walk-in Customer", City: "Riyadh"},
		{Name: "Gulf Logistics", CompanyName: "Gulf Logistics LLC", TaxNumber: "311111111111113", City: "Dammam"},
	} {
		c, err := svc.Clients.Create(ctx, t.ID, in)
		if err != nil {
			log.Fatalf("seed client %s: %v", in.Name, err)
		}
		seeded = append(seeded, c)
	}

	fmt.Println("→ Seeding invoices...")
	today := time.Now().UTC()
	plan := []struct {
		client int
		typ    string
		ageDay int
		status string
		items  []invoice.ItemInput
	}{
		{0, "standard_tax", 45, "paid", []invoice.ItemInput{{Description: "Site survey", Quantity: 1, UnitPrice: 4500}}},
		{0, "standard_tax", 40, "sent", []invoice.ItemInput{
			{Description: "Steel beams", Quantity: 12, UnitPrice: 850},
			{Description: "Delivery", Quantity: 1, UnitPrice: 300},
		}},
		{1, "simplified_tax", 3, "paid", []invoice.ItemInput{{Description: "Office chairs", Quantity: 4, UnitPrice: 275.5}}},
		{2, "standard_tax", 1, "", []invoice.ItemInput{{Description: "Freight forwarding", Quantity: 3, UnitPrice: 1200}}},
		{2, "non_tax", 10, "sent", []invoice.ItemInput{{Description: "Customs disbursement", Quantity: 1, UnitPrice: 2150}}},
	}
	var credited invoice.Invoice
	for i, p := range plan {
		issued := today.AddDate(0, 0, -p.ageDay)
		inv, err := svc.Invoices.Create(ctx, t.ID, invoice.CreateInput{
			Type:      p.typ,
			ClientID:  seeded[p.client].ID.String(),
			IssueDate: issued.Format(time.DateOnly),
			DueDate:   issued.AddDate(0, 0, 30).Format(time.DateOnly),
			Items:     p.items,
		})
		if err != nil {
			log.Fatalf("seed invoice %d: %v", i, err)
		}
		for _, st := range statusPath(p.status) {
			if inv, err = svc.Invoices.UpdateStatus(ctx, t.ID, inv.ID, invoice.StatusInput{Status: st}); err != nil {
				log.Fatalf("seed invoice %s status %s: %v", inv.Number, st, err)
			}
		}
		if i == 0 {
			credited = inv
		}
	}

	fmt.Println("→ Seeding credit note...")
	if _, err := svc.Invoices.CreateCreditNote(ctx, t.ID, credited.ID, invoice.CreditNoteInput{
		Notes: "Partial refund for reduced scope",
		Items: []invoice.ItemInput{{Description: "Site survey (scope reduction)", Quantity: 1, UnitPrice: 1500}},
	}); err != nil {
		log.Fatalf("seed credit note: %v", err)
	}

	fmt.Println("✓ Seed complete")
	fmt.Printf("  tenant_id: %s\n  api_key:   %s\n", t.ID, key)
}

// statusPath lists the transitions that take a draft to target.
func statusPath(target string) []string {
	switch target {
	case "sent":
		return []string{"sent"}
	case "paid":
		return []string{"sent", "paid"}
	default:
		return nil
	}
}
