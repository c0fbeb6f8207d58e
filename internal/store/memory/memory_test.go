package memory

import (
	"context"
	"errors"
	"testing"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/store"
)

func TestSearchProductsExactSKUFirst(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.SearchProducts(ctx, "TIL-6060", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(products) == 0 || products[0].SKUCode != "TIL-6060" {
		t.Fatalf("exact SKU must sort first, got %+v", products)
	}

	products, err = s.SearchProducts(ctx, "kajaria", 10)
	if err != nil {
		t.Fatalf("company search failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 Kajaria products, got %d", len(products))
	}

	products, err = s.SearchProducts(ctx, "   ", 10)
	if err != nil || products != nil {
		t.Fatalf("blank query must return nothing, got %v %v", products, err)
	}
}

func TestSearchProductsHonorsLimit(t *testing.T) {
	s := NewSeeded()
	products, err := s.SearchProducts(context.Background(), "tile", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("limit not applied, got %d", len(products))
	}
}

func TestSaveQuotationAssignsSequentialVouchers(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	first, err := s.SaveQuotation(ctx, domain.Quotation{
		Party: "Sharma Traders",
		Items: []domain.LineItem{{SKUCode: "TIL-6060"}},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := s.SaveQuotation(ctx, domain.Quotation{
		Party: "Mehta Constructions",
		Items: []domain.LineItem{{SKUCode: "GVT-8080"}},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if first.VoucherNo == "" || first.VoucherNo == second.VoucherNo {
		t.Fatalf("voucher numbers must be distinct: %q vs %q", first.VoucherNo, second.VoucherNo)
	}
	if first.ID == second.ID {
		t.Fatalf("ids must be distinct")
	}
}

func TestSaveQuotationUpdatePreservesIdentity(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	saved, err := s.SaveQuotation(ctx, domain.Quotation{
		Party: "Sharma Traders",
		Items: []domain.LineItem{{SKUCode: "TIL-6060"}},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	saved.Remark = "revised"
	updated, err := s.SaveQuotation(ctx, *saved)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.VoucherNo != saved.VoucherNo || !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("update must preserve voucher and created at")
	}

	unknown := *saved
	unknown.ID = "qtn-missing"
	if _, err := s.SaveQuotation(ctx, unknown); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestSaveQuotationRejectsInvalid(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.SaveQuotation(ctx, domain.Quotation{Items: []domain.LineItem{{}}}); !errors.Is(err, store.ErrInvalidQuotation) {
		t.Fatalf("expected ErrInvalidQuotation for missing party, got %v", err)
	}
	if _, err := s.SaveQuotation(ctx, domain.Quotation{Party: "Sharma Traders"}); !errors.Is(err, store.ErrInvalidQuotation) {
		t.Fatalf("expected ErrInvalidQuotation for empty items, got %v", err)
	}
}

func TestListQuotationsFilters(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	for _, party := range []string{"Sharma Traders", "Mehta Constructions", "Sharma Traders"} {
		if _, err := s.SaveQuotation(ctx, domain.Quotation{
			Party: party,
			Items: []domain.LineItem{{SKUCode: "TIL-6060"}},
		}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	all, err := s.ListQuotations(ctx, domain.QuotationFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 quotations, got %d (%v)", len(all), err)
	}

	sharma, err := s.ListQuotations(ctx, domain.QuotationFilter{Party: "sharma traders"})
	if err != nil || len(sharma) != 2 {
		t.Fatalf("party filter failed, got %d (%v)", len(sharma), err)
	}

	limited, err := s.ListQuotations(ctx, domain.QuotationFilter{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit failed, got %d (%v)", len(limited), err)
	}
}

func TestUserLifecycle(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.CreateUser(ctx, domain.UserAccount{Username: "DeskOne", Password: "hash", Role: "sales", Active: true}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.CreateUser(ctx, domain.UserAccount{Username: "deskone", Password: "hash", Role: "sales"}); err == nil {
		t.Fatalf("duplicate username must be rejected")
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	found := false
	for _, u := range users {
		if u.Username == "deskone" {
			found = true
		}
	}
	if !found {
		t.Fatalf("created user missing, got %+v", users)
	}

	if err := s.UpdateUserPassword(ctx, "deskone", "newhash"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if err := s.UpdateUserPassword(ctx, "nobody", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
