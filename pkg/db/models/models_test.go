package models

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uncannyvalley/comicshop-backend/pkg/enums"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Saga Vol. 1":        "saga-vol-1",
		"  X-Men '97  ":      "x-men-97",
		"UPPER lower":        "upper-lower",
		"---":                "",
		"Hellboy: Seed #1/2": "hellboy-seed-1-2",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProductNormalize(t *testing.T) {
	p := Product{Title: "Bone: The Complete Edition", Stock: -3, SalesCount: -1}
	p.Normalize()

	if p.Slug != "bone-the-complete-edition" {
		t.Fatalf("unexpected slug %q", p.Slug)
	}
	if p.Stock != 0 || p.SalesCount != 0 {
		t.Fatalf("counters not clamped: stock=%d sales=%d", p.Stock, p.SalesCount)
	}
	if p.IsActive {
		t.Fatal("product without stock must not be active")
	}

	p.Stock = 4
	p.Normalize()
	if !p.IsActive {
		t.Fatal("product with stock must be active")
	}
}

func TestOrderRecalculateTotal(t *testing.T) {
	order := Order{
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("9.99")},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("25.50")},
		},
	}
	order.RecalculateTotal()

	if want := decimal.RequireFromString("45.48"); !order.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", order.Total, want)
	}

	order.Items = nil
	order.RecalculateTotal()
	if !order.Total.IsZero() {
		t.Fatalf("empty order total should be zero, got %s", order.Total)
	}
}

func TestUserRoleDerivation(t *testing.T) {
	tests := []struct {
		name string
		user User
		want enums.UserRole
	}{
		{"superuser wins", User{IsSuperuser: true, IsStaff: true, GroupNames: []string{GroupOwner}}, enums.UserRoleSuperadmin},
		{"owner group beats staff", User{IsStaff: true, GroupNames: []string{GroupOwner}}, enums.UserRoleOwner},
		{"staff flag", User{IsStaff: true}, enums.UserRoleStaff},
		{"default customer", User{}, enums.UserRoleCustomer},
	}
	for _, tt := range tests {
		if got := tt.user.Role(); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("4.25")}
	if want := decimal.RequireFromString("12.75"); !item.Subtotal().Equal(want) {
		t.Fatalf("subtotal = %s, want %s", item.Subtotal(), want)
	}
}
