package validator

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"sharebasket/pkg/model"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidateNew(t *testing.T) {
	v := NewItemValidator()

	tests := []struct {
		name      string
		item      *model.NewItem
		wantError bool
		wantField string
	}{
		{
			name: "valid item",
			item: &model.NewItem{Product: "milk", Price: price("1.50"), Quantity: 2, AddedBy: "Alice"},
		},
		{
			name: "free item",
			item: &model.NewItem{Product: "sample", Price: price("0"), Quantity: 1, AddedBy: "Alice"},
		},
		{
			name:      "missing product",
			item:      &model.NewItem{Price: price("1"), Quantity: 1, AddedBy: "Alice"},
			wantError: true,
			wantField: "product",
		},
		{
			name:      "missing price",
			item:      &model.NewItem{Product: "milk", Quantity: 1, AddedBy: "Alice"},
			wantError: true,
			wantField: "price",
		},
		{
			name:      "negative price",
			item:      &model.NewItem{Product: "milk", Price: price("-0.01"), Quantity: 1, AddedBy: "Alice"},
			wantError: true,
			wantField: "price",
		},
		{
			name:      "zero quantity",
			item:      &model.NewItem{Product: "milk", Price: price("1"), Quantity: 0, AddedBy: "Alice"},
			wantError: true,
			wantField: "quantity",
		},
		{
			name:      "missing added_by",
			item:      &model.NewItem{Product: "milk", Price: price("1"), Quantity: 1},
			wantError: true,
			wantField: "added_by",
		},
		{
			name:      "added_by too long",
			item:      &model.NewItem{Product: "milk", Price: price("1"), Quantity: 1, AddedBy: strings.Repeat("a", 101)},
			wantError: true,
			wantField: "added_by",
		},
		{
			name:      "product too long",
			item:      &model.NewItem{Product: strings.Repeat("x", 201), Price: price("1"), Quantity: 1, AddedBy: "Alice"},
			wantError: true,
			wantField: "product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateNew(tt.item)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateNew() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError {
				return
			}
			errs, ok := err.(ValidationErrors)
			if !ok {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateNew_Messages(t *testing.T) {
	v := NewItemValidator()

	err := v.ValidateNew(&model.NewItem{Product: "milk", Price: price("-1"), Quantity: 1, AddedBy: "Alice"})
	errs, ok := err.(ValidationErrors)
	if !ok || len(errs) != 1 {
		t.Fatalf("unexpected result: %v", err)
	}
	if errs[0].Message != "must not be negative" {
		t.Errorf("message = %q", errs[0].Message)
	}
}
