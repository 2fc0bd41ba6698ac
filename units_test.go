package main

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func unitID(t *testing.T, name string) int64 {
	t.Helper()
	var id int64
	if err := db.QueryRow("SELECT id FROM units WHERE name=?", name).Scan(&id); err != nil {
		t.Fatalf("unit %s missing: %v", name, err)
	}
	return id
}

func TestResolveUnitConversionDirect(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	roll := unitID(t, "roll")
	meter := unitID(t, "meter")

	// Seeded: 1 roll = 305 meters
	res, err := resolveUnitConversion(db, roll, meter, decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Quantity.Equal(decimal.NewFromInt(610)) {
		t.Errorf("want 610, got %s", res.Quantity)
	}
	if res.IsReverse {
		t.Error("direct edge must not be flagged reverse")
	}
}

func TestResolveUnitConversionReverse(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	roll := unitID(t, "roll")
	meter := unitID(t, "meter")

	res, err := resolveUnitConversion(db, meter, roll, decimal.NewFromInt(610))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("want 2, got %s", res.Quantity)
	}
	if !res.IsReverse {
		t.Error("reverse edge must be flagged reverse")
	}
}

func TestResolveUnitConversionRoundTripExact(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	roll := unitID(t, "roll")
	meter := unitID(t, "meter")

	qty := decimal.RequireFromString("3.7")
	there, err := resolveUnitConversion(db, roll, meter, qty)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	back, err := resolveUnitConversion(db, meter, roll, there.Quantity)
	if err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if !back.Quantity.Equal(qty) {
		t.Errorf("round trip drifted: %s -> %s -> %s", qty, there.Quantity, back.Quantity)
	}
}

func TestResolveUnitConversionSameUnit(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	piece := unitID(t, "piece")
	res, err := resolveUnitConversion(db, piece, piece, decimal.NewFromInt(7))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Quantity.Equal(decimal.NewFromInt(7)) || !res.Factor.Equal(decimal.NewFromInt(1)) {
		t.Errorf("identity conversion wrong: qty=%s factor=%s", res.Quantity, res.Factor)
	}
}

func TestResolveUnitConversionMissingEdge(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	piece := unitID(t, "piece")
	box := unitID(t, "box")
	_, err := resolveUnitConversion(db, piece, box, decimal.NewFromInt(1))
	if !errors.Is(err, ErrConversionNotFound) {
		t.Errorf("want ErrConversionNotFound, got %v", err)
	}
}

func TestCreateUnitConversionRejectsSelf(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	piece := unitID(t, "piece")
	_, err := createUnitConversion(db, piece, piece, decimal.NewFromInt(10))
	if !errors.Is(err, ErrSelfConversion) {
		t.Errorf("want ErrSelfConversion, got %v", err)
	}
}

func TestCreateUnitConversionRejectsNonPositiveFactor(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	piece := unitID(t, "piece")
	box := unitID(t, "box")
	for _, f := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-3)} {
		if _, err := createUnitConversion(db, piece, box, f); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("factor %s: want ErrInvalidQuantity, got %v", f, err)
		}
	}
}

func TestCreateUnitConversionRejectsUnknownUnit(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	piece := unitID(t, "piece")
	if _, err := createUnitConversion(db, piece, 9999, decimal.NewFromInt(10)); !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("want ErrUnitNotFound, got %v", err)
	}
}

func TestCreateUnitConversionDuplicatePair(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	piece := unitID(t, "piece")
	box := unitID(t, "box")
	if _, err := createUnitConversion(db, box, piece, decimal.NewFromInt(24)); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := createUnitConversion(db, box, piece, decimal.NewFromInt(12))
	if !isUniqueViolation(err) {
		t.Errorf("want unique violation, got %v", err)
	}
}

func TestCreateUnitConversionFractionalFactor(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	box := unitID(t, "box")
	piece := unitID(t, "piece")
	f := decimal.RequireFromString("2.5")
	if _, err := createUnitConversion(db, box, piece, f); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	res, err := resolveUnitConversion(db, box, piece, decimal.NewFromInt(4))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("want 10, got %s", res.Quantity)
	}
}
