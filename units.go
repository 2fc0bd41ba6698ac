package main

import (
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrConversionNotFound means neither a direct nor a reverse edge exists
	// between the two units. Multi-hop chains are deliberately not resolved.
	ErrConversionNotFound = errors.New("unit conversion not found")
	// ErrSelfConversion rejects creating an edge from a unit to itself.
	ErrSelfConversion = errors.New("cannot convert a unit to itself")
	ErrUnitNotFound   = errors.New("unit not found")
)

// conversionResult is what the resolver hands back: the converted quantity,
// the effective factor, and whether the inverse of a stored edge was used.
type conversionResult struct {
	Quantity  decimal.Decimal
	Factor    decimal.Decimal
	IsReverse bool
}

// resolveUnitConversion converts qty from one unit to another. A stored edge
// (from, to, f) serves the direct direction as qty*f; the same edge serves
// the reverse direction as qty/f so no second row is needed and the two
// directions stay exact inverses. Quantities are decimals, not floats, so
// repeated conversions don't drift.
func resolveUnitConversion(q dbtx, fromUnitID, toUnitID int64, qty decimal.Decimal) (conversionResult, error) {
	if fromUnitID == toUnitID {
		return conversionResult{Quantity: qty, Factor: decimal.NewFromInt(1)}, nil
	}

	var factorStr string
	err := q.QueryRow("SELECT factor FROM unit_conversions WHERE from_unit_id=? AND to_unit_id=?", fromUnitID, toUnitID).Scan(&factorStr)
	if err == nil {
		factor, ferr := decimal.NewFromString(factorStr)
		if ferr != nil {
			return conversionResult{}, ferr
		}
		return conversionResult{Quantity: qty.Mul(factor), Factor: factor}, nil
	}
	if err != sql.ErrNoRows {
		return conversionResult{}, err
	}

	err = q.QueryRow("SELECT factor FROM unit_conversions WHERE from_unit_id=? AND to_unit_id=?", toUnitID, fromUnitID).Scan(&factorStr)
	if err == sql.ErrNoRows {
		return conversionResult{}, ErrConversionNotFound
	}
	if err != nil {
		return conversionResult{}, err
	}
	factor, ferr := decimal.NewFromString(factorStr)
	if ferr != nil {
		return conversionResult{}, ferr
	}
	return conversionResult{
		Quantity:  qty.Div(factor),
		Factor:    decimal.NewFromInt(1).Div(factor),
		IsReverse: true,
	}, nil
}

// createUnitConversion stores a directed edge. Self-conversions are rejected
// here, at write time; duplicates bounce off the unique pair constraint.
func createUnitConversion(q dbtx, fromUnitID, toUnitID int64, factor decimal.Decimal) (int64, error) {
	if fromUnitID == toUnitID {
		return 0, ErrSelfConversion
	}
	if !factor.IsPositive() {
		return 0, ErrInvalidQuantity
	}
	for _, id := range []int64{fromUnitID, toUnitID} {
		var n int
		if err := q.QueryRow("SELECT COUNT(*) FROM units WHERE id=?", id).Scan(&n); err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ErrUnitNotFound
		}
	}
	res, err := q.Exec("INSERT INTO unit_conversions (from_unit_id,to_unit_id,factor) VALUES (?,?,?)",
		fromUnitID, toUnitID, factor.String())
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}
