package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNumberConflict is returned when a document number could not be claimed
// after the bounded number of retries.
var ErrNumberConflict = errors.New("document number conflict")

// Document type tags accepted by nextDocNumber and createNumbered.
const (
	DocQuotation = "quotation"
	DocProject   = "project"
	DocPO        = "purchase_order"
	DocInvoice   = "invoice"
	DocWarranty  = "warranty"
	DocClaim     = "claim"
)

const docNumberRetries = 3

type docSpec struct {
	prefix string
	table  string
	// time layout of the period segment; claims reset daily, everything
	// else monthly
	period string
}

var docSpecs = map[string]docSpec{
	DocQuotation: {"QT", "quotations", "200601"},
	DocProject:   {"PRJ", "projects", "200601"},
	DocPO:        {"PO", "purchase_orders", "200601"},
	DocInvoice:   {"INV", "invoices", "200601"},
	DocWarranty:  {"WRT", "warranties", "200601"},
	DocClaim:     {"CLM", "warranty_claims", "20060102"},
}

// querier is the subset of *sql.DB / *sql.Tx the generator needs.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// nextDocNumber derives the next document number for the period the reference
// date falls in: PREFIX-PERIOD-NNN where NNN is one past the highest existing
// suffix under that prefix (so deleted documents leave gaps, the sequence
// never reuses a higher number). The read is racy under concurrent creation;
// createNumbered closes that with the primary key plus retry.
func nextDocNumber(q querier, docType string, refDate time.Time) (string, error) {
	spec, ok := docSpecs[docType]
	if !ok {
		return "", fmt.Errorf("unknown document type %q", docType)
	}
	prefix := spec.prefix + "-" + refDate.Format(spec.period) + "-"

	var maxID sql.NullString
	err := q.QueryRow("SELECT id FROM "+spec.table+" WHERE id LIKE ? ORDER BY id DESC LIMIT 1", prefix+"%").Scan(&maxID)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	next := 1
	if maxID.Valid {
		parts := strings.Split(maxID.String, "-")
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, next), nil
}

// createNumbered derives a number and runs insert with it, retrying on a
// unique-constraint collision (two requests deriving the same suffix). Any
// other insert error is returned as-is.
func createNumbered(docType string, refDate time.Time, insert func(id string) error) (string, error) {
	for attempt := 0; attempt < docNumberRetries; attempt++ {
		id, err := nextDocNumber(db, docType, refDate)
		if err != nil {
			return "", err
		}
		err = insert(id)
		if err == nil {
			return id, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
	}
	return "", ErrNumberConflict
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
