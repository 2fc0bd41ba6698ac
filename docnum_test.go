package main

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNextDocNumberFirstInPeriod(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	ref := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	id, err := nextDocNumber(db, DocQuotation, ref)
	if err != nil {
		t.Fatalf("nextDocNumber failed: %v", err)
	}
	if id != "QT-202503-001" {
		t.Errorf("expected QT-202503-001, got %s", id)
	}
}

func TestNextDocNumberIncrements(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestCustomer(t, "CUST-001")
	mustExec(t, "INSERT INTO quotations (id,customer_id) VALUES ('QT-202503-001','CUST-001')")
	mustExec(t, "INSERT INTO quotations (id,customer_id) VALUES ('QT-202503-002','CUST-001')")

	ref := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	id, err := nextDocNumber(db, DocQuotation, ref)
	if err != nil {
		t.Fatalf("nextDocNumber failed: %v", err)
	}
	if id != "QT-202503-003" {
		t.Errorf("expected QT-202503-003, got %s", id)
	}
}

func TestNextDocNumberSkipsGaps(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestCustomer(t, "CUST-001")
	// 003 was deleted; the sequence continues past the highest survivor
	for _, n := range []string{"001", "002", "004"} {
		mustExec(t, "INSERT INTO quotations (id,customer_id) VALUES (?,?)", "QT-202503-"+n, "CUST-001")
	}

	ref := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	id, _ := nextDocNumber(db, DocQuotation, ref)
	if id != "QT-202503-005" {
		t.Errorf("expected QT-202503-005, got %s", id)
	}
}

func TestNextDocNumberPeriodIsolation(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestCustomer(t, "CUST-001")
	mustExec(t, "INSERT INTO quotations (id,customer_id) VALUES ('QT-202502-017','CUST-001')")

	// A new month restarts at 001
	ref := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	id, _ := nextDocNumber(db, DocQuotation, ref)
	if id != "QT-202503-001" {
		t.Errorf("expected QT-202503-001, got %s", id)
	}

	// Backdated creation lands in the old month's sequence
	ref = time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	id, _ = nextDocNumber(db, DocQuotation, ref)
	if id != "QT-202502-018" {
		t.Errorf("expected QT-202502-018, got %s", id)
	}
}

func TestNextDocNumberClaimsResetDaily(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestCustomer(t, "CUST-001")
	mustExec(t, "INSERT INTO projects (id,customer_id) VALUES ('PRJ-202503-001','CUST-001')")
	mustExec(t, "INSERT INTO warranties (id,project_id) VALUES ('WRT-202503-001','PRJ-202503-001')")
	mustExec(t, "INSERT INTO warranty_claims (id,warranty_id) VALUES ('CLM-20250314-002','WRT-202503-001')")

	sameDay := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	id, _ := nextDocNumber(db, DocClaim, sameDay)
	if id != "CLM-20250314-003" {
		t.Errorf("expected CLM-20250314-003, got %s", id)
	}

	nextDay := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)
	id, _ = nextDocNumber(db, DocClaim, nextDay)
	if id != "CLM-20250315-001" {
		t.Errorf("expected CLM-20250315-001, got %s", id)
	}
}

func TestNextDocNumberUnknownType(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	if _, err := nextDocNumber(db, "bogus", time.Now()); err == nil {
		t.Error("expected error for unknown document type")
	}
}

func TestCreateNumberedRetriesOnCollision(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	attempts := 0
	id, err := createNumbered(DocQuotation, time.Now(), func(id string) error {
		attempts++
		if attempts == 1 {
			// Another writer claimed the number between read and insert
			return fmt.Errorf("UNIQUE constraint failed: quotations.id")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("createNumbered failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if id == "" {
		t.Error("expected a document number")
	}
}

func TestCreateNumberedGivesUpAfterRetries(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	attempts := 0
	_, err := createNumbered(DocQuotation, time.Now(), func(id string) error {
		attempts++
		return fmt.Errorf("UNIQUE constraint failed: quotations.id")
	})
	if !errors.Is(err, ErrNumberConflict) {
		t.Errorf("expected ErrNumberConflict, got %v", err)
	}
	if attempts != docNumberRetries {
		t.Errorf("expected %d attempts, got %d", docNumberRetries, attempts)
	}
}

func TestCreateNumberedPassesThroughOtherErrors(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	boom := errors.New("disk full")
	attempts := 0
	_, err := createNumbered(DocQuotation, time.Now(), func(id string) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected passthrough error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("non-unique errors must not retry, got %d attempts", attempts)
	}
}
