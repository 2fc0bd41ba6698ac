package main

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrStockIntegrity means a mutation would break 0 <= reserved <= quantity
	// or available >= 0. Surfaced, never silently corrected.
	ErrStockIntegrity = errors.New("stock integrity violation")
)

// Stock movement types.
const (
	MovementOpnameIn    = "opname_in"
	MovementOpnameOut   = "opname_out"
	MovementReceipt     = "receipt"
	MovementConsumption = "consumption"
	MovementRelease     = "release"
)

// Product types.
const (
	ProductGoods   = "goods"
	ProductService = "service"
)

// Procurement statuses on a project item.
const (
	POStatusNone     = "none"
	POStatusPending  = "pending"
	POStatusOrdered  = "ordered"
	POStatusReceived = "received"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// evaluateProcurement decides the procurement flags for a line item.
// Services and unlinked items never consume physical stock.
func evaluateProcurement(productType string, available, requested float64) (needsPO bool, poStatus string) {
	if productType != ProductGoods {
		return false, POStatusNone
	}
	if available < requested {
		return true, POStatusPending
	}
	return false, POStatusNone
}

// ensureStockRow lazily creates the stock record with zero quantity.
func ensureStockRow(q dbtx, productID string) {
	q.Exec("INSERT OR IGNORE INTO product_stock (product_id) VALUES (?)", productID)
}

func availableStock(q dbtx, productID string) float64 {
	var avail float64
	q.QueryRow("SELECT COALESCE(available,0) FROM product_stock WHERE product_id=?", productID).Scan(&avail)
	return avail
}

func addMovement(q dbtx, productID, movType string, qty float64, reference, notes string) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := q.Exec("INSERT INTO stock_movements (product_id,type,qty,reference,notes,created_at) VALUES (?,?,?,?,?,?)",
		productID, movType, qty, reference, notes, now)
	return err
}

// adjustReservation moves delta units between available and reserved for a
// product, guarded so the invariant cannot break: a positive delta requires
// enough available, a negative one enough reserved.
func adjustReservation(q dbtx, productID string, delta float64) error {
	if delta == 0 {
		return nil
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	var res sql.Result
	var err error
	if delta > 0 {
		res, err = q.Exec("UPDATE product_stock SET reserved=reserved+?, available=available-?, updated_at=? WHERE product_id=? AND available >= ?",
			delta, delta, now, productID, delta)
	} else {
		back := -delta
		res, err = q.Exec("UPDATE product_stock SET reserved=reserved-?, available=available+?, updated_at=? WHERE product_id=? AND reserved >= ?",
			back, back, now, productID, back)
	}
	if err != nil {
		if isConstraintViolation(err) {
			return ErrStockIntegrity
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStockIntegrity
	}
	return nil
}

// refreshItemProcurement re-evaluates one project item: reserves what it can
// from available stock, records the amount taken in reserved_qty, and updates
// needs_po/po_status. It is idempotent — the item's own reservation is folded
// back into the availability it sees, and the row is only written when the
// flags actually change. pending/none flip freely; ordered/received are owned
// by the PO flow and never regressed here.
func refreshItemProcurement(q dbtx, itemID int64) error {
	var productID, poStatus string
	var qty, returned, reserved float64
	var needsPO bool
	err := q.QueryRow("SELECT COALESCE(product_id,''),qty,returned_qty,reserved_qty,needs_po,po_status FROM project_items WHERE id=?", itemID).
		Scan(&productID, &qty, &returned, &reserved, &needsPO, &poStatus)
	if err != nil {
		return err
	}

	productType := ""
	if productID != "" {
		if err := q.QueryRow("SELECT type FROM products WHERE id=?", productID).Scan(&productType); err != nil {
			return ErrProductNotFound
		}
	}

	want := qty - returned
	newReserved := reserved
	newNeedsPO := false
	newPOStatus := POStatusNone

	if productType == ProductGoods {
		ensureStockRow(q, productID)
		effAvail := availableStock(q, productID) + reserved
		newNeedsPO, newPOStatus = evaluateProcurement(productType, effAvail, want)
		newReserved = math.Min(want, effAvail)
		if err := adjustReservation(q, productID, newReserved-reserved); err != nil {
			return err
		}
	} else if reserved > 0 {
		// Item no longer stock-backed; give the reservation back.
		if err := adjustReservation(q, productID, -reserved); err != nil {
			return err
		}
		newReserved = 0
	}

	// ordered/received stick until the PO flow moves them.
	if poStatus == POStatusOrdered || poStatus == POStatusReceived {
		newPOStatus = poStatus
	}

	if newNeedsPO == needsPO && newPOStatus == poStatus && newReserved == reserved {
		return nil
	}
	_, err = q.Exec("UPDATE project_items SET needs_po=?, po_status=?, reserved_qty=? WHERE id=?",
		newNeedsPO, newPOStatus, newReserved, itemID)
	return err
}

// releaseItemReservation returns an item's reserved stock to available and
// appends a release movement. Called when an item is removed while the
// project is still editable.
func releaseItemReservation(q dbtx, productID string, reservedQty float64, reference string) error {
	if reservedQty <= 0 {
		return nil
	}
	if err := adjustReservation(q, productID, -reservedQty); err != nil {
		return err
	}
	return addMovement(q, productID, MovementRelease, reservedQty, reference, "")
}

// receiveStock books received goods onto the pile: quantity and available both
// grow, with a receipt movement for the audit trail.
func receiveStock(q dbtx, productID string, qty float64, reference string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	ensureStockRow(q, productID)
	now := time.Now().Format("2006-01-02 15:04:05")
	if _, err := q.Exec("UPDATE product_stock SET quantity=quantity+?, available=available+?, updated_at=? WHERE product_id=?",
		qty, qty, now, productID); err != nil {
		return err
	}
	return addMovement(q, productID, MovementReceipt, qty, reference, "")
}

// consumeItemStock burns an item's reservation out of physical stock when its
// project completes: quantity and reserved drop together, available is
// untouched.
func consumeItemStock(q dbtx, productID string, reservedQty float64, reference string) error {
	if reservedQty <= 0 {
		return nil
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := q.Exec("UPDATE product_stock SET quantity=quantity-?, reserved=reserved-?, updated_at=? WHERE product_id=? AND reserved >= ? AND quantity >= ?",
		reservedQty, reservedQty, now, productID, reservedQty, reservedQty)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrStockIntegrity
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStockIntegrity
	}
	return addMovement(q, productID, MovementConsumption, reservedQty, reference, "")
}

// applyStockOpname reconciles a physical count against the system quantity.
// The opname record, the stock update and the movement commit as one
// transaction; a zero difference records the opname but writes no movement
// and leaves stock untouched.
func applyStockOpname(productID string, actualQty float64, notes, createdBy string) (*StockOpname, error) {
	if actualQty < 0 {
		return nil, ErrInvalidQuantity
	}
	var productType string
	if err := db.QueryRow("SELECT type FROM products WHERE id=?", productID).Scan(&productType); err != nil {
		return nil, ErrProductNotFound
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ensureStockRow(tx, productID)
	var systemQty float64
	if err := tx.QueryRow("SELECT quantity FROM product_stock WHERE product_id=?", productID).Scan(&systemQty); err != nil {
		return nil, err
	}

	diff := actualQty - systemQty
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := tx.Exec("INSERT INTO stock_opnames (product_id,system_qty,actual_qty,difference,notes,created_by,created_at) VALUES (?,?,?,?,?,?,?)",
		productID, systemQty, actualQty, diff, notes, createdBy, now)
	if err != nil {
		return nil, err
	}
	opnameID, _ := res.LastInsertId()

	if diff != 0 {
		_, err = tx.Exec("UPDATE product_stock SET quantity=?, available=available+?, updated_at=? WHERE product_id=?",
			actualQty, diff, now, productID)
		if err != nil {
			// A shrink below what's still reserved means the count and the
			// reservations disagree; that's for a human, not a clamp.
			if isConstraintViolation(err) {
				return nil, ErrStockIntegrity
			}
			return nil, err
		}
		movType := MovementOpnameIn
		if diff < 0 {
			movType = MovementOpnameOut
		}
		ref := fmt.Sprintf("OPNAME-%d", opnameID)
		if err := addMovement(tx, productID, movType, math.Abs(diff), ref, notes); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &StockOpname{
		ID: opnameID, ProductID: productID, SystemQty: systemQty,
		ActualQty: actualQty, Difference: diff, Notes: notes,
		CreatedBy: createdBy, CreatedAt: now,
	}, nil
}

func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
