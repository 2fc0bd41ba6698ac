package main

import (
	"net/http/httptest"
	"testing"
)

func setupShortProject(t *testing.T) (projectID string, itemID int64) {
	t.Helper()
	projectID = setupProjectFixture(t)
	insertTestSupplier(t, "SUP-001")
	insertTestProduct(t, "PRD-001", ProductGoods, 8)
	itemID = addTestProjectItem(t, projectID, "PRD-001", 10)
	if err := refreshItemProcurement(db, itemID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return projectID, itemID
}

func TestGeneratePOFromProject(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID, itemID := setupShortProject(t)

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/generate", map[string]string{
		"project_id":  projectID,
		"supplier_id": "SUP-001",
	})
	rec := httptest.NewRecorder()
	handleGeneratePO(rec, req)
	if rec.Code != 200 {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var po PurchaseOrder
	decodeData(t, rec, &po)
	if po.Status != "draft" {
		t.Errorf("generated PO starts draft, got %s", po.Status)
	}
	if len(po.Items) != 1 {
		t.Fatalf("want 1 PO item, got %d", len(po.Items))
	}
	// 10 wanted, 8 reserved from stock, shortfall of 2 goes on the PO
	if po.Items[0].Qty != 2 {
		t.Errorf("want shortfall qty 2, got %v", po.Items[0].Qty)
	}
	if po.Items[0].ProjectItemID != itemID {
		t.Errorf("PO item must link back to the project item")
	}

	var poStatus string
	db.QueryRow("SELECT po_status FROM project_items WHERE id=?", itemID).Scan(&poStatus)
	if poStatus != POStatusOrdered {
		t.Errorf("covered item must move to ordered, got %s", poStatus)
	}
}

func TestGeneratePOIsIdempotent(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID, _ := setupShortProject(t)

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/generate", map[string]string{
		"project_id":  projectID,
		"supplier_id": "SUP-001",
	})
	rec := httptest.NewRecorder()
	handleGeneratePO(rec, req)
	if rec.Code != 200 {
		t.Fatalf("first generate failed: %d", rec.Code)
	}

	// The item is now ordered; a second run finds nothing pending
	req = authedRequest(t, "POST", "/api/v1/purchase-orders/generate", map[string]string{
		"project_id":  projectID,
		"supplier_id": "SUP-001",
	})
	rec = httptest.NewRecorder()
	handleGeneratePO(rec, req)
	if rec.Code != 409 {
		t.Errorf("second generate must 409, got %d", rec.Code)
	}
}

func TestReceivePOUpdatesStockAndItem(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID, itemID := setupShortProject(t)

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/generate", map[string]string{
		"project_id":  projectID,
		"supplier_id": "SUP-001",
	})
	rec := httptest.NewRecorder()
	handleGeneratePO(rec, req)
	var po PurchaseOrder
	decodeData(t, rec, &po)

	req = authedRequest(t, "POST", "/api/v1/purchase-orders/"+po.ID+"/order", nil)
	rec = httptest.NewRecorder()
	handleOrderPO(rec, req, po.ID)
	if rec.Code != 200 {
		t.Fatalf("order failed: %d: %s", rec.Code, rec.Body.String())
	}

	req = authedRequest(t, "POST", "/api/v1/purchase-orders/"+po.ID+"/receive", map[string]interface{}{})
	rec = httptest.NewRecorder()
	handleReceivePO(rec, req, po.ID)
	if rec.Code != 200 {
		t.Fatalf("receive failed: %d: %s", rec.Code, rec.Body.String())
	}

	var out PurchaseOrder
	decodeData(t, rec, &out)
	if out.Status != "received" {
		t.Errorf("full receipt must mark the PO received, got %s", out.Status)
	}

	// 2 received on top of 8 on hand; the item's shortfall is now reserved too
	var qty, reserved, available float64
	db.QueryRow("SELECT quantity,reserved,available FROM product_stock WHERE product_id='PRD-001'").Scan(&qty, &reserved, &available)
	if qty != 10 || reserved != 10 || available != 0 {
		t.Errorf("want quantity=10 reserved=10 available=0, got %v/%v/%v", qty, reserved, available)
	}

	var poStatus string
	var needsPO bool
	var reservedQty float64
	db.QueryRow("SELECT po_status,needs_po,reserved_qty FROM project_items WHERE id=?", itemID).Scan(&poStatus, &needsPO, &reservedQty)
	if poStatus != POStatusReceived {
		t.Errorf("item must be marked received, got %s", poStatus)
	}
	if needsPO {
		t.Error("received item no longer needs procurement")
	}
	if reservedQty != 10 {
		t.Errorf("want reserved_qty=10 after receipt, got %v", reservedQty)
	}
}

func TestReceivePORequiresOrderedState(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestSupplier(t, "SUP-001")
	insertTestProduct(t, "PRD-001", ProductGoods, 0)
	mustExec(t, "INSERT INTO purchase_orders (id,supplier_id,status) VALUES ('PO-202503-001','SUP-001','draft')")

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/PO-202503-001/receive", map[string]interface{}{})
	rec := httptest.NewRecorder()
	handleReceivePO(rec, req, "PO-202503-001")
	if rec.Code != 409 {
		t.Errorf("receiving a draft PO must 409, got %d", rec.Code)
	}
}

func TestPartialReceiptKeepsPOOpen(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestSupplier(t, "SUP-001")
	insertTestProduct(t, "PRD-001", ProductGoods, 0)
	mustExec(t, "INSERT INTO purchase_orders (id,supplier_id,status,ordered_at) VALUES ('PO-202503-001','SUP-001','ordered',CURRENT_TIMESTAMP)")
	mustExec(t, "INSERT INTO po_items (po_id,product_id,qty,unit_price) VALUES ('PO-202503-001','PRD-001',10,5)")
	var poItemID int64
	db.QueryRow("SELECT id FROM po_items WHERE po_id='PO-202503-001'").Scan(&poItemID)

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/PO-202503-001/receive", map[string]interface{}{
		"items": []map[string]interface{}{{"item_id": poItemID, "qty": 4}},
	})
	rec := httptest.NewRecorder()
	handleReceivePO(rec, req, "PO-202503-001")
	if rec.Code != 200 {
		t.Fatalf("receive failed: %d: %s", rec.Code, rec.Body.String())
	}

	var out PurchaseOrder
	decodeData(t, rec, &out)
	if out.Status != "partial" {
		t.Errorf("partial receipt must keep the PO open, got %s", out.Status)
	}
	if out.Items[0].QtyReceived != 4 {
		t.Errorf("want qty_received=4, got %v", out.Items[0].QtyReceived)
	}

	var qty float64
	db.QueryRow("SELECT quantity FROM product_stock WHERE product_id='PRD-001'").Scan(&qty)
	if qty != 4 {
		t.Errorf("want quantity=4, got %v", qty)
	}
}

func TestReceivePORejectsOverReceipt(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestSupplier(t, "SUP-001")
	insertTestProduct(t, "PRD-001", ProductGoods, 0)
	mustExec(t, "INSERT INTO purchase_orders (id,supplier_id,status,ordered_at) VALUES ('PO-202503-001','SUP-001','ordered',CURRENT_TIMESTAMP)")
	mustExec(t, "INSERT INTO po_items (po_id,product_id,qty,unit_price) VALUES ('PO-202503-001','PRD-001',10,5)")
	var poItemID int64
	db.QueryRow("SELECT id FROM po_items WHERE po_id='PO-202503-001'").Scan(&poItemID)

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/PO-202503-001/receive", map[string]interface{}{
		"items": []map[string]interface{}{{"item_id": poItemID, "qty": 11}},
	})
	rec := httptest.NewRecorder()
	handleReceivePO(rec, req, "PO-202503-001")
	if rec.Code != 400 {
		t.Errorf("over-receipt must 400, got %d", rec.Code)
	}
}

func TestDeletePOReturnsItemsToPending(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID, itemID := setupShortProject(t)

	req := authedRequest(t, "POST", "/api/v1/purchase-orders/generate", map[string]string{
		"project_id":  projectID,
		"supplier_id": "SUP-001",
	})
	rec := httptest.NewRecorder()
	handleGeneratePO(rec, req)
	var po PurchaseOrder
	decodeData(t, rec, &po)

	req = authedRequest(t, "DELETE", "/api/v1/purchase-orders/"+po.ID, nil)
	rec = httptest.NewRecorder()
	handleDeletePO(rec, req, po.ID)
	if rec.Code != 200 {
		t.Fatalf("delete failed: %d: %s", rec.Code, rec.Body.String())
	}

	var poStatus string
	db.QueryRow("SELECT po_status FROM project_items WHERE id=?", itemID).Scan(&poStatus)
	if poStatus != POStatusPending {
		t.Errorf("deleting the PO must put the item back to pending, got %s", poStatus)
	}
}
