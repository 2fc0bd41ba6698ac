package main

import (
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestAddProjectItemFlagsProcurement(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)

	req := authedRequest(t, "POST", "/api/v1/projects/"+projectID+"/items", map[string]interface{}{
		"product_id": "PRD-001",
		"qty":        10,
		"unit_price": 25.0,
	})
	rec := httptest.NewRecorder()
	handleAddProjectItem(rec, req, projectID)
	if rec.Code != 200 {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var p Project
	decodeData(t, rec, &p)
	if len(p.Items) != 1 {
		t.Fatalf("want 1 item, got %d", len(p.Items))
	}
	it := p.Items[0]
	if !it.NeedsPO || it.POStatus != POStatusPending {
		t.Errorf("short stock must flag procurement, got needs_po=%v po_status=%s", it.NeedsPO, it.POStatus)
	}
	if it.ReservedQty != 8 {
		t.Errorf("want reserved_qty=8, got %v", it.ReservedQty)
	}
}

func TestAddProjectItemRejectsNonPositiveQty(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)

	req := authedRequest(t, "POST", "/api/v1/projects/"+projectID+"/items", map[string]interface{}{
		"product_id": "PRD-001",
		"qty":        0,
	})
	rec := httptest.NewRecorder()
	handleAddProjectItem(rec, req, projectID)
	if rec.Code != 400 {
		t.Errorf("want 400, got %d", rec.Code)
	}
}

func TestProjectItemsFrozenAfterApproval(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)
	mustExec(t, "UPDATE projects SET status='ongoing' WHERE id=?", projectID)

	req := authedRequest(t, "POST", "/api/v1/projects/"+projectID+"/items", map[string]interface{}{
		"product_id": "PRD-001",
		"qty":        5,
	})
	rec := httptest.NewRecorder()
	handleAddProjectItem(rec, req, projectID)
	if rec.Code != 409 {
		t.Errorf("item edits on an ongoing project must 409, got %d", rec.Code)
	}
}

func TestDeleteProjectItemReleasesReservation(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)
	itemID := addTestProjectItem(t, projectID, "PRD-001", 5)
	if err := refreshItemProcurement(db, itemID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	req := authedRequest(t, "DELETE", "/api/v1/projects/"+projectID+"/items/1", nil)
	rec := httptest.NewRecorder()
	handleDeleteProjectItem(rec, req, projectID, "1")
	if rec.Code != 200 {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reserved, available float64
	db.QueryRow("SELECT reserved,available FROM product_stock WHERE product_id='PRD-001'").Scan(&reserved, &available)
	if reserved != 0 || available != 8 {
		t.Errorf("deleting the item must give stock back, got reserved=%v available=%v", reserved, available)
	}
}

func TestProjectStatusEndpointRejectsIllegalJump(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)

	req := authedRequest(t, "PUT", "/api/v1/projects/"+projectID+"/status", map[string]string{"status": "paid"})
	rec := httptest.NewRecorder()
	handleProjectStatus(rec, req, projectID)
	if rec.Code != 409 {
		t.Errorf("quotation -> paid must 409, got %d", rec.Code)
	}
}

func TestProjectCompletionConsumesStock(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)
	itemID := addTestProjectItem(t, projectID, "PRD-001", 5)
	if err := refreshItemProcurement(db, itemID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	mustExec(t, "UPDATE projects SET status='ongoing' WHERE id=?", projectID)

	req := authedRequest(t, "PUT", "/api/v1/projects/"+projectID+"/status", map[string]string{"status": "completed"})
	rec := httptest.NewRecorder()
	handleProjectStatus(rec, req, projectID)
	if rec.Code != 200 {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var qty, reserved, available float64
	db.QueryRow("SELECT quantity,reserved,available FROM product_stock WHERE product_id='PRD-001'").Scan(&qty, &reserved, &available)
	if qty != 3 || reserved != 0 || available != 3 {
		t.Errorf("completion must consume reserved stock, got quantity=%v reserved=%v available=%v", qty, reserved, available)
	}

	var movType string
	db.QueryRow("SELECT type FROM stock_movements WHERE product_id='PRD-001' ORDER BY id DESC LIMIT 1").Scan(&movType)
	if movType != MovementConsumption {
		t.Errorf("want consumption movement, got %s", movType)
	}
}

func TestProjectCancellationReleasesStock(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)
	itemID := addTestProjectItem(t, projectID, "PRD-001", 5)
	if err := refreshItemProcurement(db, itemID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	req := authedRequest(t, "PUT", "/api/v1/projects/"+projectID+"/status", map[string]string{"status": "cancelled"})
	rec := httptest.NewRecorder()
	handleProjectStatus(rec, req, projectID)
	if rec.Code != 200 {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reserved, available float64
	db.QueryRow("SELECT reserved,available FROM product_stock WHERE product_id='PRD-001'").Scan(&reserved, &available)
	if reserved != 0 || available != 8 {
		t.Errorf("cancellation must release reservations, got reserved=%v available=%v", reserved, available)
	}
}

func TestCreateProjectGetsMonthlyNumber(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	insertTestCustomer(t, "CUST-001")
	req := authedRequest(t, "POST", "/api/v1/projects", map[string]string{
		"customer_id": "CUST-001",
		"name":        "Warehouse cameras",
	})
	rec := httptest.NewRecorder()
	handleCreateProject(rec, req)
	if rec.Code != 200 {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var p Project
	decodeData(t, rec, &p)
	if len(p.ID) != len("PRJ-202503-001") || p.ID[:4] != "PRJ-" {
		t.Errorf("unexpected project number %s", p.ID)
	}
	if p.Status != StatusQuotation {
		t.Errorf("new projects start in quotation, got %s", p.Status)
	}
}

func TestDeleteProjectItemKeepsItemWhenReleaseFails(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	projectID := setupProjectFixture(t)
	insertTestProduct(t, "PRD-001", ProductGoods, 8)
	itemID := addTestProjectItem(t, projectID, "PRD-001", 5)
	if err := refreshItemProcurement(db, itemID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	// Item claims more than the stock row has reserved
	mustExec(t, "UPDATE project_items SET reserved_qty=7 WHERE id=?", itemID)

	idStr := strconv.FormatInt(itemID, 10)
	req := authedRequest(t, "DELETE", "/api/v1/projects/"+projectID+"/items/"+idStr, nil)
	rec := httptest.NewRecorder()
	handleDeleteProjectItem(rec, req, projectID, idStr)
	if rec.Code != 409 {
		t.Fatalf("want 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM project_items WHERE id=?", itemID).Scan(&n)
	if n != 1 {
		t.Errorf("failed release must not delete the item")
	}
	var reserved, available float64
	db.QueryRow("SELECT reserved,available FROM product_stock WHERE product_id='PRD-001'").Scan(&reserved, &available)
	if reserved != 5 || available != 3 {
		t.Errorf("stock must be untouched, got reserved=%v available=%v", reserved, available)
	}
	var movements int
	db.QueryRow("SELECT COUNT(*) FROM stock_movements WHERE type=?", MovementRelease).Scan(&movements)
	if movements != 0 {
		t.Errorf("no release movement may be written, got %d", movements)
	}
}
