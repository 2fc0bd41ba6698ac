package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
)

// handleExportStock exports the stock list to CSV or Excel.
func handleExportStock(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	rows, err := db.Query(`SELECT p.id, p.name,
		COALESCE(s.quantity,0), COALESCE(s.reserved,0), COALESCE(s.available,0), COALESCE(s.updated_at,'')
		FROM products p LEFT JOIN product_stock s ON s.product_id = p.id
		WHERE p.type = 'goods' ORDER BY p.name`)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"Product ID", "Name", "Quantity", "Reserved", "Available", "Updated At"}
	var data [][]string

	for rows.Next() {
		var id, name, updatedAt string
		var qty, reserved, available float64
		rows.Scan(&id, &name, &qty, &reserved, &available, &updatedAt)
		data = append(data, []string{
			id, name, fmt.Sprintf("%.2f", qty), fmt.Sprintf("%.2f", reserved),
			fmt.Sprintf("%.2f", available), updatedAt,
		})
	}

	logAudit(getUsername(r), "EXPORT", "stock", format, fmt.Sprintf("Exported %d stock rows", len(data)))

	if format == "xlsx" {
		exportExcel(w, "Stock", headers, data)
	} else {
		exportCSV(w, "stock.csv", headers, data)
	}
}

// handleExportCashflow exports ledger entries to CSV or Excel.
func handleExportCashflow(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	query := "SELECT id,type,COALESCE(category,''),amount,COALESCE(reference,''),COALESCE(notes,''),COALESCE(entry_date,''),created_at FROM cashflow"
	var args []interface{}
	if from := r.URL.Query().Get("from"); from != "" {
		query += " WHERE entry_date >= ?"
		args = append(args, from)
	}
	query += " ORDER BY entry_date, id"

	rows, err := db.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "Type", "Category", "Amount", "Reference", "Notes", "Entry Date", "Created At"}
	var data [][]string

	for rows.Next() {
		var id int64
		var typ, category, reference, notes, entryDate, createdAt string
		var amount float64
		rows.Scan(&id, &typ, &category, &amount, &reference, &notes, &entryDate, &createdAt)
		data = append(data, []string{
			fmt.Sprintf("%d", id), typ, category, fmt.Sprintf("%.2f", amount),
			reference, notes, entryDate, createdAt,
		})
	}

	logAudit(getUsername(r), "EXPORT", "cashflow", format, fmt.Sprintf("Exported %d cashflow rows", len(data)))

	if format == "xlsx" {
		exportExcel(w, "Cashflow", headers, data)
	} else {
		exportCSV(w, "cashflow.csv", headers, data)
	}
}

// exportCSV writes data to CSV format.
func exportCSV(w http.ResponseWriter, filename string, headers []string, data [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		http.Error(w, "Failed to write CSV headers", 500)
		return
	}

	for _, row := range data {
		if err := writer.Write(row); err != nil {
			http.Error(w, "Failed to write CSV row", 500)
			return
		}
	}
}

// exportExcel writes data to Excel format.
func exportExcel(w http.ResponseWriter, sheetName string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create Excel sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 15)
	}

	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", strings.ToLower(sheetName)))

	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", 500)
		return
	}
}
