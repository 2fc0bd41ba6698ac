package main

import "fieldops/internal/models"

// Handlers use the unqualified type names; the definitions live in
// internal/models.

type APIResponse = models.APIResponse
type Meta = models.Meta
type Customer = models.Customer
type Supplier = models.Supplier
type Unit = models.Unit
type UnitConversion = models.UnitConversion
type Product = models.Product
type ProductStock = models.ProductStock
type StockMovement = models.StockMovement
type StockOpname = models.StockOpname
type Quotation = models.Quotation
type QuotationItem = models.QuotationItem
type Project = models.Project
type ProjectItem = models.ProjectItem
type PurchaseOrder = models.PurchaseOrder
type POItem = models.POItem
type Invoice = models.Invoice
type Payment = models.Payment
type Warranty = models.Warranty
type WarrantyClaim = models.WarrantyClaim
type CashflowEntry = models.CashflowEntry
