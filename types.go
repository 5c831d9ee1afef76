package main

import "stockroom/internal/models"

// Type aliases so handler code and tests can use the unqualified names
// while the actual definitions live in internal/models.

type APIResponse = models.APIResponse
type Meta = models.Meta
type Product = models.Product
type StockLevel = models.StockLevel
type StockTransaction = models.StockTransaction
type Asset = models.Asset
type MaintenanceRecord = models.MaintenanceRecord
type Staff = models.Staff
type User = models.User
type APIKey = models.APIKey
type SavedView = models.SavedView
type AuditEntry = models.AuditEntry
type DashboardData = models.DashboardData
