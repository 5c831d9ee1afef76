package models

// APIResponse is the standard JSON envelope for all API responses. Success
// responses carry data (plus meta for paginated lists), errors carry error.
type APIResponse struct {
	Data  interface{} `json:"data,omitempty"`
	Meta  *Meta       `json:"meta,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type Product struct {
	ID           string  `json:"id"`
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	UnitPrice    float64 `json:"unit_price"`
	ReorderLevel float64 `json:"reorder_level"`
	Active       int     `json:"active"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// StockLevel is the inventory row for a product joined with the product's
// identifying fields. QuantityAvailable is computed by the database and is
// never written by the application.
type StockLevel struct {
	ProductID         string  `json:"product_id"`
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	QuantityOnHand    float64 `json:"quantity_on_hand"`
	QuantityReserved  float64 `json:"quantity_reserved"`
	QuantityAvailable float64 `json:"quantity_available"`
	Location          string  `json:"location"`
	ReorderLevel      float64 `json:"reorder_level"`
	UpdatedAt         string  `json:"updated_at"`
}

// StockTransaction records one stock movement. Quantity holds the signed
// delta that was actually applied to quantity_on_hand.
type StockTransaction struct {
	ID        int     `json:"id"`
	ProductID string  `json:"product_id"`
	StaffID   string  `json:"staff_id"`
	Type      string  `json:"type"`
	Quantity  float64 `json:"quantity"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"created_at"`
	SKU       string  `json:"sku,omitempty"`
	StaffName string  `json:"staff_name,omitempty"`
}

type Asset struct {
	ID           string              `json:"id"`
	AssetTag     string              `json:"asset_tag"`
	Name         string              `json:"name"`
	Category     string              `json:"category"`
	Status       string              `json:"status"`
	SerialNumber string              `json:"serial_number"`
	Location     string              `json:"location"`
	AssignedTo   string              `json:"assigned_to"`
	PurchaseDate string              `json:"purchase_date"`
	PurchaseCost float64             `json:"purchase_cost"`
	Notes        string              `json:"notes"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	Maintenance  []MaintenanceRecord `json:"maintenance,omitempty"`
}

type MaintenanceRecord struct {
	ID            int     `json:"id"`
	AssetID       string  `json:"asset_id"`
	StaffID       string  `json:"staff_id"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Description   string  `json:"description"`
	Cost          float64 `json:"cost"`
	ScheduledDate string  `json:"scheduled_date"`
	CompletedAt   *string `json:"completed_at"`
	Notes         string  `json:"notes"`
	CreatedAt     string  `json:"created_at"`
	AssetName     string  `json:"asset_name,omitempty"`
	StaffName     string  `json:"staff_name,omitempty"`
}

type Staff struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Active    int    `json:"active"`
	CreatedAt string `json:"created_at"`
}

type User struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	Active      int     `json:"active"`
	CreatedAt   string  `json:"created_at"`
	LastLogin   *string `json:"last_login"`
}

type APIKey struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	KeyPrefix string  `json:"key_prefix"`
	CreatedBy string  `json:"created_by"`
	CreatedAt string  `json:"created_at"`
	LastUsed  *string `json:"last_used"`
	ExpiresAt *string `json:"expires_at"`
	Enabled   int     `json:"enabled"`
}

// SavedView is a named filter set the frontend persists for a list page.
type SavedView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Entity    string            `json:"entity"`
	Filters   map[string]string `json:"filters"`
	CreatedBy string            `json:"created_by"`
	IsPublic  int               `json:"is_public"`
	CreatedAt string            `json:"created_at"`
}

// AuditEntry represents a single audit log record.
type AuditEntry struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	CreatedAt string `json:"created_at"`
}

type DashboardData struct {
	ActiveProducts     int                `json:"active_products"`
	LowStock           int                `json:"low_stock"`
	InventoryValue     float64            `json:"inventory_value"`
	TotalAssets        int                `json:"total_assets"`
	AssetsInService    int                `json:"assets_in_service"`
	AssetsInRepair     int                `json:"assets_in_repair"`
	OpenMaintenance    int                `json:"open_maintenance"`
	ActiveStaff        int                `json:"active_staff"`
	MonthTransactions  int                `json:"month_transactions"`
	RecentTransactions []StockTransaction `json:"recent_transactions"`
}
