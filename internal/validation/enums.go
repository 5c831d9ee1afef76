package validation

// Enum values - these MUST match the DB CHECK constraints in db.go.
var (
	ValidTransactionTypes  = []string{"receive", "issue", "adjust", "return", "scrap"}
	ValidAssetStatuses     = []string{"in_service", "in_repair", "in_storage", "retired", "missing"}
	ValidMaintenanceTypes  = []string{"inspection", "repair", "service", "calibration", "upgrade"}
	ValidMaintenanceStates = []string{"scheduled", "in_progress", "completed", "cancelled"}
	ValidStaffRoles        = []string{"manager", "clerk", "technician"}
	ValidUserRoles         = []string{"admin", "user", "readonly"}
	ValidSavedViewEntities = []string{"products", "inventory", "transactions", "assets", "maintenance", "staff"}
)
