package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldFundID      = "fund_id"
	FieldAssetID     = "asset_id"
	FieldEventID     = "event_id"
	FieldBudgetMonth = "budget_month"
	FieldAmountMinor = "amount_minor"
	FieldRunMode     = "run_mode"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentStorage      = "storage"
	ComponentLedger       = "ledger"
	ComponentDistribution = "distribution"
	ComponentRowSync      = "rowsync"
	ComponentAMQP         = "amqp"
	ComponentSheets       = "sheets"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRun      = "run"
	OpUndo     = "undo"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
