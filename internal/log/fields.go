package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldHousehold    = "household"
	FieldMonth        = "month"
	FieldSettlementID = "settlement_id"
	FieldMemberID     = "member_id"
	FieldAmountCents  = "amount_cents"
	FieldTotalCents   = "total_cents"
	FieldSyncVersion  = "sync_version"
	FieldExportRef    = "export_ref"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentSettlement = "settlement"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentExport     = "export"
	ComponentCache      = "cache"
)

// Operations defines standard operation names
const (
	OpCalculate = "calculate"
	OpPreview   = "preview"
	OpComplete  = "complete"
	OpList      = "list"
	OpSync      = "sync"
	OpExport    = "export"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
