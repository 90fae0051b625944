package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldBatchID    = "batch_id"
	FieldMonth      = "month"
	FieldLine       = "line"
	FieldAmount     = "amount"
	FieldRows       = "rows"
	FieldDegraded   = "degraded"
	FieldCostCenter = "cost_center"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentIngest   = "ingest"
	ComponentMapping  = "mapping"
	ComponentEngine   = "engine"
	ComponentForecast = "forecast"
	ComponentReport   = "report"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
)
