package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used for instrumentation.
const (
	// Tools
	AttrToolName = attribute.Key("mcp.tool.name")
	AttrToolErr  = attribute.Key("mcp.tool.error_kind")

	// Map state
	AttrEventSeq  = attribute.Key("map.event.seq")
	AttrEventKind = attribute.Key("map.event.kind")

	// Database
	AttrDBStatement = attribute.Key("db.statement")
	AttrDBTable     = attribute.Key("db.sql.table")
	AttrDBRows      = attribute.Key("db.rows_returned")
	AttrDBTruncated = attribute.Key("db.truncated")
)
