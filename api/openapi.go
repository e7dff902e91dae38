// Package api carries the HTTP API description.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document for the viewer-facing HTTP server.
//
//go:embed openapi.yaml
var OpenAPI []byte
