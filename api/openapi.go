// Package api embeds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// OpenAPISpec is the OpenAPI 3.1 document served at /openapi.json and /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
