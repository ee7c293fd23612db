// Package docs holds the OpenAPI description of the app's own HTTP routes
package docs

import _ "embed"

// SwaggerJSON is served at /swagger/doc.json outside production
//
//go:embed swagger.json
var SwaggerJSON []byte
