//go:build swag

package swaggerkit

import docs "github.com/ditsyandrea22/celo-identity/internal/services/api/docs"

var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }
