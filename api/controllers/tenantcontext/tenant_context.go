package tenantcontext

import (
	"net/http"

	"github.com/angelmondragon/moneypilot-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

// ResolveTenantID returns the tenant seeded by the auth middleware.
func ResolveTenantID(r *http.Request) (string, error) {
	tenantID := middleware.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context required")
	}
	return tenantID, nil
}
