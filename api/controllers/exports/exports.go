package exports

import (
	"net/http"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	exportsvc "github.com/angelmondragon/moneypilot-backend/internal/exports"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// Full serves POST /exports/full. A nil service means no export bucket is configured.
func Full(svc exportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "exports are not configured"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Export(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
