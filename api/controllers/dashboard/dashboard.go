package dashboard

import (
	"net/http"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	dashboardsvc "github.com/angelmondragon/moneypilot-backend/internal/dashboard"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// Summary serves GET /dashboard.
func Summary(svc dashboardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
