package categories

import (
	"net/http"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	categorysvc "github.com/angelmondragon/moneypilot-backend/internal/categories"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// List serves GET /categories.
func List(svc categorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}
		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categorysvc.NewCategoryDTOs(rows))
	}
}
