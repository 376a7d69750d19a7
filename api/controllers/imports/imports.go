package imports

import (
	"net/http"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	"github.com/angelmondragon/moneypilot-backend/api/validators"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// MaxCSVBytes bounds a single upload.
const MaxCSVBytes = 10 << 20

// ImportCSV serves POST /imports/csv?account_id=&currency= with a raw CSV body.
func ImportCSV(svc transactions.ImportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := validators.RequireQueryString(r, "account_id", 128)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := http.MaxBytesReader(w, r.Body, MaxCSVBytes)
		defer body.Close()

		result, err := svc.Import(r.Context(), transactions.ImportParams{
			TenantID:  tenantID,
			AccountID: accountID,
			Currency:  validators.SanitizeString(r.URL.Query().Get("currency"), 3),
			Body:      body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
