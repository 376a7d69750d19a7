package subscriptions

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/moneypilot-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/moneypilot-backend/api/responses"
	"github.com/angelmondragon/moneypilot-backend/api/validators"
	"github.com/angelmondragon/moneypilot-backend/internal/cron"
	subsvc "github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// TenantLocker serialises detection runs per tenant.
type TenantLocker interface {
	Run(ctx context.Context, tenantID string, fn func(context.Context) error) error
}

// ListCandidates serves GET /subscriptions?limit=.
func ListCandidates(svc subsvc.Service, maxLimit int, logg *logger.Logger) http.HandlerFunc {
	if maxLimit <= 0 {
		maxLimit = subsvc.DefaultListLimit
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", maxLimit, 1, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListCandidates(r.Context(), tenantID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subsvc.NewCandidateDTOs(rows))
	}
}

// Detect serves POST /subscriptions/detect. A run already in flight for the
// tenant yields CONFLICT.
func Detect(svc subsvc.Service, locker TenantLocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || locker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		tenantID, err := tenantcontext.ResolveTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var report *subsvc.Report
		err = locker.Run(r.Context(), tenantID, func(ctx context.Context) error {
			var runErr error
			report, runErr = svc.DetectForTenant(ctx, tenantID)
			return runErr
		})
		if errors.Is(err, cron.ErrLockHeld) {
			err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "detection already running for tenant")
		} else if err != nil && pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire detection lock")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subsvc.NewReportDTO(report))
	}
}
