package api

import (
	"net/http"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/reporting"
)

// dashboardHandler dispatches on the actor's role: patients see their
// appointment counters, doctors their day and backlog, managers the
// clinic-wide totals.
func dashboardHandler(store reporting.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		var (
			stats any
			err   error
		)

		switch actor.Role {
		case account.RolePatient:
			stats, err = store.PatientStats(r.Context(), actor.UserID)
		case account.RoleDoctor:
			stats, err = store.DoctorStats(r.Context(), actor.UserID)
		case account.RoleManager, account.RoleAdmin:
			stats, err = store.ManagerStats(r.Context())
		default:
			writeError(w, http.StatusForbidden, "permission_denied", "unknown role")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"role":  string(actor.Role),
			"stats": stats,
		})
	}
}
