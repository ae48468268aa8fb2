package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go-todo-api/internal/model"
	"go-todo-api/internal/notify"
)

// Recovery converts panics into generic 500 responses and forwards the
// failure to the alerting hook. alerter may be nil.
func Recovery(alerter notify.Alerter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					slog.Error("panic recovered", "error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))
					if alerter != nil {
						alerter.Alert(r.Context(), fmt.Sprintf("panic on %s %s: %v", r.Method, r.URL.Path, recovered))
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = jsonEncode(w, model.APIResponse{
						Success: false,
						Error: &model.APIError{
							Code:    "INTERNAL_ERROR",
							Message: "Unexpected server error",
						},
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
