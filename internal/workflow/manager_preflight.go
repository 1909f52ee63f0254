package workflow

import (
	"context"

	"contentflow/internal/logging"
	"contentflow/internal/preflight"
)

// runPreflightChecks logs the readiness of directories, binaries and the
// API key when the workflow starts. Failures do not stop the lanes; the
// affected stage fails with a specific error code instead.
func (m *Manager) runPreflightChecks(ctx context.Context) {
	for _, r := range preflight.RunAll(ctx, m.cfg) {
		if r.Passed {
			m.logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.WarnWithContext(m.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"),
			logging.String(logging.FieldImpact, "stages depending on this check will fail"),
		)
	}
}
