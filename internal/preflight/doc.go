// Package preflight provides readiness checks for the binaries, directories
// and external services contentflow depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll when it starts and logs every
//     failure, so a missing ffmpeg shows up before the first render fails.
//   - The CLI "contentflow status" command uses the individual checks
//     (CheckLLM, CheckDirectoryAccess, CheckRelaysFromConfig) to display
//     service health.
//
// RunAll performs no network calls; CheckLLM does.
package preflight
