// Package logging builds the process-wide zap logger (§3.1's "ambient data
// model additions"): zap.NewProduction by default, zap.NewDevelopment under
// --verbose, grounded on the teacher's go.mod dependency on go.uber.org/zap
// and jakobht-cadence's field-building style (zap.String/zap.Error/zap.Bool
// passed alongside a log message rather than a format string).
package logging

import "go.uber.org/zap"

// New builds the root logger for one process invocation.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
