package plan

// Options collects the five recognized configuration flags into a single
// immutable value passed through the pipeline rather than process-wide
// globals, so two plans built in the same process can use different
// settings.
type Options struct {
	// EnableSubqueryToMarkJoin: whether the subquery-to-join rewrite fires.
	// Default true.
	EnableSubqueryToMarkJoin bool
	// EnableHashJoin: if false, always emit NL join. Default true.
	EnableHashJoin bool
	// EnableNLJoin: if false, joining when hash is not applicable is a
	// planner error. Default true.
	EnableNLJoin bool
	// UseMemo: memo-optimizer selection flag. Default false. No stage of the
	// pipeline reads it; physic.Translate always translates directly.
	UseMemo bool
	// ProfilingEnabled: wrap each physical node in the profiling
	// decorator. Default false.
	ProfilingEnabled bool
}

// DefaultOptions returns the default configuration: both join strategies and
// the subquery rewrite enabled, memo search and profiling off.
func DefaultOptions() Options {
	return Options{
		EnableSubqueryToMarkJoin: true,
		EnableHashJoin:           true,
		EnableNLJoin:             true,
		UseMemo:                  false,
		ProfilingEnabled:         false,
	}
}
