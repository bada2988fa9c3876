package logging

import "sync"

// DiagnosticSink logs fail-soft upstream failures and keeps a per-source
// count of how many were reported.
type DiagnosticSink struct {
	logger *Logger
	mu     sync.Mutex
	counts map[string]int
}

func NewDiagnosticSink(logger *Logger) *DiagnosticSink {
	return &DiagnosticSink{
		logger: logger,
		counts: make(map[string]int),
	}
}

// Report implements domain.DiagnosticSink.
func (d *DiagnosticSink) Report(source string, err error) {
	d.mu.Lock()
	d.counts[source]++
	d.mu.Unlock()

	d.logger.Warn().Str("source", source).Err(err).Msg("upstream fetch failed")
}

// Counts returns a copy of the failure counts by source.
func (d *DiagnosticSink) Counts() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
