// Package metrics records purge and zone lookup activity for Prometheus.
package metrics

import "time"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Zone lookup source label values.
const (
	SourceCache = "cache"
	SourceAPI   = "api"
)

// Recorder is what the purge pipeline reports to.
type Recorder interface {
	RecordPurge(kind, outcome string)
	RecordPurgeRequest(outcome string, duration time.Duration)
	RecordPurgedFiles(count int)
	RecordZoneLookup(source, outcome string)
}

// Noop discards every observation. Used when metrics are disabled.
type Noop struct{}

func (Noop) RecordPurge(string, string)               {}
func (Noop) RecordPurgeRequest(string, time.Duration) {}
func (Noop) RecordPurgedFiles(int)                    {}
func (Noop) RecordZoneLookup(string, string)          {}
