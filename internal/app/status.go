package app

import (
	"sync"

	"github.com/dcan-labs/fmripipe/internal/pipeline"
)

// runStatus tracks which session is being processed so the status endpoint
// can report progress while a run is in flight.
type runStatus struct {
	mu      sync.Mutex
	subject string
	session string
	exec    *pipeline.Executor
}

// statusReport is the JSON shape served by the /status endpoint.
type statusReport struct {
	Subject string                 `json:"subject"`
	Session string                 `json:"session"`
	Stages  []pipeline.StageStatus `json:"stages"`
}

func (s *runStatus) set(subject, session string, exec *pipeline.Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
	s.session = session
	s.exec = exec
}

func (s *runStatus) report() statusReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := statusReport{Subject: s.subject, Session: s.session}
	if s.exec != nil {
		report.Stages = s.exec.Snapshot()
	}
	return report
}
