package server

import (
	"sync"
	"time"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/site"
)

// BuildStatus tracks the outcome of the most recent build for /healthz.
type BuildStatus struct {
	mu           sync.RWMutex
	lastError    error
	lastReport   *site.Report
	lastBuild    time.Time
	hasGoodBuild bool
}

// Record stores the result of a build. report may be nil when the build
// failed before producing one.
func (bs *BuildStatus) Record(report *site.Report, err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
	bs.lastReport = report
	bs.lastBuild = time.Now()
	if err == nil {
		bs.hasGoodBuild = true
	}
}

// Snapshot returns the last recorded build, whether any build has ever
// succeeded, and the last build error.
func (bs *BuildStatus) Snapshot() (report *site.Report, hasGoodBuild bool, err error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastReport, bs.hasGoodBuild, bs.lastError
}

// LastBuild returns when the last build finished.
func (bs *BuildStatus) LastBuild() time.Time {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastBuild
}
