package metrics

import "time"

// ResultLabel is the outcome label used by result counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder receives build and rendering observations.
type Recorder interface {
	IncPagesProcessed()
	IncPagesWritten()
	IncPagesUnchanged()
	AddEndpointsRendered(n int)
	IncEndpointError(kind string)
	IncSpecLoad(result ResultLabel)
	ObserveBuildDuration(d time.Duration)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) IncPagesProcessed()                 {}
func (NoopRecorder) IncPagesWritten()                   {}
func (NoopRecorder) IncPagesUnchanged()                 {}
func (NoopRecorder) AddEndpointsRendered(int)           {}
func (NoopRecorder) IncEndpointError(string)            {}
func (NoopRecorder) IncSpecLoad(ResultLabel)            {}
func (NoopRecorder) ObserveBuildDuration(time.Duration) {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
