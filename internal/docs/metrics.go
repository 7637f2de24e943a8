package docs

import "time"

// Metrics receives service-level observations. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ObserveUpload(files int, bytes int64)
	IncrementUploadFailed()
	IncrementDelete(found bool)
	ObserveStoreWrite(start time.Time)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveUpload(int, int64)   {}
func (NopMetrics) IncrementUploadFailed()     {}
func (NopMetrics) IncrementDelete(bool)       {}
func (NopMetrics) ObserveStoreWrite(time.Time) {}
