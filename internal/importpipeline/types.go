// Package importpipeline implements §4.10's WorkflowOrchestrator: the
// library-scan-to-fused-song pipeline that turns raw audio files under a
// library root into hashed, segmented, identified, and flavor-fused
// Passages and Songs. SCANNING (phase 1) runs once per session; PROCESSING
// (phases 2-10) runs each discovered file through an independent pipeline
// on a bounded worker pool, so no phase batches across files.
package importpipeline

import (
	"encoding/json"
	"time"
)

// ProgressEvent is published on the event bus under the "ImportProgress"
// kind as the session advances (§6.4).
type ProgressEvent struct {
	SessionID int64
	State     string
	Current   int
	Total     int
	Operation string
	Errors    []string
}

// FileResult is the terminal outcome of one file's phase 2-10 run, used for
// session-level bookkeeping and logging.
type FileResult struct {
	FileID    int64
	Path      string
	Succeeded bool
	Err       error
	Elapsed   time.Duration
}

// discoveredFile is phase 1's output for one path: the minimal fields
// needed to create a File row, before any per-file processing runs.
type discoveredFile struct {
	relPath string
	size    int64
	modTime time.Time
}

// marshalErrors encodes per-file error messages for ImportSession.Errors.
// A marshal failure here would only hide diagnostics already logged
// elsewhere, so it falls back to an empty array rather than propagating.
func marshalErrors(messages []string) string {
	data, err := json.Marshal(messages)
	if err != nil {
		return "[]"
	}
	return string(data)
}
