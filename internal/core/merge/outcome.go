package merge

// Status is the terminal classification of one file's merge attempt
type Status int

const (
	// StatusMerged means the sidecar metadata was written into the file
	StatusMerged Status = iota
	// StatusSkipped means there was no usable metadata; the file is untouched
	StatusSkipped
	// StatusFailed means the write was attempted and failed for this file
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusMerged:
		return "merged"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes render readably in the report JSON
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome records the result of one file's metadata merge. It is the only
// thing the engine ever hands upward: per-file failures are data here, not
// control flow.
type Outcome struct {
	Media     string `json:"media"`
	FinalPath string `json:"finalPath"` // Original path, or the merged copy in output mode
	Status    Status `json:"status"`
	Detail    string `json:"detail,omitempty"` // Error or skip reason
}

func merged(media, finalPath string) Outcome {
	return Outcome{Media: media, FinalPath: finalPath, Status: StatusMerged}
}

func skipped(media, detail string) Outcome {
	return Outcome{Media: media, FinalPath: media, Status: StatusSkipped, Detail: detail}
}

func failed(media, finalPath, detail string) Outcome {
	return Outcome{Media: media, FinalPath: finalPath, Status: StatusFailed, Detail: detail}
}
