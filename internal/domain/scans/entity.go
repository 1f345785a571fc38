package scans

import (
	"fmt"
	"strings"
	"time"
)

// ScanID tipe untuk Scan
type ScanID = int64

// Progress enum
type Progress string

const (
	ProgressNotStarted Progress = "NOT_STARTED"
	ProgressInProgress Progress = "IN_PROGRESS"
	ProgressDone       Progress = "DONE"
	ProgressStopped    Progress = "STOPPED"
	ProgressError      Progress = "ERROR"
)

var progresses = []Progress{
	ProgressNotStarted,
	ProgressInProgress,
	ProgressDone,
	ProgressStopped,
	ProgressError,
}

// ParseProgress accepts any casing of a known progress name.
func ParseProgress(s string) (Progress, error) {
	up := Progress(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range progresses {
		if p == up {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown scan progress %q", s)
}

// Aggregate Root: Scan
type Scan struct {
	ID           ScanID    `json:"id"`
	Title        string    `json:"title"`
	Asset        *string   `json:"asset,omitempty"`
	Progress     Progress  `json:"progress"`
	AgentGroupID *int64    `json:"agent_group_id,omitempty"`
	CreatedTime  time.Time `json:"created_time"`
}

// NewScan carries the caller supplied fields of a scan to create.
type NewScan struct {
	Title       string
	Asset       *string
	CreatedTime time.Time
}

// Status is one entry of a scan's append-only status history.
type Status struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	ScanID ScanID `json:"scan_id"`
}
