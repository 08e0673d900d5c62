package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/linkedin-optimizer/internal/types"
)

const exportPrefix = "linkedin_optimized_"

// ExportText renders the text artifact for a completed run.
func ExportText(r *types.RunResult, generated time.Time) string {
	var sb strings.Builder
	sb.WriteString("OPTIMIZED LINKEDIN PROFILE\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", generated.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Target Role: %s\n", r.Profile.TargetRole))
	sb.WriteString("\n")
	sb.WriteString(r.Results[types.StageRewriter])
	sb.WriteString("\n\nQUALITY REVIEW:\n")
	sb.WriteString(r.Results[types.StageReviewer])
	sb.WriteString("\n")
	return sb.String()
}

// Export writes linkedin_optimized_YYYYMMDD_HHMMSS.txt and returns its path.
func (s *Store) Export(r *types.RunResult, now time.Time) (string, error) {
	if r == nil || r.Results == nil {
		return "", &StoreError{Op: "export", Path: exportPrefix + "*", Cause: errors.New("no results to export")}
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", &StoreError{Op: "mkdir", Path: s.dir, Cause: err}
	}

	path := filepath.Join(s.dir, exportPrefix+now.Format(fileStampLayout)+".txt")
	if err := os.WriteFile(path, []byte(ExportText(r, now)), 0644); err != nil {
		return "", &StoreError{Op: "write", Path: path, Cause: err}
	}
	return path, nil
}

// DownloadName returns the file name offered for a direct download.
func DownloadName(now time.Time) string {
	return exportPrefix + now.Format("20060102") + ".txt"
}

// DownloadContent returns the body of a direct download: the rewritten profile only.
func DownloadContent(r *types.RunResult) string {
	if r == nil {
		return ""
	}
	return r.Results[types.StageRewriter]
}
