package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/models"
)

// File formats understood by FileSink
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// FileSink writes followers and the run summary into a directory
type FileSink struct {
	outputDir string
	format    string
}

// NewFileSink creates outputDir if needed
func NewFileSink(outputDir, format string) (*FileSink, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatJSONL {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &FileSink{outputDir: outputDir, format: format}, nil
}

// FollowersPath is where the records for userID are written
func (s *FileSink) FollowersPath(userID string) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_followers.%s", userID, s.format))
}

// SummaryPath is where the run summary for userID is written
func (s *FileSink) SummaryPath(userID string) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_summary.json", userID))
}

// GetOutputDir returns the output directory path
func (s *FileSink) GetOutputDir() string {
	return s.outputDir
}

// Write stores res, replacing any earlier output for the same user
func (s *FileSink) Write(ctx context.Context, res *collector.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := writeAtomic(s.FollowersPath(res.UserID), func(w io.Writer) error {
		if s.format == FormatJSONL {
			enc := json.NewEncoder(w)
			for _, r := range res.Records {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		records := res.Records
		if records == nil {
			records = []models.FollowerRecord{}
		}
		return enc.Encode(records)
	})
	if err != nil {
		return fmt.Errorf("failed to save followers: %w", err)
	}

	err = writeAtomic(s.SummaryPath(res.UserID), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Summary())
	})
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// writeAtomic writes to a temporary file and renames it over path
func writeAtomic(path string, fill func(io.Writer) error) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	buf := bufio.NewWriter(out)
	err = fill(buf)
	if err == nil {
		err = buf.Flush()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
