package hotspot

import (
	"context"
	"errors"
	"sort"

	"github.com/adalundhe/seam/core/history"
)

// Hotspot is a file's maintenance-risk score: how often it changes times how
// large it is now.
type Hotspot struct {
	File            string `json:"file"`
	ChangeFrequency int    `json:"change_frequency"`
	Lines           int    `json:"lines"`
	Score           int    `json:"hotspot_score"`
}

// LineCounter returns a file's current line count.
type LineCounter interface {
	Lines(ctx context.Context, file string) (int, error)
}

// Score ranks files by ChangeFrequency x Lines, highest first. Files that no
// longer exist or are binary are left out.
func Score(ctx context.Context, fileChanges map[string]int, counter LineCounter) ([]Hotspot, error) {
	files := make([]string, 0, len(fileChanges))
	for f := range fileChanges {
		files = append(files, f)
	}
	sort.Strings(files)

	out := make([]Hotspot, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines, err := counter.Lines(ctx, f)
		if err != nil {
			if errors.Is(err, history.ErrFileNotFound) || errors.Is(err, history.ErrBinaryFile) {
				continue
			}
			return nil, err
		}

		freq := fileChanges[f]
		out = append(out, Hotspot{File: f, ChangeFrequency: freq, Lines: lines, Score: freq * lines})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].ChangeFrequency != out[j].ChangeFrequency {
			return out[i].ChangeFrequency > out[j].ChangeFrequency
		}
		return out[i].File < out[j].File
	})
	return out, nil
}

// Top returns at most n hotspots. n <= 0 returns all of them.
func Top(hotspots []Hotspot, n int) []Hotspot {
	if n <= 0 || n >= len(hotspots) {
		return hotspots
	}
	return hotspots[:n]
}
