package cochange

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// snapshotVersion changes whenever the persisted layout does.
const snapshotVersion = 1

var ErrSnapshotMismatch = errors.New("snapshot does not match scan configuration")

type snapshot struct {
	Version     int            `json:"version"`
	Fingerprint string         `json:"fingerprint"`
	Head        string         `json:"head"`
	Commits     int            `json:"commits"`
	FileChanges map[string]int `json:"file_changes"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	Pairs       []snapshotPair `json:"pairs"`
}

type snapshotPair struct {
	Files   [2]string   `json:"files"`
	BySize  map[int]int `json:"by_size"`
	Commits int         `json:"commits"`
}

// encodeSnapshot serialises the weigher state along with the head it covers.
func encodeSnapshot(w *Weigher, head, fingerprint string) ([]byte, error) {
	s := snapshot{
		Version:     snapshotVersion,
		Fingerprint: fingerprint,
		Head:        head,
		Commits:     w.commits,
		FileChanges: w.fileChanges,
		Skipped:     w.skipped,
		Pairs:       make([]snapshotPair, 0, len(w.pairs)),
	}
	for key, p := range w.pairs {
		s.Pairs = append(s.Pairs, snapshotPair{Files: key, BySize: p.bySize, Commits: p.commits})
	}
	sortSnapshotPairs(s.Pairs)
	return json.Marshal(s)
}

// decodeSnapshot restores a weigher. Any structural problem is an error; the
// caller treats it as a cache miss.
func decodeSnapshot(data []byte, fingerprint string) (*Weigher, string, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, "", fmt.Errorf("%w: version %d", ErrSnapshotMismatch, s.Version)
	}
	if s.Fingerprint != fingerprint {
		return nil, "", fmt.Errorf("%w: fingerprint %q", ErrSnapshotMismatch, s.Fingerprint)
	}
	if s.Head == "" || s.Commits < 0 {
		return nil, "", errors.New("decode snapshot: missing head")
	}

	w := NewWeigher()
	w.commits = s.Commits
	for f, c := range s.FileChanges {
		w.fileChanges[f] = c
	}
	for r, c := range s.Skipped {
		w.skipped[r] = c
	}
	for _, sp := range s.Pairs {
		if sp.Files[0] == "" || sp.Files[1] == "" || sp.Files[0] >= sp.Files[1] {
			return nil, "", fmt.Errorf("decode snapshot: malformed pair %v", sp.Files)
		}
		p := &pairStats{bySize: make(map[int]int, len(sp.BySize)), commits: sp.Commits}
		for n, c := range sp.BySize {
			if n < 2 || c < 0 {
				return nil, "", fmt.Errorf("decode snapshot: malformed commit size %d for %v", n, sp.Files)
			}
			p.bySize[n] = c
		}
		w.pairs[sp.Files] = p
	}
	return w, s.Head, nil
}

func sortSnapshotPairs(pairs []snapshotPair) {
	sort.Slice(pairs, func(i, j int) bool {
		return lessFiles(pairs[i].Files, pairs[j].Files)
	})
}
