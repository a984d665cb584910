package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// =============================================================================
// Configuration
// =============================================================================

// DefaultMaxCommitFiles is the commit size above which a commit is treated as
// a mass change and skipped.
const DefaultMaxCommitFiles = 50

// ScanConfig controls which commits qualify for co-change analysis.
type ScanConfig struct {
	// MaxCommitFiles skips commits that change more files than this.
	MaxCommitFiles int

	// SkipMessagePatterns are regular expressions matched against the subject.
	SkipMessagePatterns []string

	// ExcludePaths are glob patterns ('/' separated, '**' crosses directories).
	ExcludePaths []string
}

// DefaultScanConfig returns the defaults used when nothing is configured.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MaxCommitFiles: DefaultMaxCommitFiles,
		SkipMessagePatterns: []string{
			`(?i)^(style|chore)(\([^)]*\))?!?:\s*(format|fmt|lint|prettier)`,
			`(?i)\b(gofmt|goimports|prettier|reformat(ted)?|formatting)\b`,
			`(?i)\bmass[- ]rename\b`,
		},
		ExcludePaths: []string{
			"go.sum",
			"**/go.sum",
			"*.lock",
			"**/*.lock",
			"package-lock.json",
			"**/package-lock.json",
			"vendor/**",
			"**/node_modules/**",
		},
	}
}

// Fingerprint identifies the configuration. Cached results computed under a
// different fingerprint are not reused.
func (c ScanConfig) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(c.effectiveMax())))
	for _, p := range c.SkipMessagePatterns {
		h.Write([]byte("\x00m" + p))
	}
	for _, p := range c.ExcludePaths {
		h.Write([]byte("\x00x" + p))
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func (c ScanConfig) effectiveMax() int {
	if c.MaxCommitFiles <= 0 {
		return DefaultMaxCommitFiles
	}
	return c.MaxCommitFiles
}

// =============================================================================
// Filter
// =============================================================================

// SkipReason explains why a commit did not qualify.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipMerge        SkipReason = "merge"
	SkipEmpty        SkipReason = "empty"
	SkipTooManyFiles SkipReason = "too_many_files"
	SkipMessage      SkipReason = "message_pattern"
	SkipAllExcluded  SkipReason = "all_excluded"
)

// Filter removes noise commits and excluded paths.
type Filter struct {
	maxFiles int
	messages []*regexp.Regexp
	excludes []glob.Glob
}

// NewFilter compiles the patterns of cfg.
func NewFilter(cfg ScanConfig) (*Filter, error) {
	f := &Filter{maxFiles: cfg.effectiveMax()}

	for _, p := range cfg.SkipMessagePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: message pattern %q: %v", ErrInvalidPattern, p, err)
		}
		f.messages = append(f.messages, re)
	}

	for _, p := range cfg.ExcludePaths {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: exclude path %q: %v", ErrInvalidPattern, p, err)
		}
		f.excludes = append(f.excludes, g)
	}

	return f, nil
}

// Apply decides whether c qualifies and, if it does, returns its files with
// excluded paths removed.
func (f *Filter) Apply(c Commit) ([]string, SkipReason) {
	switch {
	case c.Merge:
		return nil, SkipMerge
	case len(c.Files) == 0:
		return nil, SkipEmpty
	case len(c.Files) > f.maxFiles:
		return nil, SkipTooManyFiles
	case f.skipMessage(c.Subject):
		return nil, SkipMessage
	}

	kept := make([]string, 0, len(c.Files))
	for _, file := range c.Files {
		if !f.Excluded(file) {
			kept = append(kept, file)
		}
	}
	if len(kept) == 0 {
		return nil, SkipAllExcluded
	}
	return kept, SkipNone
}

// Excluded reports whether path matches an exclude pattern.
func (f *Filter) Excluded(path string) bool {
	path = strings.TrimPrefix(path, "./")
	for _, g := range f.excludes {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (f *Filter) skipMessage(subject string) bool {
	for _, re := range f.messages {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}
