// Package hotspot scores files by change frequency and size, and classifies
// how a file's size or complexity has moved over its history.
package hotspot

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adalundhe/seam/core/history"
)

// Proxy selects the size/complexity measure sampled for trends.
type Proxy string

const (
	// ProxyLines counts lines.
	ProxyLines Proxy = "lines"

	// ProxyIndent is the mean indentation depth of non-blank lines, a cheap
	// language-agnostic stand-in for nesting complexity.
	ProxyIndent Proxy = "indent"
)

// ParseProxy validates a proxy name. An empty name selects ProxyLines.
func ParseProxy(name string) (Proxy, error) {
	switch Proxy(name) {
	case "", ProxyLines:
		return ProxyLines, nil
	case ProxyIndent:
		return ProxyIndent, nil
	default:
		return "", fmt.Errorf("unknown trend proxy %q", name)
	}
}

type metrics struct {
	lines  int
	indent float64
}

func (m metrics) value(p Proxy) float64 {
	if p == ProxyIndent {
		return m.indent
	}
	return float64(m.lines)
}

// CountLines returns the number of lines in content. A final line without a
// trailing newline still counts.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// IndentDepth is the mean indentation level of the non-blank lines. A tab
// is one level; so are four spaces. Content with no such lines scores 0.
func IndentDepth(content string) float64 {
	total, lines := 0, 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		spaces, tabs := 0, 0
	scan:
		for _, r := range line {
			switch r {
			case '\t':
				tabs++
			case ' ':
				spaces++
			default:
				break scan
			}
		}
		total += tabs + spaces/4
	}
	if lines == 0 {
		return 0
	}
	return float64(total) / float64(lines)
}

func measure(content string) metrics {
	return metrics{lines: CountLines(content), indent: IndentDepth(content)}
}

// =============================================================================
// BlobMetrics
// =============================================================================

// DefaultMemoSize bounds the number of blobs whose metrics are remembered.
const DefaultMemoSize = 4096

// BlobMetrics measures file contents from history. Measurements are
// memoised by blob hash, so unchanged content is read once no matter how
// many revisions share it.
type BlobMetrics struct {
	src  history.ContentReader
	memo *lru.Cache[string, metrics]
}

// NewBlobMetrics wraps src with a memo of size entries.
func NewBlobMetrics(src history.ContentReader, size int) (*BlobMetrics, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, err := lru.New[string, metrics](size)
	if err != nil {
		return nil, err
	}
	return &BlobMetrics{src: src, memo: memo}, nil
}

// Lines returns the current line count of file at HEAD.
func (b *BlobMetrics) Lines(ctx context.Context, file string) (int, error) {
	m, err := b.metricsAt(ctx, "", file)
	if err != nil {
		return 0, err
	}
	return m.lines, nil
}

// Measure returns proxy for file at commit rev.
func (b *BlobMetrics) Measure(ctx context.Context, rev, file string, proxy Proxy) (float64, error) {
	m, err := b.metricsAt(ctx, rev, file)
	if err != nil {
		return 0, err
	}
	return m.value(proxy), nil
}

// FileRevisions delegates to the underlying reader.
func (b *BlobMetrics) FileRevisions(ctx context.Context, file string, limit int) ([]history.Revision, error) {
	return b.src.FileRevisions(ctx, file, limit)
}

// Memoised returns the number of blobs currently remembered.
func (b *BlobMetrics) Memoised() int {
	return b.memo.Len()
}

func (b *BlobMetrics) metricsAt(ctx context.Context, rev, file string) (metrics, error) {
	blob, err := b.src.BlobID(ctx, rev, file)
	if err != nil {
		return metrics{}, err
	}
	if m, ok := b.memo.Get(blob); ok {
		return m, nil
	}

	content, err := b.src.ReadBlob(ctx, blob)
	if err != nil {
		return metrics{}, err
	}
	m := measure(content)
	b.memo.Add(blob, m)
	return m, nil
}
