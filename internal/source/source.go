// Package source loads the documents tagex extracts from: local files,
// standard input and http(s) URLs. HTML documents are reduced to their
// visible text.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/tagex/internal/htmltext"
)

// Stdin is the reference that reads standard input
const Stdin = "-"

// Document is a loaded input
type Document struct {
	Ref  string `json:"ref"`  // As given
	Name string `json:"name"` // File base name, URL subject or "stdin"
	Text string `json:"-"`
	HTML bool   `json:"html"` // Text was extracted from HTML
}

// Loader resolves references to documents
type Loader struct {
	stdin     io.Reader
	fetcher   *Fetcher
	maxBytes  int64
	forceHTML bool
}

// Option configures a Loader
type Option func(*Loader)

// WithFetcher enables http(s) references
func WithFetcher(f *Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithStdin sets the reader behind the "-" reference
func WithStdin(r io.Reader) Option {
	return func(l *Loader) { l.stdin = r }
}

// WithForceHTML treats every document as HTML
func WithForceHTML() Option {
	return func(l *Loader) { l.forceHTML = true }
}

// WithMaxBytes caps how much of a file or stdin is read
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// NewLoader creates a Loader reading os.Stdin for "-"
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		stdin:    os.Stdin,
		maxBytes: 16 << 20,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsURL reports whether ref is an http(s) URL
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads ref
func (l *Loader) Load(ctx context.Context, ref string) (*Document, error) {
	switch {
	case ref == Stdin:
		data, err := io.ReadAll(io.LimitReader(l.stdin, l.maxBytes))
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return l.document(ref, "stdin", data, "")

	case IsURL(ref):
		if l.fetcher == nil {
			return nil, fmt.Errorf("%s: url inputs are disabled", ref)
		}
		res, err := l.fetcher.FetchWithRetry(ctx, ref)
		if err != nil {
			return nil, err
		}
		return l.document(ref, res.Subject, res.Body, res.ContentType)

	default:
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
		defer func() { _ = f.Close() }()

		data, err := io.ReadAll(io.LimitReader(f, l.maxBytes))
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(ref))
		return l.document(ref, filepath.Base(ref), data, contentType)
	}
}

func (l *Loader) document(ref, name string, data []byte, contentType string) (*Document, error) {
	doc := &Document{Ref: ref, Name: name}
	if !l.forceHTML && !isHTML(data, contentType) {
		doc.Text = string(data)
		return doc, nil
	}

	text, err := htmltext.Extract(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	doc.Text = text
	doc.HTML = true
	return doc, nil
}

func isHTML(data []byte, contentType string) bool {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
