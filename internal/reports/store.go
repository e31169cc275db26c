package reports

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// PublicPrefix is the URL prefix uploaded reports are served under.
const PublicPrefix = "/uploads/"

var disallowedChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
var whitespaceRuns = regexp.MustCompile(`\s+`)

// Store writes uploaded report files to a directory served as static content.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save stores the file under a timestamped, sanitized name and returns the
// public path it will be served at.
func (s *Store) Save(filename string, data io.Reader) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), SanitizeFilename(filename))

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return PublicPrefix + name, nil
}

// FileServer serves stored reports read-only. Directory requests get a 404
// instead of an index page; report filenames must not be enumerable.
func (s *Store) FileServer() http.Handler {
	fs := http.FileServer(http.Dir(s.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// SanitizeFilename collapses whitespace runs to underscores and strips every
// character outside [A-Za-z0-9_.-], so the stored name is shell- and
// URL-safe.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = disallowedChars.ReplaceAllString(name, "")
	if name == "" {
		name = "report"
	}
	return name
}
