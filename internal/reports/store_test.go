package reports

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my report.pdf":     "my_report.pdf",
		"scan  (final).png": "scan_final.png",
		"a b\tc.txt":        "a_b_c.txt",
		"../../etc/passwd":  "....etcpasswd",
		"":                  "report",
		"абв.pdf":           ".pdf",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSave_TimestampedAndSanitized(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	path, err := store.Save("my report.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(path, PublicPrefix) {
		t.Fatalf("expected %s prefix, got %q", PublicPrefix, path)
	}

	name := strings.TrimPrefix(path, PublicPrefix)
	if strings.ContainsAny(name, " \t") {
		t.Fatalf("stored name contains whitespace: %q", name)
	}
	if !regexp.MustCompile(`^[0-9]+_my_report\.pdf$`).MatchString(name) {
		t.Fatalf("unexpected stored name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestFileServer_NoDirectoryListing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	path, err := store.Save("confidential scan.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	name := strings.TrimPrefix(path, PublicPrefix)

	// Mounted exactly as in main: the public prefix stripped off before the
	// store's file server sees the path.
	h := http.StripPrefix(PublicPrefix, store.FileServer())

	dirReq := httptest.NewRequest(http.MethodGet, PublicPrefix, nil)
	dirRW := httptest.NewRecorder()
	h.ServeHTTP(dirRW, dirReq)
	if dirRW.Code != http.StatusNotFound {
		t.Fatalf("directory request should 404, got %d", dirRW.Code)
	}
	if strings.Contains(dirRW.Body.String(), name) {
		t.Fatalf("directory response leaks report filenames: %s", dirRW.Body.String())
	}

	fileReq := httptest.NewRequest(http.MethodGet, path, nil)
	fileRW := httptest.NewRecorder()
	h.ServeHTTP(fileRW, fileReq)
	if fileRW.Code != http.StatusOK {
		t.Fatalf("stored report should still be served, got %d", fileRW.Code)
	}
	if fileRW.Body.String() != "%PDF-1.4" {
		t.Fatalf("served content mismatch: %q", fileRW.Body.String())
	}
}

func TestNewStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	if _, err := NewStore(dir); err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("upload dir not created: %v", err)
	}
}
