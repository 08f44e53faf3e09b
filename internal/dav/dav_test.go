package dav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/panshare/sharedav/internal/sharecode"
	"github.com/panshare/sharedav/internal/store"
	"github.com/panshare/sharedav/internal/vfs"
)

type fakeSource struct {
	records []store.ShareRecord
}

func (f *fakeSource) ListVisible(_ context.Context, page int) ([]store.ListEntry, bool, error) {
	if page > 1 {
		return nil, true, nil
	}
	var entries []store.ListEntry
	for _, rec := range f.records {
		entries = append(entries, store.ListEntry{
			CodeHash:       rec.CodeHash,
			RootFolderName: rec.RootFolderName,
		})
	}
	return entries, true, nil
}

func (f *fakeSource) GetByHash(_ context.Context, codeHash string) (*store.ShareRecord, error) {
	for i := range f.records {
		if f.records[i].CodeHash == codeHash {
			return &f.records[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeURLResolver struct {
	url string
	err error
}

func (f *fakeURLResolver) ResolveURL(_ context.Context, name, etag string, size int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s/%s?size=%d&etag=%s", f.url, name, size, etag), nil
}

func testHandler(t *testing.T, urls URLResolver) http.Handler {
	t.Helper()
	code, err := sharecode.Encode([]sharecode.FileRecord{
		{FileID: 0, FileName: "Library", Type: sharecode.TypeDirectory, ParentFileID: -1, AbsPath: "0"},
		{FileID: 1, FileName: "A", Type: sharecode.TypeDirectory, ParentFileID: 0, AbsPath: "0/1"},
		{FileID: 2, FileName: "f.txt", Type: sharecode.TypeFile, Size: 42,
			Etag: "00000000000000000000000000000042", ParentFileID: 1, AbsPath: "0/1/2"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	src := &fakeSource{records: []store.ShareRecord{{
		CodeHash:       sharecode.Hash(code),
		RootFolderName: "Library",
		Visible:        true,
		ShareCode:      code,
	}}}
	resolver := vfs.NewResolver(src, vfs.ModeFlat)
	if err := resolver.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if urls == nil {
		urls = &fakeURLResolver{url: "https://cdn.example.com"}
	}
	creds := Credentials{Username: "dav", Password: "secret"}
	return BasicAuth(creds, NewHandler(resolver, urls, time.Second))
}

func request(t *testing.T, h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.SetBasicAuth("dav", "secret")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUnauthenticated(t *testing.T) {
	h := testHandler(t, nil)

	req := httptest.NewRequest("PROPFIND", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	req = httptest.NewRequest("PROPFIND", "/", nil)
	req.SetBasicAuth("dav", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", rec.Code)
	}
}

func TestBcryptCredentials(t *testing.T) {
	// bcrypt hash of "secret", cost 10.
	creds := Credentials{
		Username:       "dav",
		PasswordBcrypt: "$2b$10$UtWqGnrt5nEmwyfn2AEDhuflsd9aCAefM8vlLNlQ/cBVxq94kFqPm",
	}
	if !creds.check("dav", "secret") {
		t.Error("valid bcrypt credentials rejected")
	}
	if creds.check("dav", "wrong") {
		t.Error("invalid password accepted")
	}
}

func TestOptions(t *testing.T) {
	h := testHandler(t, nil)
	rec := request(t, h, http.MethodOptions, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "OPTIONS, GET, PROPFIND" {
		t.Errorf("Allow = %q", got)
	}
	if got := rec.Header().Get("DAV"); got != "1" {
		t.Errorf("DAV = %q", got)
	}
}

func TestPropfindDepth1(t *testing.T) {
	h := testHandler(t, nil)
	rec := request(t, h, "PROPFIND", "/Library/A", map[string]string{"Depth": "1"})
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"<D:multistatus",
		`xmlns:D="DAV:"`,
		"<D:href>/Library/A/</D:href>",
		"<D:href>/Library/A/f.txt</D:href>",
		"<D:collection>",
		`<D:getetag>&#34;00000000000000000000000000000042&#34;</D:getetag>`,
		"<D:getcontentlength>42</D:getcontentlength>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestPropfindDepth0(t *testing.T) {
	h := testHandler(t, nil)
	rec := request(t, h, "PROPFIND", "/Library/A", map[string]string{"Depth": "0"})
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "f.txt") {
		t.Errorf("depth 0 must not list children:\n%s", rec.Body.String())
	}
}

func TestPropfindDefaultsToDepth1(t *testing.T) {
	h := testHandler(t, nil)
	rec := request(t, h, "PROPFIND", "/Library", nil)
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<D:href>/Library/A/</D:href>") {
		t.Errorf("missing child listing:\n%s", rec.Body.String())
	}
}

func TestGetFileRedirects(t *testing.T) {
	h := testHandler(t, &fakeURLResolver{url: "https://cdn.example.com"})
	rec := request(t, h, http.MethodGet, "/Library/A/f.txt", nil)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	want := "https://cdn.example.com/f.txt?size=42&etag=00000000000000000000000000000042"
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestGetDirectoryNotAllowed(t *testing.T) {
	h := testHandler(t, nil)
	rec := request(t, h, http.MethodGet, "/Library/A", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestGetUpstreamFailure(t *testing.T) {
	h := testHandler(t, &fakeURLResolver{err: errors.New("boom")})
	rec := request(t, h, http.MethodGet, "/Library/A/f.txt", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	h := testHandler(t, nil)
	rec := request(t, h, "PROPFIND", "/Library/A/missing.txt", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUnknownMethod(t *testing.T) {
	h := testHandler(t, nil)
	for _, method := range []string{http.MethodPut, http.MethodDelete, "MKCOL", "MOVE"} {
		rec := request(t, h, method, "/Library", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", method, rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != "OPTIONS, GET, PROPFIND" {
			t.Errorf("%s: Allow = %q", method, got)
		}
	}
}
