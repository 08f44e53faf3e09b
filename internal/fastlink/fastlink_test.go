package fastlink

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/panshare/sharedav/internal/sharecode"
)

func TestBase62ZeroValue(t *testing.T) {
	got, err := encodeEtag("00000000000000000000000000000000")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got != "0" {
		t.Fatalf("encode(0) = %q, want \"0\"", got)
	}
}

func TestBase62RoundTrip(t *testing.T) {
	cases := []string{
		"00000000000000000000000000000000",
		"00000000000000000000000000000001",
		"0000000000000000000000000000003e", // 62 -> "10"
		"df5f8f335a1043be16e3e6e8f83c3072",
		"ffffffffffffffffffffffffffffffff",
	}
	for _, hexEtag := range cases {
		enc, err := encodeEtag(hexEtag)
		if err != nil {
			t.Fatalf("encode %s: %v", hexEtag, err)
		}
		dec, err := decodeEtag(enc)
		if err != nil {
			t.Fatalf("decode %s: %v", enc, err)
		}
		if dec != hexEtag {
			t.Errorf("round trip %s -> %s -> %s", hexEtag, enc, dec)
		}
	}
}

func TestBase62Known(t *testing.T) {
	enc, err := encodeEtag("0000000000000000000000000000003e")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if enc != "10" {
		t.Fatalf("encode(62) = %q, want \"10\"", enc)
	}
}

func TestDecodeEtagRejectsBadDigit(t *testing.T) {
	if _, err := decodeEtag("abc-def"); err == nil {
		t.Fatal("expected error for invalid base62 digit")
	}
}

// shareFixture builds an anonymized share code for:
//
//	Collection/
//	    Movies/
//	        a.mkv
//	        b.mkv
//	    readme.txt
func shareFixture(t *testing.T) string {
	t.Helper()
	groups := map[int64][]sharecode.FileRecord{
		90: {
			{FileID: 17, FileName: "Movies", Type: sharecode.TypeDirectory, ParentFileID: 90},
			{FileID: 42, FileName: "readme.txt", Type: sharecode.TypeFile, Size: 10,
				Etag: "000000000000000000000000000000aa", ParentFileID: 90},
		},
		17: {
			{FileID: 23, FileName: "a.mkv", Type: sharecode.TypeFile, Size: 100,
				Etag: "df5f8f335a1043be16e3e6e8f83c3072", ParentFileID: 17},
			{FileID: 11, FileName: "b.mkv", Type: sharecode.TypeFile, Size: 200,
				Etag: "000000000000000000000000000000cc", ParentFileID: 17},
		},
	}
	records, err := sharecode.ExportListing(groups, 90)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	code, err := sharecode.Encode(records)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return code
}

// filePaths decodes a share code and returns path -> (size, etag) for every
// file record, with path segments resolved through the id -> name mapping.
func filePaths(t *testing.T, code string) map[string][2]string {
	t.Helper()
	records, err := sharecode.Decode(code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := make(map[string]string)
	for _, rec := range records {
		names[strconv.FormatInt(rec.FileID, 10)] = rec.FileName
	}
	out := make(map[string][2]string)
	for _, rec := range records {
		if rec.IsDir() {
			continue
		}
		segments := strings.Split(rec.AbsPath, "/")
		for i, seg := range segments {
			segments[i] = names[seg]
		}
		out[strings.Join(segments, "/")] = [2]string{strconv.FormatInt(rec.Size, 10), rec.Etag}
	}
	return out
}

func TestExport(t *testing.T) {
	doc, err := Export("Collection", shareFixture(t))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !doc.UsesBase62 {
		t.Error("exported document must set usesBase62EtagsInExport")
	}
	if doc.CommonPath != "Collection/" {
		t.Errorf("commonPath = %q, want \"Collection/\"", doc.CommonPath)
	}
	if len(doc.Files) != 3 {
		t.Fatalf("got %d files, want 3", len(doc.Files))
	}
	byPath := make(map[string]File)
	for _, f := range doc.Files {
		byPath[f.Path] = f
	}
	a, ok := byPath["Movies/a.mkv"]
	if !ok {
		t.Fatalf("missing Movies/a.mkv in %v", doc.Files)
	}
	if a.Size != 100 {
		t.Errorf("a.mkv size = %d, want 100", a.Size)
	}
	if dec, _ := decodeEtag(a.Etag); dec != "df5f8f335a1043be16e3e6e8f83c3072" {
		t.Errorf("a.mkv etag round trip = %q", dec)
	}
}

func TestExportRejectsDanglingAbsPathID(t *testing.T) {
	// AbsPath references folder id 7, but no record carries that id.
	code, err := sharecode.Encode([]sharecode.FileRecord{
		{FileID: 0, FileName: "a.mkv", Type: sharecode.TypeFile, Size: 100,
			Etag: "000000000000000000000000000000aa", ParentFileID: 7, AbsPath: "7/0"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Export("Broken", code); !errors.Is(err, sharecode.ErrMalformedShareCode) {
		t.Fatalf("err = %v, want ErrMalformedShareCode", err)
	}
}

func TestImportRejectsNonBase62(t *testing.T) {
	_, err := Import(&Document{UsesBase62: false})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	original := shareFixture(t)

	doc, err := Export("Collection", original)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	shares, err := Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("got %d shares, want 1", len(shares))
	}
	if shares[0].RootFolderName != "Collection" {
		t.Errorf("root folder = %q, want \"Collection\"", shares[0].RootFolderName)
	}

	// Original paths are rooted below "Collection"; imported ones include the
	// synthesized root directory.
	want := make(map[string][2]string)
	for path, meta := range filePaths(t, original) {
		want["Collection/"+path] = meta
	}
	got := filePaths(t, shares[0].ShareCode)
	if len(got) != len(want) {
		t.Fatalf("got %d files, want %d", len(got), len(want))
	}
	for path, meta := range want {
		if got[path] != meta {
			t.Errorf("path %q: got %v, want %v", path, got[path], meta)
		}
	}
}

func TestImportMultiRoot(t *testing.T) {
	doc := &Document{
		UsesBase62: true,
		CommonPath: "",
		Files: []File{
			{Path: "Alpha/one.bin", Size: 1, Etag: "1"},
			{Path: "Beta/two.bin", Size: 2, Etag: "2"},
			{Path: "loose.txt", Size: 3, Etag: "3"},
		},
	}
	shares, err := Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(shares))
	}

	byRoot := make(map[string]string)
	for _, s := range shares {
		byRoot[s.RootFolderName] = s.ShareCode
	}
	for _, root := range []string{"Alpha", "Beta", "loose.txt"} {
		if _, ok := byRoot[root]; !ok {
			t.Fatalf("missing share for root %q (have %v)", root, shares)
		}
	}

	// Each folder share is independently anonymized: one directory + one file.
	alpha := filePaths(t, byRoot["Alpha"])
	if meta, ok := alpha["Alpha/one.bin"]; !ok || meta[0] != "1" {
		t.Errorf("alpha share contents wrong: %v", alpha)
	}
	beta := filePaths(t, byRoot["Beta"])
	if meta, ok := beta["Beta/two.bin"]; !ok || meta[0] != "2" {
		t.Errorf("beta share contents wrong: %v", beta)
	}
	if byRoot["Alpha"] == byRoot["Beta"] {
		t.Error("distinct roots must not share a code")
	}

	// The loose file share holds exactly one anonymized file record.
	looseRecords, err := sharecode.Decode(byRoot["loose.txt"])
	if err != nil {
		t.Fatalf("decode loose share: %v", err)
	}
	if len(looseRecords) != 1 {
		t.Fatalf("loose share has %d records, want 1", len(looseRecords))
	}
	if looseRecords[0].FileID != 0 || looseRecords[0].FileName != "loose.txt" {
		t.Errorf("loose record = %+v", looseRecords[0])
	}
	if looseRecords[0].Etag != "00000000000000000000000000000003" {
		t.Errorf("loose etag = %q", looseRecords[0].Etag)
	}
}

func TestImportMatchesCrawlerEncoding(t *testing.T) {
	// Importing X/f.txt synthesizes a root record for X; crawling a provider
	// root that holds exactly one folder X with the same file must anonymize
	// to the identical share code, so both decode and resolve the same way.
	const etag = "000000000000000000000000000000aa"

	groups := map[int64][]sharecode.FileRecord{
		90: {{FileID: 17, FileName: "X", Type: sharecode.TypeDirectory, ParentFileID: 90}},
		17: {{FileID: 23, FileName: "f.txt", Type: sharecode.TypeFile, Size: 5,
			Etag: etag, ParentFileID: 17}},
	}
	records, err := sharecode.ExportListing(groups, 90)
	if err != nil {
		t.Fatalf("export listing: %v", err)
	}
	crawled, err := sharecode.Encode(records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	enc, err := encodeEtag(etag)
	if err != nil {
		t.Fatalf("encode etag: %v", err)
	}
	shares, err := Import(&Document{
		UsesBase62: true,
		CommonPath: "X/",
		Files:      []File{{Path: "f.txt", Size: 5, Etag: enc}},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("got %d shares, want 1", len(shares))
	}
	if shares[0].ShareCode != crawled {
		t.Errorf("codes differ:\n%s\n%s", shares[0].ShareCode, crawled)
	}
}

func TestImportSharedSubfolderNames(t *testing.T) {
	// The same folder name at different depths gets distinct ids.
	doc := &Document{
		UsesBase62: true,
		CommonPath: "Top/",
		Files: []File{
			{Path: "sub/sub/deep.bin", Size: 5, Etag: "5"},
			{Path: "sub/shallow.bin", Size: 6, Etag: "6"},
		},
	}
	shares, err := Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("got %d shares, want 1", len(shares))
	}
	got := filePaths(t, shares[0].ShareCode)
	if _, ok := got["Top/sub/sub/deep.bin"]; !ok {
		t.Errorf("missing deep path, got %v", got)
	}
	if _, ok := got["Top/sub/shallow.bin"]; !ok {
		t.Errorf("missing shallow path, got %v", got)
	}
}
