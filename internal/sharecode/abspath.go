package sharecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCyclicListing reports a provider listing whose folder grouping is not a
// tree rooted at the requested folder id.
var ErrCyclicListing = errors.New("cyclic or unrooted provider listing")

// DeriveAbsPaths fills in AbsPath for every record of a provider listing.
//
// groups maps a provider folder id to the records that folder directly
// contains; rootID is the folder the listing was crawled from. For each
// record the id chain is built by repeatedly prepending the id of the folder
// containing the current head segment until the head equals rootID, so the
// resulting chain is rootID-inclusive. ExportListing strips the root prefix
// before anonymization.
//
// The loop is bounded by the total record count: a listing with a cycle, or
// with records not reachable from rootID, fails with ErrCyclicListing
// instead of never terminating.
func DeriveAbsPaths(groups map[int64][]FileRecord, rootID int64) error {
	containing := make(map[int64]int64)
	total := 0
	for folderID, records := range groups {
		for _, rec := range records {
			containing[rec.FileID] = folderID
			total++
		}
	}

	for _, records := range groups {
		for i := range records {
			chain := []string{strconv.FormatInt(records[i].FileID, 10)}
			head := records[i].FileID
			for steps := 0; head != rootID; steps++ {
				parent, ok := containing[head]
				if !ok || steps >= total {
					return fmt.Errorf("%w: record %d does not reach root %d",
						ErrCyclicListing, records[i].FileID, rootID)
				}
				chain = append([]string{strconv.FormatInt(parent, 10)}, chain...)
				head = parent
			}
			records[i].AbsPath = strings.Join(chain, "/")
		}
	}
	return nil
}

// ExportListing turns a crawled provider listing into an encodable record
// set: derive absolute paths, strip the leading root id from every chain so
// the encoding is root-exclusive, then anonymize. Only the head of the chain
// is stripped; an inner id that happens to end with the root id's digits must
// stay intact.
func ExportListing(groups map[int64][]FileRecord, rootID int64) ([]FileRecord, error) {
	if err := DeriveAbsPaths(groups, rootID); err != nil {
		return nil, err
	}
	rootPrefix := strconv.FormatInt(rootID, 10) + "/"
	var all []FileRecord
	for _, records := range groups {
		for _, rec := range records {
			rec.AbsPath = strings.TrimPrefix(rec.AbsPath, rootPrefix)
			all = append(all, rec)
		}
	}
	return Anonymize(all), nil
}
