// Package archive persists the listings mined for a phrase.
//
// Every phrase owns one append archive, named after the phrase, plus any
// number of timestamped snapshot archives named "<phrase>_<unix seconds>".
// Saves for the same phrase are not synchronized with each other; two
// processes appending to one phrase at once can lose rows.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lukman83/listing-miner/internal/models"
)

// ErrNotFound is returned when loading an archive that does not exist.
var ErrNotFound = errors.New("archive: not found")

// Mode selects how Save treats earlier results for the same phrase.
type Mode string

const (
	// ModeAppend merges into the phrase's archive; fresh rows replace stored
	// rows with the same id.
	ModeAppend Mode = "append"
	// ModeNewFile writes an independent timestamped snapshot.
	ModeNewFile Mode = "new_file"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAppend, ModeNewFile:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("archive: unknown save mode %q (want %q or %q)", s, ModeAppend, ModeNewFile)
	}
}

// Store loads and saves archives.
type Store interface {
	// Load returns the listings of the named archive or ErrNotFound.
	// Names that are not a single path element are rejected.
	Load(ctx context.Context, name string) ([]models.Listing, error)
	// Save persists listings for phrase and returns the archive name written.
	// Rows sharing an id are collapsed to the last one in either mode.
	Save(ctx context.Context, phrase string, listings []models.Listing, mode Mode) (string, error)
	// List returns the archive names belonging to phrase: the append archive
	// first, then snapshots newest first.
	List(ctx context.Context, phrase string) ([]string, error)
	Close() error
}

// BaseName turns a phrase into a name safe to use as an archive key and as a
// file name.
func BaseName(phrase string) (string, error) {
	name := strings.TrimSpace(phrase)
	if name == "" {
		return "", errors.New("archive: empty phrase")
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." {
		return "", fmt.Errorf("archive: invalid phrase %q", phrase)
	}
	return name, nil
}

func snapshotName(base string, at time.Time, attempt int) string {
	name := fmt.Sprintf("%s_%d", base, at.Unix())
	if attempt > 0 {
		name += fmt.Sprintf("-%d", attempt)
	}
	return name
}

// isArchiveOf reports whether name is the append archive or a snapshot of base.
func isArchiveOf(name, base string) bool {
	if name == base {
		return true
	}
	rest, ok := strings.CutPrefix(name, base+"_")
	if !ok || rest == "" {
		return false
	}
	digits, _, _ := strings.Cut(rest, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// checkName rejects archive names that would resolve outside the store.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("archive: invalid archive name %q", name)
	}
	return nil
}

// snapshotKey parses "<base>_<unix>[-n]" into its timestamp and collision
// suffix.
func snapshotKey(name, base string) (unix int64, suffix int) {
	rest := strings.TrimPrefix(name, base+"_")
	digits, n, _ := strings.Cut(rest, "-")
	unix, _ = strconv.ParseInt(digits, 10, 64)
	suffix, _ = strconv.Atoi(n)
	return unix, suffix
}

// sortArchives puts the append archive first, then snapshots newest first.
func sortArchives(names []string, base string) {
	sort.SliceStable(names, func(i, j int) bool {
		if names[i] == base || names[j] == base {
			return names[i] == base && names[j] != base
		}
		ui, si := snapshotKey(names[i], base)
		uj, sj := snapshotKey(names[j], base)
		if ui != uj {
			return ui > uj
		}
		return si > sj
	})
}
