package archive

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lukman83/listing-miner/internal/aggregate"
	"github.com/lukman83/listing-miner/internal/models"
)

var csvHeader = []string{"id", "name", "delivery_cost", "cost", "stock", "category_id"}

// encoding/csv reads CRLF inside a quoted field back as LF, so text columns
// carry backslash and CR escaped.
var (
	textEscaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`)
	textUnescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r")
)

// CSVStore keeps one CSV file per archive inside a directory.
type CSVStore struct {
	dir string
	now func() time.Time
}

// NewCSVStore creates the directory if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	return &CSVStore{dir: dir, now: time.Now}, nil
}

func (s *CSVStore) path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) Load(_ context.Context, name string) ([]models.Listing, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", name, err)
	}
	defer f.Close()

	listings, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return listings, nil
}

func (s *CSVStore) Save(ctx context.Context, phrase string, listings []models.Listing, mode Mode) (string, error) {
	base, err := BaseName(phrase)
	if err != nil {
		return "", err
	}

	switch mode {
	case ModeAppend:
		existing, err := s.Load(ctx, base)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return "", err
		default:
			listings = aggregate.MergeLatest(existing, listings)
		}
		if err := s.replace(base, listings); err != nil {
			return "", err
		}
		return base, nil

	case ModeNewFile:
		listings = aggregate.MergeLatest(listings)
		at := s.now()
		for attempt := 0; ; attempt++ {
			name := snapshotName(base, at, attempt)
			f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("archive: create %s: %w", name, err)
			}
			if err := writeCSV(f, listings); err != nil {
				f.Close()
				os.Remove(f.Name())
				return "", fmt.Errorf("archive: write %s: %w", name, err)
			}
			if err := f.Close(); err != nil {
				return "", fmt.Errorf("archive: close %s: %w", name, err)
			}
			return name, nil
		}

	default:
		return "", fmt.Errorf("archive: unknown save mode %q", mode)
	}
}

// replace rewrites an archive through a temp file so readers never observe a
// half-written file.
func (s *CSVStore) replace(name string, listings []models.Listing) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("archive: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, listings); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("archive: rename %s: %w", name, err)
	}
	return nil
}

func (s *CSVStore) List(_ context.Context, phrase string) ([]string, error) {
	base, err := BaseName(phrase)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("archive: list %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".csv")
		if !ok || e.IsDir() || !isArchiveOf(name, base) {
			continue
		}
		names = append(names, name)
	}
	sortArchives(names, base)
	return names, nil
}

func writeCSV(w io.Writer, listings []models.Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range listings {
		err := cw.Write([]string{
			textEscaper.Replace(l.ID),
			textEscaper.Replace(l.Name),
			strconv.FormatFloat(l.DeliveryCost, 'f', -1, 64),
			strconv.FormatFloat(l.Cost, 'f', -1, 64),
			strconv.Itoa(l.Stock),
			strconv.FormatInt(int64(l.CategoryID), 10),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([]models.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return []models.Listing{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected header %v", header)
		}
	}

	listings := []models.Listing{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return listings, nil
		}
		if err != nil {
			return nil, err
		}
		l, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		listings = append(listings, l)
	}
}

func parseRow(rec []string) (models.Listing, error) {
	delivery, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return models.Listing{}, fmt.Errorf("delivery_cost: %w", err)
	}
	cost, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return models.Listing{}, fmt.Errorf("cost: %w", err)
	}
	stock, err := strconv.Atoi(rec[4])
	if err != nil {
		return models.Listing{}, fmt.Errorf("stock: %w", err)
	}
	category, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return models.Listing{}, fmt.Errorf("category_id: %w", err)
	}
	return models.Listing{
		ID:           textUnescaper.Replace(rec[0]),
		Name:         textUnescaper.Replace(rec[1]),
		DeliveryCost: delivery,
		Cost:         cost,
		Stock:        stock,
		CategoryID:   models.CategoryID(category),
	}, nil
}
