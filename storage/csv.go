package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"suumo-analysis/models"
)

// utf8BOM prefixes every table so spreadsheet tools detect UTF-8.
const utf8BOM = "\uFEFF"

// TimeLayout is the acquired_at format used in every table.
const TimeLayout = "2006-01-02 15:04:05"

// RawColumns is the header of the raw listing table.
var RawColumns = []string{
	"category", "building_name", "address", "access_1", "access_2", "access_3",
	"age", "stories", "floor", "rent", "admin_fee", "deposit", "gratuity",
	"layout", "area", "url", "acquired_at",
}

// StationColumns is the header of the station-time table.
var StationColumns = []string{"station_name", "time_to_target_min", "transfer_count"}

// FinalColumns is the column order of the enriched listing table.
var FinalColumns = []string{
	"building_name", "category", "address", "layout", "area", "floor", "stories", "age",
	"rent", "admin_fee", "deposit", "gratuity",
	"access_1_line", "access_1_station", "access_1_walk_min", "access_1_time_min", "access_1_transfer_count",
	"access_2_line", "access_2_station", "access_2_walk_min", "access_2_time_min", "access_2_transfer_count",
	"access_3_line", "access_3_station", "access_3_walk_min", "access_3_time_min", "access_3_transfer_count",
	"url", "acquired_at",
}

// Table is a header plus string rows, as stored on disk.
type Table struct {
	Header []string
	Rows   [][]string
}

// index maps column names to positions.
func (t *Table) index() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[h] = i
	}
	return idx
}

// Project returns the requested columns that exist in available, in the
// requested order. Unknown columns are dropped silently.
func Project(requested []string, available map[string]string) []string {
	out := make([]string, 0, len(requested))
	for _, c := range requested {
		if _, ok := available[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// WriteTable creates (or truncates) path and writes a BOM, the header and all
// rows. Intermediate directories are created automatically.
func WriteTable(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("csv: write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", path, err)
	}
	return f.Close()
}

// ReadTable reads a table written by WriteTable. A leading BOM is optional.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header %q: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read rows %q: %w", path, err)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// WriteRawListings saves scraped records in RawColumns order.
func WriteRawListings(path string, listings []*models.RawListing) error {
	t := &Table{Header: RawColumns, Rows: make([][]string, 0, len(listings))}
	for _, l := range listings {
		t.Rows = append(t.Rows, []string{
			l.Category, l.BuildingName, l.Address,
			l.Access[0], l.Access[1], l.Access[2],
			l.AgeRaw, l.StoriesRaw, l.FloorRaw,
			l.RentRaw, l.AdminFeeRaw, l.DepositRaw, l.GratuityRaw,
			l.LayoutRaw, l.AreaRaw, l.URL,
			l.AcquiredAt.Format(TimeLayout),
		})
	}
	return WriteTable(path, t)
}

// ReadRawListings loads a raw listing table. Columns are matched by name so
// missing ones read as empty strings.
func ReadRawListings(path string) ([]*models.RawListing, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	idx := t.index()

	out := make([]*models.RawListing, 0, len(t.Rows))
	for _, row := range t.Rows {
		get := cellGetter(idx, row)
		l := &models.RawListing{
			Category:     get("category"),
			BuildingName: get("building_name"),
			Address:      get("address"),
			AgeRaw:       get("age"),
			StoriesRaw:   get("stories"),
			FloorRaw:     get("floor"),
			RentRaw:      get("rent"),
			AdminFeeRaw:  get("admin_fee"),
			DepositRaw:   get("deposit"),
			GratuityRaw:  get("gratuity"),
			LayoutRaw:    get("layout"),
			AreaRaw:      get("area"),
			URL:          get("url"),
			AcquiredAt:   parseTime(get("acquired_at")),
		}
		for i := range l.Access {
			l.Access[i] = get(fmt.Sprintf("access_%d", i+1))
		}
		out = append(out, l)
	}
	return out, nil
}

// CSVStationStore keeps the station-time table in a CSV file.
type CSVStationStore struct {
	path string
}

// NewCSVStationStore creates a store backed by path. The file need not exist.
func NewCSVStationStore(path string) *CSVStationStore {
	return &CSVStationStore{path: path}
}

// Load reads the table; a missing file yields an empty store. Duplicate
// station names keep their first row.
func (s *CSVStationStore) Load() (*models.StationTimeStore, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return models.NewStationTimeStore(), nil
	}

	t, err := ReadTable(s.path)
	if err != nil {
		return nil, err
	}
	idx := t.index()

	store := models.NewStationTimeStore()
	for _, row := range t.Rows {
		get := cellGetter(idx, row)
		store.Append(models.StationTime{
			StationName:   get("station_name"),
			TimeMin:       parseFloat(get("time_to_target_min")),
			TransferCount: parseFloat(get("transfer_count")),
		})
	}
	return store, nil
}

// Save overwrites the table with the store's records in order.
func (s *CSVStationStore) Save(store *models.StationTimeStore) error {
	records := store.Records()
	t := &Table{Header: StationColumns, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.StationName, formatFloat(r.TimeMin), formatFloat(r.TransferCount)})
	}
	return WriteTable(s.path, t)
}

func (s *CSVStationStore) Close() error { return nil }

// CSVListingWriter writes the enriched listing table.
type CSVListingWriter struct {
	path    string
	columns []string
}

// NewCSVListingWriter creates a writer that emits columns (projected onto
// the fields a listing actually has) to path.
func NewCSVListingWriter(path string, columns []string) *CSVListingWriter {
	return &CSVListingWriter{path: path, columns: columns}
}

// Write replaces the file with one row per listing.
func (w *CSVListingWriter) Write(listings []*models.EnrichedListing) error {
	header := Project(w.columns, EnrichedRecord(&models.EnrichedListing{}))

	t := &Table{Header: header, Rows: make([][]string, 0, len(listings))}
	for _, l := range listings {
		rec := EnrichedRecord(l)
		row := make([]string, len(header))
		for i, c := range header {
			row[i] = rec[c]
		}
		t.Rows = append(t.Rows, row)
	}
	return WriteTable(w.path, t)
}

func (w *CSVListingWriter) Close() error { return nil }

// EnrichedRecord flattens a listing into column name → cell text.
// Nil values become empty cells.
func EnrichedRecord(l *models.EnrichedListing) map[string]string {
	rec := map[string]string{
		"building_name": l.BuildingName,
		"category":      l.Category,
		"address":       l.Address,
		"layout":        l.Layout,
		"area":          formatFloat(&l.Area),
		"floor":         formatFloat(l.Floor),
		"stories":       formatFloat(l.Stories),
		"age":           formatFloat(&l.Age),
		"rent":          formatFloat(&l.Rent),
		"admin_fee":     formatFloat(&l.AdminFee),
		"deposit":       formatFloat(&l.Deposit),
		"gratuity":      formatFloat(&l.Gratuity),
		"url":           l.URL,
		"acquired_at":   formatTime(l.AcquiredAt),
	}
	for i := 0; i < models.AccessSlots; i++ {
		p := fmt.Sprintf("access_%d_", i+1)
		a, tr := l.Access[i], l.Transit[i]
		rec[p+"line"] = a.Line
		rec[p+"station"] = a.Station
		rec[p+"walk_min"] = formatFloat(a.WalkMin)
		rec[p+"time_min"] = formatFloat(tr.TimeMin)
		rec[p+"transfer_count"] = formatFloat(tr.TransferCount)
	}
	return rec
}

// ReadEnrichedListings loads a table written by CSVListingWriter.
func ReadEnrichedListings(path string) ([]*models.EnrichedListing, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	idx := t.index()

	out := make([]*models.EnrichedListing, 0, len(t.Rows))
	for _, row := range t.Rows {
		get := cellGetter(idx, row)
		num := func(col string) float64 {
			if v := parseFloat(get(col)); v != nil {
				return *v
			}
			return 0
		}

		l := &models.EnrichedListing{}
		l.BuildingName = get("building_name")
		l.Category = get("category")
		l.Address = get("address")
		l.Layout = get("layout")
		l.Area = num("area")
		l.Floor = parseFloat(get("floor"))
		l.Stories = parseFloat(get("stories"))
		l.Age = num("age")
		l.Rent = num("rent")
		l.AdminFee = num("admin_fee")
		l.Deposit = num("deposit")
		l.Gratuity = num("gratuity")
		l.URL = get("url")
		l.AcquiredAt = parseTime(get("acquired_at"))
		for i := 0; i < models.AccessSlots; i++ {
			p := fmt.Sprintf("access_%d_", i+1)
			l.Access[i] = models.Access{
				Line:    get(p + "line"),
				Station: get(p + "station"),
				WalkMin: parseFloat(get(p + "walk_min")),
			}
			l.Transit[i] = models.Transit{
				TimeMin:       parseFloat(get(p + "time_min")),
				TransferCount: parseFloat(get(p + "transfer_count")),
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func cellGetter(idx map[string]int, row []string) func(string) string {
	return func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
