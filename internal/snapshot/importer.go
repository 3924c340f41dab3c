package snapshot

import (
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/movierec/internal/models"
)

// Catalog columns, matched case-insensitively against the header row.
const (
	colTitle           = "title"
	colGenres          = "genres"
	colVoteAverage     = "vote_average"
	colVoteCount       = "vote_count"
	colSpokenLanguages = "spoken_languages"
)

// ReadCatalog reads catalog rows from a .csv or .xlsx file. The first row is a
// header; only the title column is required. Row order defines item ids.
func ReadCatalog(path string) ([]models.Item, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (supported: .csv, .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return parseCatalogRows(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func parseCatalogRows(rows [][]string) ([]models.Item, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog needs a header row and at least one item")
	}
	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols[colTitle]; !ok {
		return nil, fmt.Errorf("catalog header has no %q column", colTitle)
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	items := make([]models.Item, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		it := models.Item{ID: models.ItemID(n), Title: cell(row, colTitle)}
		if it.Title == "" {
			return nil, fmt.Errorf("row %d: empty title", line)
		}
		var err error
		if it.VoteAverage, err = parseFloat(cell(row, colVoteAverage)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", line, colVoteAverage, err)
		}
		count, err := parseFloat(cell(row, colVoteCount))
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", line, colVoteCount, err)
		}
		it.VoteCount = int(count)
		it.Genres = ParseList(cell(row, colGenres))
		it.SpokenLanguages = ParseList(cell(row, colSpokenLanguages))
		items = append(items, it)
	}
	return items, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParseList reads a list cell. Accepted forms: a JSON array of strings, a JSON
// array of objects with a "name" field, a Python-style list literal, or a
// comma-separated string.
func ParseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var strs []string
		if err := json.Unmarshal([]byte(s), &strs); err == nil {
			return strs
		}
		var named []struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(s), &named); err == nil {
			out := make([]string, 0, len(named))
			for _, n := range named {
				if n.Name != "" {
					out = append(out, n.Name)
				}
			}
			return out
		}
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), `'"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ReadEmbeddings reads one vector per item from a .csv file (one row of floats
// per item, optional header), a .npy array (float32 or float64, shape (n, d), via npyio),
// or a raw little-endian float32 file (.f32, .bin) which needs dims.
func ReadEmbeddings(path string, dims int) ([][]float32, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		return parseVectorRows(rows)
	case ".npy":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open npy: %w", err)
		}
		defer f.Close()
		return readNPY(f)
	case ".f32", ".bin":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open raw vectors: %w", err)
		}
		defer f.Close()
		return readRawFloat32(f, dims)
	default:
		return nil, fmt.Errorf("unsupported embeddings format %q (supported: .csv, .npy, .f32, .bin)", filepath.Ext(path))
	}
}

func parseVectorRows(rows [][]string) ([][]float32, error) {
	out := make([][]float32, 0, len(rows))
	for n, row := range rows {
		v := make([]float32, 0, len(row))
		var err error
		for _, c := range row {
			var f float64
			if f, err = strconv.ParseFloat(strings.TrimSpace(c), 32); err != nil {
				break
			}
			v = append(v, float32(f))
		}
		if err != nil {
			if n == 0 {
				continue // header
			}
			return nil, fmt.Errorf("embeddings row %d: %w", n+1, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no embedding rows found")
	}
	return out, nil
}

func readRawFloat32(r io.Reader, dims int) ([][]float32, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("raw float32 embeddings need a positive dimension")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read raw vectors: %w", err)
	}
	rowBytes := 4 * dims
	if len(data) == 0 || len(data)%rowBytes != 0 {
		return nil, fmt.Errorf("raw vectors have %d bytes, not a multiple of %d x 4", len(data), dims)
	}
	out := make([][]float32, len(data)/rowBytes)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*rowBytes+j*4:]))
		}
		out[i] = v
	}
	return out, nil
}

// readNPY decodes a 2-D little-endian float32 or float64 .npy array, in C or
// Fortran order.
func readNPY(r io.Reader) ([][]float32, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	descr := rd.Header.Descr
	if len(descr.Shape) != 2 {
		return nil, fmt.Errorf("npy array must be 2-dimensional, got shape %v", descr.Shape)
	}
	n, d := descr.Shape[0], descr.Shape[1]
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("npy array is empty")
	}

	var flat []float32
	switch descr.Type {
	case "<f4":
		if err := rd.Read(&flat); err != nil {
			return nil, fmt.Errorf("read npy data: %w", err)
		}
	case "<f8":
		var wide []float64
		if err := rd.Read(&wide); err != nil {
			return nil, fmt.Errorf("read npy data: %w", err)
		}
		flat = make([]float32, len(wide))
		for i, v := range wide {
			flat[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported npy dtype %s (supported: <f4, <f8)", descr.Type)
	}
	if len(flat) != n*d {
		return nil, fmt.Errorf("npy array has %d values, expected %d x %d", len(flat), n, d)
	}

	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, d)
		for j := range v {
			if descr.Fortran {
				v[j] = flat[j*n+i]
			} else {
				v[j] = flat[i*d+j]
			}
		}
		out[i] = v
	}
	return out, nil
}
