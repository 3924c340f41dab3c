package e2e

import (
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/movierec/internal/models"
)

var catalogHeader = []string{"title", "genres", "vote_average", "vote_count", "spoken_languages"}

func catalogRow(it models.Item) ([]string, error) {
	genres, err := json.Marshal(it.Genres)
	if err != nil {
		return nil, err
	}
	langs, err := json.Marshal(it.SpokenLanguages)
	if err != nil {
		return nil, err
	}
	return []string{
		it.Title,
		string(genres),
		strconv.FormatFloat(it.VoteAverage, 'f', -1, 64),
		strconv.Itoa(it.VoteCount),
		string(langs),
	}, nil
}

// WriteCatalogCSV writes items as a catalog CSV with JSON list cells.
func WriteCatalogCSV(path string, items []models.Item) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(catalogHeader); err != nil {
		return err
	}
	for _, it := range items {
		row, err := catalogRow(it)
		if err != nil {
			return err
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCatalogXLSX writes items to the first sheet of a workbook.
func WriteCatalogXLSX(path string, items []models.Item) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(catalogHeader))
	for i, h := range catalogHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, it := range items {
		row, err := catalogRow(it)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// WriteEmbeddingsCSV writes one row of floats per vector.
func WriteEmbeddingsCSV(path string, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, v := range vectors {
		row := make([]string, len(v))
		for i, x := range v {
			row[i] = strconv.FormatFloat(float64(x), 'g', -1, 32)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteEmbeddingsRaw writes vectors as contiguous little-endian float32.
func WriteEmbeddingsRaw(path string, vectors [][]float32) error {
	var buf []byte
	for _, v := range vectors {
		for _, x := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		}
	}
	return os.WriteFile(path, buf, 0o644)
}
