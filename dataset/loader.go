package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	"golang.org/x/text/encoding/charmap"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// Encodings reported in LoadStats.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// LoadStats describes how a file was read.
type LoadStats struct {
	Rows     int
	Skipped  int
	Encoding string
}

// LoadCSV reads a raw survey table from a CSV file.
//
// Lines starting with '#' are comments. Lines with more fields than the
// header are skipped; shorter lines are padded with missing cells. Input that
// is not valid UTF-8 is decoded as latin-1.
func LoadCSV(path string) (*survey.RawTable, LoadStats, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return nil, LoadStats{}, errors.Newf("failed to read dataset %s: spreadsheet files are not supported, export to CSV", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "failed to read dataset %s", path)
	}
	defer f.Close()

	table, stats, err := ReadCSV(f)
	if err != nil {
		return nil, stats, errors.Wrapf(err, "failed to read dataset %s", path)
	}

	log.GetLoggerWithName("dataset.loader").Debug("Dataset loaded",
		log.SourcePathKey, path,
		log.SurveyRowsKey, stats.Rows,
		log.SkippedLinesKey, stats.Skipped,
		log.EncodingKey, stats.Encoding)
	return table, stats, nil
}

// ReadCSV reads a raw table from r. See LoadCSV.
func ReadCSV(r io.Reader) (*survey.RawTable, LoadStats, error) {
	stats := LoadStats{Encoding: EncodingUTF8}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, stats, errors.Wrap(err, "read failed")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, stats, errors.Wrap(err, "latin-1 decode failed")
		}
		data = decoded
		stats.Encoding = EncodingLatin1
	}

	reader := gocsv.LazyCSVReader(bytes.NewReader(data))
	if cr, ok := reader.(*csv.Reader); ok {
		cr.Comment = '#'
		cr.FieldsPerRecord = -1
		cr.ReuseRecord = false
	}

	header, err := reader.Read()
	if err == io.EOF {
		return survey.NewRawTable(nil, nil), stats, nil
	}
	if err != nil {
		return nil, stats, errors.Wrap(err, "failed to read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.Skipped++
				continue
			}
			return nil, stats, errors.Wrap(err, "failed to read record")
		}
		if len(record) > len(header) {
			stats.Skipped++
			continue
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}

	stats.Rows = len(rows)
	return survey.NewRawTable(header, rows), stats, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
