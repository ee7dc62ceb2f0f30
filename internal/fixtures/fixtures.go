// Package fixtures loads and writes chant corpora in the interchange
// formats used around Cantus-style databases: plain CSV, xz-compressed
// CSV, and Cantus Index XML exports. Records parse into Chant values
// whose references follow the core/chant conventions.
package fixtures

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
)

// Chant is one corpus record: a source reference, its texts, and the
// volpiano melody string.
type Chant struct {
	Ref      chant.Ref `json:"ref"`
	Incipit  string    `json:"incipit,omitempty"`
	FullText string    `json:"full_text"`
	Volpiano string    `json:"volpiano"`
}

// csvHeader is the required column order for CSV corpora.
var csvHeader = []string{"ref", "incipit", "full_text", "volpiano"}

// ReadCSV parses a CSV corpus. The first row must be the header
// "ref,incipit,full_text,volpiano"; each following row is one chant,
// with the ref column in the canonical "siglum folio sequence" form.
func ReadCSV(r io.Reader) ([]Chant, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &apperrors.ParseError{Format: "CSV", Message: "empty input"}
	}
	if err != nil {
		return nil, &apperrors.ParseError{Format: "CSV", Message: "reading header", Err: err}
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return nil, &apperrors.ParseError{
				Format:  "CSV",
				Message: fmt.Sprintf("header column %d is %q, want %q", i+1, header[i], want),
			}
		}
	}

	var chants []Chant
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, &apperrors.ParseError{
				Format:  "CSV",
				Message: fmt.Sprintf("row %d", row),
				Err:     err,
			}
		}

		ref, err := chant.ParseRef(record[0])
		if err != nil {
			return nil, apperrors.Wrapf(err, "row %d", row)
		}

		chants = append(chants, Chant{
			Ref:      *ref,
			Incipit:  record[1],
			FullText: record[2],
			Volpiano: record[3],
		})
	}
	return chants, nil
}

// WriteCSV writes a corpus in the format ReadCSV accepts.
func WriteCSV(w io.Writer, chants []Chant) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, c := range chants {
		record := []string{c.Ref.String(), c.Incipit, c.FullText, c.Volpiano}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write CSV record %s: %w", c.Ref.String(), err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSVXZ parses an xz-compressed CSV corpus.
func ReadCSVXZ(r io.Reader) ([]Chant, error) {
	xzReader, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("xz decompress: %w", err)
	}
	return ReadCSV(xzReader)
}

// WriteCSVXZ writes an xz-compressed CSV corpus.
func WriteCSVXZ(w io.Writer, chants []Chant) error {
	xzWriter, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("xz compress: %w", err)
	}
	if err := WriteCSV(xzWriter, chants); err != nil {
		xzWriter.Close()
		return err
	}
	return xzWriter.Close()
}

// fileFormat identifies a corpus file format by extension.
type fileFormat int

const (
	formatCSV fileFormat = iota
	formatCSVXZ
	formatXML
)

// detectFormat picks the corpus format from the file extension.
func detectFormat(path string) (fileFormat, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv.xz"):
		return formatCSVXZ, nil
	case strings.HasSuffix(lower, ".csv"):
		return formatCSV, nil
	case strings.HasSuffix(lower, ".xml"):
		return formatXML, nil
	}
	return 0, apperrors.NewUnsupported("corpus format", filepath.Ext(path))
}

// ReadFile loads a corpus file, picking the format from the extension
// (.csv, .csv.xz, or .xml).
func ReadFile(path string) ([]Chant, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	defer f.Close()

	switch format {
	case formatCSVXZ:
		return ReadCSVXZ(f)
	case formatXML:
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, apperrors.NewIO("read", path, err)
		}
		return ReadCantusXML(data)
	default:
		return ReadCSV(f)
	}
}

// WriteFile writes a corpus file, picking the format from the extension
// (.csv, .csv.xz, or .xml).
func WriteFile(path string, chants []Chant) error {
	format, err := detectFormat(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return apperrors.NewIO("create", path, err)
	}

	switch format {
	case formatCSVXZ:
		err = WriteCSVXZ(f, chants)
	case formatXML:
		var data []byte
		data, err = WriteCantusXML(chants)
		if err == nil {
			_, err = f.Write(data)
		}
	default:
		err = WriteCSV(f, chants)
	}
	if err != nil {
		f.Close()
		return apperrors.NewIO("write", path, err)
	}

	if err := f.Close(); err != nil {
		return apperrors.NewIO("close", path, err)
	}
	return nil
}
