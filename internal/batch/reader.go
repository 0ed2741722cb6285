// Package batch creates one draft per row of a (recipient, folder) list.
package batch

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nhle/maildraft/internal/model"
)

// Header names of the required columns. Matching is case-sensitive.
const (
	ColumnReceiver = "Receiver"
	ColumnFolder   = "Folder"
)

// HeaderError reports a batch file whose header lacks a required column.
type HeaderError struct {
	Missing string
	Header  []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("batch header is missing column %q (have %s)",
		e.Missing, strings.Join(e.Header, ", "))
}

// decoder returns the text decoder for a configured encoding name.
// UTF-16 without a BOM is read as little-endian.
func decoder(enc string) (*encoding.Decoder, error) {
	switch strings.ToLower(enc) {
	case "", model.EncodingUTF16, "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case model.EncodingUTF8, "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported batch encoding %q", enc)
	}
}

// ReadEntries decodes r with the named encoding and returns one entry per
// data row, in file order. The header row must contain Receiver and Folder;
// other columns are ignored. Comma and tab delimited files are accepted.
func ReadEntries(r io.Reader, enc string) ([]model.BatchEntry, error) {
	dec, err := decoder(enc)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(transform.NewReader(r, dec))
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &HeaderError{Missing: ColumnReceiver}
	}
	if err != nil {
		return nil, fmt.Errorf("reading batch header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := colIdx[h]; !seen {
			colIdx[h] = i
		}
	}
	for _, col := range []string{ColumnReceiver, ColumnFolder} {
		if _, ok := colIdx[col]; !ok {
			return nil, &HeaderError{Missing: col, Header: header}
		}
	}

	getCol := func(row []string, col string) string {
		i := colIdx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entries []model.BatchEntry
	for rowNum := 1; ; rowNum++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading batch row %d: %w", rowNum, err)
		}
		entries = append(entries, model.BatchEntry{
			Row:       rowNum,
			Recipient: getCol(row, ColumnReceiver),
			Folder:    getCol(row, ColumnFolder),
		})
	}

	return entries, nil
}

// sniffDelimiter picks tab when the header line has tabs but no commas,
// as spreadsheet "Unicode text" exports do.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.IndexByte(line, '\t') >= 0 && bytes.IndexByte(line, ',') < 0 {
		return '\t'
	}
	return ','
}
