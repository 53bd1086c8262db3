package index

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line format, shared by temporary blocks and the final index:
//
//	term<TAB>doc:freq doc:freq ...<LF>
//
// Every line is self-contained and independently parseable, and the final
// index is addressed by the byte offset at which a line starts, so the
// encoding must be byte-stable: encoding the same entry always yields the
// same bytes.

// AppendLine encodes entry and appends it to dst.
func AppendLine(dst []byte, entry TermEntry) []byte {
	dst = append(dst, entry.Term...)
	dst = append(dst, '\t')
	for i, p := range entry.Postings {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendUint(dst, uint64(p.Doc), 10)
		dst = append(dst, ':')
		dst = strconv.AppendUint(dst, uint64(p.Freq), 10)
	}
	dst = append(dst, '\n')
	return dst
}

// EncodeLine encodes a single term entry as one line.
func EncodeLine(entry TermEntry) []byte {
	return AppendLine(nil, entry)
}

// DecodeLine parses one line (with or without the trailing newline) back
// into a TermEntry.
func DecodeLine(line []byte) (TermEntry, error) {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	term, rest, ok := bytes.Cut(line, []byte{'\t'})
	if !ok || len(term) == 0 {
		return TermEntry{}, fmt.Errorf("malformed index line %q", line)
	}
	entry := TermEntry{Term: string(term)}
	if len(rest) == 0 {
		return TermEntry{}, fmt.Errorf("index line for term %q has no postings", term)
	}
	fields := strings.Fields(string(rest))
	entry.Postings = make(PostingList, 0, len(fields))
	for _, field := range fields {
		docPart, freqPart, ok := strings.Cut(field, ":")
		if !ok {
			return TermEntry{}, fmt.Errorf("malformed posting %q for term %q", field, term)
		}
		doc, err := strconv.ParseUint(docPart, 10, 32)
		if err != nil {
			return TermEntry{}, fmt.Errorf("parsing doc id %q: %w", docPart, err)
		}
		freq, err := strconv.ParseUint(freqPart, 10, 32)
		if err != nil {
			return TermEntry{}, fmt.Errorf("parsing term frequency %q: %w", freqPart, err)
		}
		entry.Postings = append(entry.Postings, Posting{
			Doc:  DocID(doc),
			Freq: uint32(freq),
		})
	}
	return entry, nil
}

// LineScanner reads term entries sequentially from a block or final index
// file, tracking the byte offset at which each line starts.
type LineScanner struct {
	r      *bufio.Reader
	offset int64
}

// NewLineScanner wraps r in a buffered sequential scanner.
func NewLineScanner(r io.Reader) *LineScanner {
	return &LineScanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next entry and the offset of its first byte. It returns
// io.EOF after the last line; a line without a trailing newline is treated
// as truncation.
func (s *LineScanner) Next() (TermEntry, int64, error) {
	start := s.offset
	line, err := s.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return TermEntry{}, start, io.EOF
		}
		if err == io.EOF {
			return TermEntry{}, start, fmt.Errorf("truncated line at offset %d: %w", start, io.ErrUnexpectedEOF)
		}
		return TermEntry{}, start, fmt.Errorf("reading line at offset %d: %w", start, err)
	}
	s.offset += int64(len(line))
	entry, err := DecodeLine(line)
	if err != nil {
		return TermEntry{}, start, err
	}
	return entry, start, nil
}
