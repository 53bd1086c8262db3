package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONL reads records from a file of newline-delimited JSON objects, one
// {"id": ..., "text": ...} per line, in file order.
type JSONL struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// OpenJSONL opens the given JSONL file for a single sequential pass.
func OpenJSONL(path string) (*JSONL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening record file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &JSONL{file: f, scanner: scanner}, nil
}

// Next implements Reader.
func (j *JSONL) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	for j.scanner.Scan() {
		j.line++
		data := j.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return Record{}, fmt.Errorf("parsing record at line %d: %w", j.line, err)
		}
		return rec, nil
	}
	if err := j.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("reading record file: %w", err)
	}
	return Record{}, io.EOF
}

// Close implements Reader.
func (j *JSONL) Close() error {
	return j.file.Close()
}
