package lhotse

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kingrea/mtprep/internal/artifact"
)

const maxLineSize = 64 << 20

// ReadRecordings loads a recording set.
func ReadRecordings(path string) ([]Recording, error) {
	return readJSONL[Recording](path)
}

// ReadSupervisions loads a supervision set.
func ReadSupervisions(path string) ([]Supervision, error) {
	return readJSONL[Supervision](path)
}

// ReadCuts loads a cut-set.
func ReadCuts(path string) ([]Cut, error) {
	return readJSONL[Cut](path)
}

// WriteRecordings stores a recording set atomically.
func WriteRecordings(path string, items []Recording) error {
	return writeJSONL(path, items)
}

// WriteSupervisions stores a supervision set atomically.
func WriteSupervisions(path string, items []Supervision) error {
	return writeJSONL(path, items)
}

// WriteCuts stores a cut-set atomically.
func WriteCuts(path string, items []Cut) error {
	return writeJSONL(path, items)
}

func readJSONL[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lhotse: open %s: %w", path, err)
	}
	defer file.Close()
	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("lhotse: gzip %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var items []T
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("lhotse: %s line %d: %w", path, line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lhotse: read %s: %w", path, err)
	}
	return items, nil
}

// writeJSONL emits one JSON object per line. Gzip output carries no
// timestamp or file name, so identical items always produce identical bytes.
func writeJSONL[T any](path string, items []T) error {
	return artifact.WriteAtomic(path, func(w io.Writer) error {
		out := w
		var gz *gzip.Writer
		if strings.HasSuffix(path, ".gz") {
			gz = gzip.NewWriter(w)
			out = gz
		}
		buf := bufio.NewWriter(out)
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return fmt.Errorf("lhotse: encode %s: %w", path, err)
			}
		}
		if err := buf.Flush(); err != nil {
			return err
		}
		if gz != nil {
			return gz.Close()
		}
		return nil
	})
}
