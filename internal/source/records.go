package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"sc-provisioner/internal/entities"
)

// LoadRecords reads a .csv or .yaml/.yml file and returns its curated records.
func LoadRecords(path string) ([]entities.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var records []entities.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = ReadCSV(f)
	case ".yaml", ".yml":
		records, err = ReadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported record file %s: want .csv, .yaml or .yml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Curate(records), nil
}

// ReadCSV reads records from CSV with a header row. The code column may be
// called number or code; cost is required and type is optional.
func ReadCSV(r io.Reader) ([]entities.Record, error) {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	codeCol, ok := index["number"]
	if !ok {
		if codeCol, ok = index["code"]; !ok {
			return nil, fmt.Errorf("missing required header column: number")
		}
	}
	costCol, ok := index["cost"]
	if !ok {
		return nil, fmt.Errorf("missing required header column: cost")
	}
	typeCol, hasType := index["type"]

	var records []entities.Record
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		rec, err := newRecord(field(row, codeCol), field(row, costCol), "")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if hasType {
			rec.Type = field(row, typeCol)
		}
		records = append(records, rec)
	}
	return records, nil
}

type yamlRecord struct {
	Code   string `yaml:"code"`
	Number string `yaml:"number"`
	Cost   string `yaml:"cost"`
	Type   string `yaml:"type"`
}

// ReadYAML reads a YAML list of {code|number, cost, type} entries.
func ReadYAML(r io.Reader) ([]entities.Record, error) {
	var raw []yamlRecord
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	records := make([]entities.Record, 0, len(raw))
	for i, item := range raw {
		code := item.Code
		if code == "" {
			code = item.Number
		}
		rec, err := newRecord(code, item.Cost, strings.TrimSpace(item.Type))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Curate keeps one record per code, the one with the highest cost (the first
// seen on ties), and orders the result by code.
func Curate(records []entities.Record) []entities.Record {
	best := make(map[string]entities.Record, len(records))
	for _, rec := range records {
		cur, ok := best[rec.Code]
		if !ok || rec.Cost.GreaterThan(cur.Cost) {
			best[rec.Code] = rec
		}
	}

	out := make([]entities.Record, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func newRecord(code, cost, kindHint string) (entities.Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return entities.Record{}, fmt.Errorf("empty code")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(cost))
	if err != nil {
		return entities.Record{}, fmt.Errorf("invalid cost %q for %s: %w", cost, code, err)
	}
	return entities.Record{Code: code, Cost: amount, Type: kindHint}, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
