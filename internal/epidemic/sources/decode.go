package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
)

// schema names the JSON fields a series uses for each RawRecord attribute.
type schema struct {
	AgeGroup string
	Region   string
	Date     string
	Value    string
	Vaccine  string
	Severity string
}

var weeklySchema = schema{
	AgeGroup: "altersklasse_covid19",
	Region:   "geoRegion",
	Date:     "datum",
	Value:    "sumTotal",
}

var symptomSchema = schema{
	AgeGroup: "age_group",
	Region:   "geoRegion",
	Date:     "date",
	Value:    "sumTotal",
	Vaccine:  "vaccine",
	Severity: "severity",
}

func schemaFor(s epidemic.Series) schema {
	if s == epidemic.Symptoms {
		return symptomSchema
	}
	return weeklySchema
}

var errTrailingData = errors.New("unexpected data after JSON array")

// decodeRecords streams a JSON array of objects into raw records.
func decodeRecords(r io.Reader, sc schema) ([]epidemic.RawRecord, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read array start: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected JSON array, got %v", tok)
	}

	var records []epidemic.RawRecord
	for i := 0; dec.More(); i++ {
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		rec, err := toRecord(obj, sc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read array end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return records, nil
}

func toRecord(obj map[string]json.RawMessage, sc schema) (epidemic.RawRecord, error) {
	var rec epidemic.RawRecord
	var err error

	if rec.AgeGroup, err = stringField(obj, sc.AgeGroup); err != nil {
		return rec, err
	}
	if rec.Region, err = stringField(obj, sc.Region); err != nil {
		return rec, err
	}
	if rec.DateKey, err = dateField(obj, sc.Date); err != nil {
		return rec, err
	}
	if rec.Value, err = intField(obj, sc.Value); err != nil {
		return rec, err
	}
	if sc.Vaccine != "" {
		if rec.Vaccine, err = stringField(obj, sc.Vaccine); err != nil {
			return rec, err
		}
	}
	if sc.Severity != "" {
		if rec.Severity, err = stringField(obj, sc.Severity); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// stringField returns a string or the literal text of a number. Missing and
// null fields are empty.
func stringField(obj map[string]json.RawMessage, name string) (string, error) {
	raw, ok := obj[name]
	if !ok {
		return "", nil
	}
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("field %s: %w", name, err)
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("field %s: %w", name, err)
		}
		return n.String(), nil
	}
}

// dateField is stringField with integral numbers written without a fraction,
// so a week datum of 202112.0 keys as 202112.
func dateField(obj map[string]json.RawMessage, name string) (string, error) {
	s, err := stringField(obj, name)
	if err != nil || s == "" {
		return s, err
	}
	if raw := bytes.TrimSpace(obj[name]); raw[0] == '"' {
		return s, nil
	}
	if n, ok := integral(s); ok {
		return strconv.FormatInt(n, 10), nil
	}
	return s, nil
}

// intField accepts non-negative integers, integral floats and numeric strings.
// Null counts as 0.
func intField(obj map[string]json.RawMessage, name string) (int64, error) {
	s, err := stringField(obj, name)
	if err != nil || s == "" {
		return 0, err
	}
	n, ok := integral(s)
	if !ok {
		return 0, fmt.Errorf("field %s: %q is not an integer in int64 range", name, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("field %s: negative count %d", name, n)
	}
	return n, nil
}

// integral parses s as an int64, accepting floats without a fractional part.
func integral(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}
