package forecast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"chart-bot/api/internal/apperr"
)

type Outcome int

const (
	OutcomeFailed Outcome = iota
	// OutcomeParsed means the whole answer was a JSON object.
	OutcomeParsed
	// OutcomeRecovered means the object was cut out of surrounding text.
	OutcomeRecovered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeRecovered:
		return "recovered"
	default:
		return "failed"
	}
}

type Extraction struct {
	Outcome Outcome
	Fields  Fields
	// Err is set only for OutcomeFailed and has kind apperr.KindParseFailure.
	Err error
}

// Extract decodes the model answer. When the answer is not a bare JSON object it falls back
// to the span between the first '{' and the last '}'.
func Extract(raw string) Extraction {
	direct := StripCodeFences(raw)
	f, err := decodeObject(direct)
	if err == nil {
		return Extraction{Outcome: OutcomeParsed, Fields: f}
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end <= start {
		return Extraction{
			Outcome: OutcomeFailed,
			Err:     apperr.Wrap(apperr.KindParseFailure, "forecast.extract", "no JSON object in answer", err),
		}
	}

	f, err2 := decodeObject(raw[start : end+1])
	if err2 != nil {
		return Extraction{
			Outcome: OutcomeFailed,
			Err:     apperr.Wrap(apperr.KindParseFailure, "forecast.extract", "embedded JSON object is malformed", err2),
		}
	}
	return Extraction{Outcome: OutcomeRecovered, Fields: f}
}

func decodeObject(s string) (Fields, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("answer is null")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	return f, nil
}

// StripCodeFences removes a Markdown ``` or ```json wrapper.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// JSON renders fields compactly for diagnostics.
func (f Fields) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(f)); err != nil {
		return fmt.Sprint(map[string]any(f))
	}
	return strings.TrimSpace(buf.String())
}
