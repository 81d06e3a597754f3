package plugin

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// SummaryDocument is the JSON summary written for a report.
type SummaryDocument struct {
	Results SummaryResults `json:"results"`
}

type SummaryResults struct {
	Tool    SummaryTool   `json:"tool"`
	Summary Summary       `json:"summary"`
	Tests   []SummaryTest `json:"tests"`
}

type SummaryTool struct {
	Name string `json:"name"`
}

type SummaryTest struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Duration int64  `json:"duration"`
	Message  string `json:"message,omitempty"`
}

// NewSummaryDocument builds the JSON summary of r.
func NewSummaryDocument(r *Report) SummaryDocument {
	tests := make([]SummaryTest, 0, len(r.Tests))
	for _, rec := range r.Tests {
		tests = append(tests, SummaryTest{
			Name:     rec.Name,
			Status:   rec.Label(),
			Duration: rec.Duration,
			Message:  rec.Message,
		})
	}
	return SummaryDocument{
		Results: SummaryResults{
			Tool:    SummaryTool{Name: r.Summary.Tool},
			Summary: r.Summary,
			Tests:   tests,
		},
	}
}

// Records converts the tests of a summary document back into records.
func (d SummaryDocument) Records() []TestRecord {
	records := make([]TestRecord, 0, len(d.Results.Tests))
	for _, t := range d.Results.Tests {
		status := TestStatus(t.Status)
		switch status {
		case TestStatusPassed, TestStatusFailed, TestStatusSkipped:
		default:
			status = TestStatusOther
		}
		records = append(records, TestRecord{
			Name:      t.Name,
			Status:    status,
			RawStatus: t.Status,
			Duration:  t.Duration,
			Message:   t.Message,
		})
	}
	return records
}

// MarshalSummary renders the JSON summary of r, indented by two spaces.
func MarshalSummary(r *Report) ([]byte, error) {
	return marshalDocument(NewSummaryDocument(r))
}

func marshalDocument(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to marshal document")
	}
	return buf.Bytes(), nil
}
