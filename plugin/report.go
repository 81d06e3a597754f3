package plugin

import (
	"bytes"
	"encoding/xml"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// TestStatus is the normalized outcome of a single test case.
type TestStatus string

const (
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
	TestStatusSkipped TestStatus = "skipped"
	TestStatusOther   TestStatus = "other"
)

const (
	// DefaultPassStatus is the status literal test runners emit for a passing case.
	DefaultPassStatus = "run"
	// DefaultFailStatus is the status literal for a failing case. Some runners
	// emit "failed" instead, see NormalizeOptions.FailStatus.
	DefaultFailStatus = "fail"

	skippedStatus = "skipped"
	unknownStatus = "unknown"

	timestampLayout = "2006-01-02T15:04:05"
)

// TestRecord is one normalized test outcome.
type TestRecord struct {
	Name   string
	Status TestStatus
	// RawStatus is the status attribute as found in the document, or
	// "unknown" when the attribute is missing.
	RawStatus string
	// Duration in milliseconds.
	Duration int64
	Message  string
}

// Label returns the status string used in rendered output. Cases that do
// not map to a known status keep the literal from the document.
func (r TestRecord) Label() string {
	if r.Status == TestStatusOther {
		return r.RawStatus
	}
	return string(r.Status)
}

// Summary holds the aggregate counts and time window of one run.
type Summary struct {
	Tests   int `json:"tests"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Skipped int `json:"skipped"`
	Other   int `json:"other"`
	// Start and Stop are epoch seconds.
	Start int64 `json:"start"`
	Stop  int64 `json:"stop"`

	Tool string `json:"-"`
}

// Report is the normalized form of one test report document.
type Report struct {
	Summary Summary
	Tests   []TestRecord
	// Suite is the name attribute of the root or first suite, if any.
	Suite string
}

// NormalizeOptions controls how a document is turned into a Report.
type NormalizeOptions struct {
	// PassStatus and FailStatus are the exact status literals mapped to
	// passed and failed. Empty values fall back to the defaults.
	PassStatus string
	FailStatus string
	// IncludeMessage keeps system-out and failure text on the records.
	IncludeMessage bool
	// Stylesheet is an optional XSLT file applied to the input before parsing.
	Stylesheet string
	// Now overrides the wall clock.
	Now func() time.Time
}

// DefaultNormalizeOptions returns the options used by the plugin when no
// overrides are configured.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		PassStatus:     DefaultPassStatus,
		FailStatus:     DefaultFailStatus,
		IncludeMessage: true,
	}
}

// NewReport reads the test report at path and normalizes it.
func NewReport(path, tool string, opts NormalizeOptions) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrReportNotFound, "the file %s does not exist", path)
		}
		return nil, errors.Wrapf(ErrMalformedDocument, "failed to read %s: %v", path, err)
	}

	if opts.Stylesheet != "" {
		data, err = applyStylesheet(data, opts.Stylesheet)
		if err != nil {
			return nil, err
		}
	}

	var doc Document
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "failed to parse test report XML %s: %v", path, err)
	}

	return normalize(&doc, tool, opts)
}

func normalize(doc *Document, tool string, opts NormalizeOptions) (*Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	passStatus := opts.PassStatus
	if passStatus == "" {
		passStatus = DefaultPassStatus
	}
	failStatus := opts.FailStatus
	if failStatus == "" {
		failStatus = DefaultFailStatus
	}

	report := &Report{
		Summary: Summary{Tool: tool},
		Tests:   []TestRecord{},
		Suite:   doc.suiteName(),
	}

	for _, tc := range doc.testCases() {
		record := TestRecord{
			Name:      tc.Name,
			RawStatus: unknownStatus,
		}
		if tc.Status != nil {
			record.RawStatus = *tc.Status
		}

		switch record.RawStatus {
		case passStatus:
			record.Status = TestStatusPassed
			report.Summary.Passed++
		case failStatus:
			record.Status = TestStatusFailed
			report.Summary.Failed++
		case skippedStatus:
			record.Status = TestStatusSkipped
			report.Summary.Skipped++
		default:
			record.Status = TestStatusOther
			report.Summary.Other++
		}
		report.Summary.Tests++

		duration, err := parseDuration(tc.Time)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedDocument, "test case %q: %v", tc.Name, err)
		}
		record.Duration = duration

		if opts.IncludeMessage {
			record.Message = caseMessage(tc)
		}
		report.Tests = append(report.Tests, record)
	}

	stop := now().UTC().Unix()
	start := stop
	if raw := doc.timestamp(); raw != nil && strings.TrimSpace(*raw) != "" {
		ts, err := parseTimestamp(*raw)
		if err != nil {
			return nil, err
		}
		start = ts.Unix()
	}
	// a timestamp from a runner with a skewed clock must not yield a negative window
	if start > stop {
		start = stop
	}
	report.Summary.Start = start
	report.Summary.Stop = stop

	return report, nil
}

// parseTimestamp parses a zone-less timestamp as UTC. Fractional seconds
// and zone suffixes are rejected.
func parseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	ts, err := time.ParseInLocation(timestampLayout, value, time.UTC)
	if err != nil || len(value) != len(timestampLayout) {
		return time.Time{}, errors.Wrapf(ErrMalformedTimestamp, "timestamp %q does not match %s", raw, timestampLayout)
	}
	return ts, nil
}

// parseDuration converts a seconds attribute into whole milliseconds,
// truncating any remainder.
func parseDuration(raw *string) (int64, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid time %q", *raw)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, errors.Errorf("invalid time %q", *raw)
	}
	if seconds <= 0 {
		return 0, nil
	}
	millis := seconds * 1000
	if millis >= math.MaxInt64 {
		return 0, errors.Errorf("time %q out of range", *raw)
	}
	return int64(millis), nil
}

// caseMessage returns the free-text output of a case: system-out when
// present, otherwise the failure body or its message attribute.
func caseMessage(tc TestCase) string {
	if tc.SystemOut != nil {
		return *tc.SystemOut
	}
	if tc.Failure != nil {
		if body := strings.TrimSpace(tc.Failure.Contents); body != "" {
			return body
		}
		return tc.Failure.Message
	}
	return ""
}

// Failures returns the failed records in document order.
func (r *Report) Failures() []TestRecord {
	var failed []TestRecord
	for _, rec := range r.Tests {
		if rec.Status == TestStatusFailed {
			failed = append(failed, rec)
		}
	}
	return failed
}

// Elapsed returns the run duration in seconds.
func (s Summary) Elapsed() int64 {
	return s.Stop - s.Start
}
