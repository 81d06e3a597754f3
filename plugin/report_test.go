// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-06-01T12:05:00Z
var fixedNow = time.Date(2024, time.June, 1, 12, 5, 0, 0, time.UTC)

func testOptions() NormalizeOptions {
	opts := DefaultNormalizeOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// trimMessages makes records comparable regardless of the indentation of
// system-out blocks in the fixtures.
var trimMessages = cmp.Transformer("trimMessage", func(r TestRecord) TestRecord {
	r.Message = strings.TrimSpace(r.Message)
	return r
})

type testRunnerNewReport struct {
	name        string
	filePath    string
	options     func(*NormalizeOptions)
	wantSummary Summary
	wantTests   []TestRecord
	wantSuite   string
	err         error
}

func TestNewReport(t *testing.T) {
	tests := []testRunnerNewReport{
		{
			name:     "mixedStatuses",
			filePath: "testdata/mixed.xml",
			wantSummary: Summary{
				Tests: 3, Passed: 1, Failed: 1, Skipped: 1,
				Start: 1717243200, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "CameraInitializing", Status: TestStatusPassed, RawStatus: "run", Duration: 1234},
				{Name: "ShaderLoading", Status: TestStatusFailed, RawStatus: "fail", Duration: 500, Message: "expected shader module to compile"},
				{Name: "GPU", Status: TestStatusSkipped, RawStatus: "skipped", Duration: 0},
			},
			wantSuite: "SlimeOdyssey",
		},
		{
			name:     "nestedSuitesWithFailedLiteral",
			filePath: "testdata/nested.xml",
			options:  func(o *NormalizeOptions) { o.FailStatus = "failed" },
			wantSummary: Summary{
				Tests: 3, Passed: 1, Failed: 1, Other: 1,
				Start: 1717243170, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "DirectionalLight", Status: TestStatusPassed, RawStatus: "run", Duration: 10},
				{Name: "PointLight", Status: TestStatusFailed, RawStatus: "failed", Duration: 20, Message: "Expected 1.0, got 0.5"},
				{Name: "ShadowMap", Status: TestStatusOther, RawStatus: "notrun", Duration: 0},
			},
			wantSuite: "AllTests",
		},
		{
			name:     "nestedSuitesWithDefaultLiteral",
			filePath: "testdata/nested.xml",
			wantSummary: Summary{
				Tests: 3, Passed: 1, Other: 2,
				Start: 1717243170, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "DirectionalLight", Status: TestStatusPassed, RawStatus: "run", Duration: 10},
				{Name: "PointLight", Status: TestStatusOther, RawStatus: "failed", Duration: 20, Message: "Expected 1.0, got 0.5"},
				{Name: "ShadowMap", Status: TestStatusOther, RawStatus: "notrun", Duration: 0},
			},
			wantSuite: "AllTests",
		},
		{
			name:     "interleavedSuitesKeepDocumentOrder",
			filePath: "testdata/interleaved.xml",
			wantSummary: Summary{
				Tests: 6, Passed: 4, Failed: 1, Skipped: 1,
				Start: 1717243200, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "BoxBox", Status: TestStatusPassed, RawStatus: "run", Duration: 1},
				{Name: "Gravity", Status: TestStatusPassed, RawStatus: "run", Duration: 2},
				{Name: "Hinge", Status: TestStatusFailed, RawStatus: "fail", Duration: 3},
				{Name: "Damping", Status: TestStatusPassed, RawStatus: "run", Duration: 4},
				{Name: "Slider", Status: TestStatusSkipped, RawStatus: "skipped", Duration: 0},
				{Name: "Friction", Status: TestStatusPassed, RawStatus: "run", Duration: 5},
			},
			wantSuite: "Physics",
		},
		{
			name:     "latin1Encoding",
			filePath: "testdata/latin1.xml",
			wantSummary: Summary{
				Tests: 2, Passed: 1, Failed: 1,
				Start: 1717243200, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "Caméra", Status: TestStatusPassed, RawStatus: "run", Duration: 500},
				{Name: "Chaîne", Status: TestStatusFailed, RawStatus: "fail", Duration: 250, Message: "résultat inattendu"},
			},
			wantSuite: "Rendu",
		},
		{
			name:     "nunitThroughStylesheet",
			filePath: "testdata/nunit.xml",
			options:  func(o *NormalizeOptions) { o.Stylesheet = "testdata/nunit-to-junit.xsl" },
			wantSummary: Summary{
				Tests: 2, Passed: 1, Failed: 1,
				Start: 1717243200, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "OpenClose", Status: TestStatusPassed, RawStatus: "run", Duration: 250, Message: "window opened\nwindow closed"},
				{Name: "Reopen", Status: TestStatusFailed, RawStatus: "fail", Duration: 500, Message: "Expected window handle to be valid"},
			},
			wantSuite: "SlimeOdyssey.dll",
		},
		{
			name:     "messagesDropped",
			filePath: "testdata/mixed.xml",
			options:  func(o *NormalizeOptions) { o.IncludeMessage = false },
			wantSummary: Summary{
				Tests: 3, Passed: 1, Failed: 1, Skipped: 1,
				Start: 1717243200, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{
				{Name: "CameraInitializing", Status: TestStatusPassed, RawStatus: "run", Duration: 1234},
				{Name: "ShaderLoading", Status: TestStatusFailed, RawStatus: "fail", Duration: 500},
				{Name: "GPU", Status: TestStatusSkipped, RawStatus: "skipped", Duration: 0},
			},
			wantSuite: "SlimeOdyssey",
		},
		{
			name:     "emptySuite",
			filePath: "testdata/empty.xml",
			wantSummary: Summary{
				Start: 1717243500, Stop: 1717243500, Tool: "ctest",
			},
			wantTests: []TestRecord{},
			wantSuite: "Empty",
		},
		{
			name:     "invalidFilePath",
			filePath: "testdata/nonexistent.xml",
			err:      ErrReportNotFound,
		},
		{
			name:     "malformedXML",
			filePath: "testdata/malformed.xml",
			err:      ErrMalformedDocument,
		},
		{
			name:     "malformedTimestamp",
			filePath: "testdata/bad_timestamp.xml",
			err:      ErrMalformedTimestamp,
		},
		{
			name:     "missingStylesheet",
			filePath: "testdata/mixed.xml",
			options:  func(o *NormalizeOptions) { o.Stylesheet = "testdata/nonexistent.xsl" },
			err:      ErrMalformedDocument,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			if tc.options != nil {
				tc.options(&opts)
			}

			report, err := NewReport(tc.filePath, "ctest", opts)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Errorf("NewReport() expected error: %v, got: %v", tc.err, err)
				}
				assert.Nil(t, report)
				return
			}
			require.NoError(t, err)

			if diff := cmp.Diff(tc.wantSummary, report.Summary); diff != "" {
				t.Errorf("NewReport() summary mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantTests, report.Tests, trimMessages, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("NewReport() tests mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.wantSuite, report.Suite)

			s := report.Summary
			assert.Equal(t, s.Tests, s.Passed+s.Failed+s.Pending+s.Skipped+s.Other)
			assert.GreaterOrEqual(t, s.Stop, s.Start)
		})
	}
}

func TestNewReportTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		root      string
		wantStart int64
		err       error
	}{
		{
			name:      "missingTimestampDefaultsToNow",
			root:      `<testsuite name="Input">`,
			wantStart: fixedNow.Unix(),
		},
		{
			name:      "timestampInterpretedAsUTC",
			root:      `<testsuite timestamp="2024-06-01T00:00:00">`,
			wantStart: 1717200000,
		},
		{
			name:      "futureTimestampClampedToStop",
			root:      `<testsuite timestamp="2030-01-01T00:00:00">`,
			wantStart: fixedNow.Unix(),
		},
		{
			name: "timezoneSuffixRejected",
			root: `<testsuite timestamp="2024-06-01T00:00:00+02:00">`,
			err:  ErrMalformedTimestamp,
		},
		{
			name:      "emptyTimestampTreatedAsMissing",
			root:      `<testsuite timestamp="">`,
			wantStart: fixedNow.Unix(),
		},
		{
			name: "fractionalSecondsRejected",
			root: `<testsuite timestamp="2024-06-01T00:00:00.999">`,
			err:  ErrMalformedTimestamp,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeReport(t, tc.root+`<testcase name="KeyPress" status="run" time="0.1"/></testsuite>`)

			report, err := NewReport(path, "ctest", testOptions())
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), "expected %v, got %v", tc.err, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, report.Summary.Start)
			assert.Equal(t, fixedNow.Unix(), report.Summary.Stop)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		raw     *string
		want    int64
		wantErr bool
	}{
		{name: "missing", raw: nil, want: 0},
		{name: "empty", raw: strPtr(""), want: 0},
		{name: "half", raw: strPtr("0.5"), want: 500},
		{name: "truncated", raw: strPtr("1.2345"), want: 1234},
		{name: "whole", raw: strPtr("3"), want: 3000},
		{name: "padded", raw: strPtr(" 2.5 "), want: 2500},
		{name: "negative", raw: strPtr("-1.5"), want: 0},
		{name: "notANumber", raw: strPtr("abc"), wantErr: true},
		{name: "infinite", raw: strPtr("Inf"), wantErr: true},
		{name: "largest", raw: strPtr("9e15"), want: 9e18},
		{name: "outOfRange", raw: strPtr("1e20"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDuration(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewReportInvalidTime(t *testing.T) {
	path := writeReport(t, `<testsuite><testcase name="Model" status="run" time="fast"/></testsuite>`)

	_, err := NewReport(path, "ctest", testOptions())
	assert.True(t, errors.Is(err, ErrMalformedDocument), "got %v", err)
}

func TestNewReportTimeOutOfRange(t *testing.T) {
	path := writeReport(t, `<testsuite><testcase name="A" status="run" time="1e20"/></testsuite>`)

	report, err := NewReport(path, "ctest", testOptions())
	assert.True(t, errors.Is(err, ErrMalformedDocument), "got %v", err)
	assert.Nil(t, report)
}

func TestNewReportMissingStatus(t *testing.T) {
	path := writeReport(t, `<testsuite><testcase name="Entity" time="0.25"/></testsuite>`)

	report, err := NewReport(path, "ctest", testOptions())
	require.NoError(t, err)
	require.Len(t, report.Tests, 1)
	assert.Equal(t, TestStatusOther, report.Tests[0].Status)
	assert.Equal(t, "unknown", report.Tests[0].Label())
	assert.Equal(t, int64(250), report.Tests[0].Duration)
	assert.Equal(t, 1, report.Summary.Other)
}

func TestNewReportFirstMatchWins(t *testing.T) {
	path := writeReport(t, `<testsuite><testcase name="Camera" status="run"/></testsuite>`)

	opts := testOptions()
	opts.FailStatus = "run"
	report, err := NewReport(path, "ctest", opts)
	require.NoError(t, err)
	assert.Equal(t, TestStatusPassed, report.Tests[0].Status)
	assert.Equal(t, 1, report.Summary.Passed)
	assert.Equal(t, 0, report.Summary.Failed)
}

func TestNewReportEmptyFile(t *testing.T) {
	path := writeReport(t, "")

	_, err := NewReport(path, "ctest", testOptions())
	assert.True(t, errors.Is(err, ErrMalformedDocument), "got %v", err)
}

func strPtr(s string) *string {
	return &s
}
