package plugin

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const nunitTimeLayout = "2006-01-02 15:04:05Z"

// NUnitRun is the test-run root of an NUnit 3 result document.
type NUnitRun struct {
	XMLName       xml.Name     `xml:"test-run"`
	ID            string       `xml:"id,attr"`
	TestCaseCount int          `xml:"testcasecount,attr"`
	Result        string       `xml:"result,attr"`
	Total         int          `xml:"total,attr"`
	Passed        int          `xml:"passed,attr"`
	Failed        int          `xml:"failed,attr"`
	Skipped       int          `xml:"skipped,attr"`
	StartTime     string       `xml:"start-time,attr"`
	EndTime       string       `xml:"end-time,attr"`
	Duration      string       `xml:"duration,attr"`
	TestSuites    []NUnitSuite `xml:"test-suite"`
}

type NUnitSuite struct {
	Type       string       `xml:"type,attr"`
	Name       string       `xml:"name,attr"`
	FullName   string       `xml:"fullname,attr"`
	Result     string       `xml:"result,attr"`
	TestSuites []NUnitSuite `xml:"test-suite"`
	TestCases  []NUnitCase  `xml:"test-case"`
}

type NUnitCase struct {
	Name      string `xml:"name,attr"`
	FullName  string `xml:"fullname,attr"`
	ClassName string `xml:"classname,attr"`
	Result    string `xml:"result,attr"`
	Duration  string `xml:"duration,attr"`
	Output    string `xml:"output,omitempty"`
}

// TextRun describes the single test a plain text log is reported as.
type TextRun struct {
	Suite   string
	Fixture string
	Case    string
	// Result is the NUnit result, Passed or Failed.
	Result string
	// Duration in seconds.
	Duration float64
	Now      func() time.Time
}

// NewTextRun wraps output as the only test case of an NUnit document.
func NewTextRun(output string, run TextRun) NUnitRun {
	now := time.Now
	if run.Now != nil {
		now = run.Now
	}
	end := now().UTC()
	start := end.Add(-time.Duration(run.Duration * float64(time.Second)))
	duration := strconv.FormatFloat(run.Duration, 'f', -1, 64)

	passed, failed := 0, 0
	if run.Result == "Failed" {
		failed = 1
	} else {
		passed = 1
	}

	return NUnitRun{
		ID:            "1",
		TestCaseCount: 1,
		Result:        run.Result,
		Total:         1,
		Passed:        passed,
		Failed:        failed,
		StartTime:     start.Format(nunitTimeLayout),
		EndTime:       end.Format(nunitTimeLayout),
		Duration:      duration,
		TestSuites: []NUnitSuite{{
			Type:     "TestSuite",
			Name:     run.Suite,
			FullName: run.Suite,
			Result:   run.Result,
			TestSuites: []NUnitSuite{{
				Type:     "TestFixture",
				Name:     run.Fixture,
				FullName: run.Fixture,
				Result:   run.Result,
				TestCases: []NUnitCase{{
					Name:      run.Case,
					FullName:  run.Fixture + "." + run.Case,
					ClassName: run.Fixture,
					Result:    run.Result,
					Duration:  duration,
					Output:    output,
				}},
			}},
		}},
	}
}

// WriteTextRun reads the text log at inputPath and writes it to outputPath
// as an NUnit document, ready for the NUnit stylesheet.
func WriteTextRun(inputPath, outputPath string, run TextRun) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(ErrReportNotFound, "the file %s does not exist", inputPath)
		}
		return errors.Wrapf(err, "failed to read %s", inputPath)
	}

	doc := NewTextRun(string(data), run)
	err = writeOutput(outputPath, func(w io.Writer) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
	if err != nil {
		return err
	}

	logrus.WithField("input", inputPath).Infof("NUnit document has been written to %s", outputPath)
	return nil
}
