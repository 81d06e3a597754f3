package plugin

import (
	"encoding/xml"
)

// Document is the root element of a test report. The element name is not
// constrained: a bare testsuite, a testsuites wrapper or a tool specific
// root are all accepted as long as test cases hang off it.
type Document struct {
	XMLName xml.Name
	TestSuite
}

// TestSuite holds the test cases and nested suites of one element. The
// relative order of cases and suites is kept as found in the document.
type TestSuite struct {
	Name      string
	Timestamp *string
	TestCases []TestCase
	Suites    []TestSuite

	children []suiteChild
}

// suiteChild points into TestCases or Suites.
type suiteChild struct {
	suite bool
	index int
}

type TestCase struct {
	Name      string   `xml:"name,attr"`
	Status    *string  `xml:"status,attr"`
	Time      *string  `xml:"time,attr"`
	SystemOut *string  `xml:"system-out"`
	Failure   *Failure `xml:"failure"`
}

type Failure struct {
	Message  string `xml:"message,attr"`
	Contents string `xml:",chardata"`
}

func (d *Document) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	d.XMLName = start.Name
	return d.TestSuite.UnmarshalXML(dec, start)
}

func (s *TestSuite) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			s.Name = attr.Value
		case "timestamp":
			value := attr.Value
			s.Timestamp = &value
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "testcase":
				var tc TestCase
				if err := dec.DecodeElement(&tc, &t); err != nil {
					return err
				}
				s.TestCases = append(s.TestCases, tc)
				s.children = append(s.children, suiteChild{index: len(s.TestCases) - 1})
			case "testsuite":
				var suite TestSuite
				if err := dec.DecodeElement(&suite, &t); err != nil {
					return err
				}
				s.Suites = append(s.Suites, suite)
				s.children = append(s.children, suiteChild{suite: true, index: len(s.Suites) - 1})
			default:
				if err := dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// testCases returns the cases in document order, walking into nested suites.
func (s *TestSuite) testCases() []TestCase {
	var cases []TestCase
	for _, child := range s.children {
		if child.suite {
			cases = append(cases, s.Suites[child.index].testCases()...)
			continue
		}
		cases = append(cases, s.TestCases[child.index])
	}
	return cases
}

// timestamp returns the run timestamp, preferring the root attribute and
// falling back to the first suite that carries one.
func (d *Document) timestamp() *string {
	if d.Timestamp != nil {
		return d.Timestamp
	}
	for _, suite := range d.Suites {
		if suite.Timestamp != nil {
			return suite.Timestamp
		}
	}
	return nil
}

func (d *Document) suiteName() string {
	if d.Name != "" {
		return d.Name
	}
	for _, suite := range d.Suites {
		if suite.Name != "" {
			return suite.Name
		}
	}
	return ""
}
