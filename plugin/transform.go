package plugin

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wamuir/go-xslt"
)

// applyStylesheet runs the XSLT stylesheet at stylesheetPath over input.
// It lets reports from runners with a different layout, NUnit for
// example, be reshaped into testcase elements before normalization.
func applyStylesheet(input []byte, stylesheetPath string) ([]byte, error) {
	xsltContent, err := os.ReadFile(stylesheetPath)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "failed to read XSLT file %s: %v", stylesheetPath, err)
	}

	xs, err := xslt.NewStylesheet(xsltContent)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "failed to create stylesheet from %s: %v", stylesheetPath, err)
	}
	defer xs.Close()

	transformed, err := xs.Transform(input)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "failed to apply XSLT transformation %s: %v", stylesheetPath, err)
	}

	logrus.Debugf("Applied stylesheet %s (%d bytes in, %d bytes out)", stylesheetPath, len(input), len(transformed))
	return transformed, nil
}
