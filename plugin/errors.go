package plugin

import (
	"github.com/pkg/errors"
)

// Errors returned by the normalizer and the output writers. Callers match
// them with errors.Is; the wrapped message carries the path and cause.
var (
	ErrReportNotFound         = errors.New("report not found")
	ErrMalformedDocument      = errors.New("malformed document")
	ErrMalformedTimestamp     = errors.New("malformed timestamp")
	ErrRenderTargetUnwritable = errors.New("render target unwritable")
)
