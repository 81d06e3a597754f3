package plugin

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSet names the scalable font files and sizes used for the title,
// panel headers and body text.
type FontSet struct {
	Title      string
	Header     string
	Body       string
	TitleSize  float64
	HeaderSize float64
	BodySize   float64
	// Dirs are searched for relative font file names.
	Dirs []string
}

// ImageOptions holds the canvas geometry and fonts of the rendered image.
type ImageOptions struct {
	Width int
	// BaseHeight is the canvas height for a run with a single line commit
	// message, at most baseRows tests and no failures.
	BaseHeight int
	LineHeight int
	Fonts      FontSet
}

const (
	baseRows = 5

	imageMargin   = 20.0
	panelRadius   = 10.0
	panelGap      = 10.0
	panelHeader   = 35.0
	panelPadding  = 15.0
	titleBarTop   = 10.0
	titleBarH     = 50.0
	infoBaseline  = 85.0
	eventSpacing  = 230.0
	failureHeader = 60
)

var (
	backgroundColor = color.RGBA{45, 47, 49, 255}
	panelColor      = color.RGBA{58, 61, 64, 255}
	titleBarColor   = color.RGBA{32, 34, 37, 255}
	white           = color.RGBA{255, 255, 255, 255}
	lightGray       = color.RGBA{200, 200, 200, 255}
	green           = color.RGBA{0, 255, 0, 255}
	red             = color.RGBA{255, 0, 0, 255}
)

// DefaultImageOptions returns the canvas layout and the font set that is
// most likely to be installed on a runner of the given operating system.
func DefaultImageOptions(osName string) ImageOptions {
	fonts := FontSet{
		Title:      "DejaVuSans-Bold.ttf",
		Header:     "DejaVuSans.ttf",
		Body:       "DejaVuSans.ttf",
		TitleSize:  24,
		HeaderSize: 18,
		BodySize:   14,
		Dirs: []string{
			"/usr/share/fonts/truetype/dejavu",
			"/usr/share/fonts/TTF",
			"/usr/share/fonts/dejavu",
			"/Library/Fonts",
		},
	}
	if strings.EqualFold(osName, "windows") {
		fonts.Title = "arial.ttf"
		fonts.Header = "arial.ttf"
		fonts.Body = "arial.ttf"
		fonts.Dirs = []string{`C:\Windows\Fonts`}
	}
	return ImageOptions{
		Width:      800,
		BaseHeight: 280,
		LineHeight: 20,
		Fonts:      fonts,
	}
}

type faces struct {
	title  font.Face
	header font.Face
	body   font.Face
}

// loadFaces loads the three scalable faces. If any of them is missing all
// three fall back to the built-in bitmap face so the image stays consistent.
func loadFaces(fs FontSet) faces {
	var (
		loaded faces
		err    error
	)
	if loaded.title, err = loadFace(fs.Title, fs.TitleSize, fs.Dirs); err == nil {
		if loaded.header, err = loadFace(fs.Header, fs.HeaderSize, fs.Dirs); err == nil {
			loaded.body, err = loadFace(fs.Body, fs.BodySize, fs.Dirs)
		}
	}
	if err != nil {
		logrus.WithError(err).Debug("Falling back to the built-in bitmap font")
		return faces{title: basicfont.Face7x13, header: basicfont.Face7x13, body: basicfont.Face7x13}
	}
	return loaded
}

func loadFace(name string, size float64, dirs []string) (font.Face, error) {
	if name == "" {
		return nil, errors.New("no font file configured")
	}
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		for _, dir := range dirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	var lastErr error
	for _, path := range candidates {
		face, err := gg.LoadFontFace(path, size)
		if err == nil {
			return face, nil
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "failed to load font %s", name)
}

// imageLayout holds everything measured before the canvas is allocated.
type imageLayout struct {
	commitLines  []string
	failureLines [][]string
	rows         int
	height       int
}

func measureImage(r *Report, rc RenderContext, opts ImageOptions, body font.Face) imageLayout {
	layout := imageLayout{
		commitLines: strings.Split(rc.CommitMessage, "\n"),
		rows:        max(len(r.Tests), baseRows),
	}

	measure := gg.NewContext(1, 1)
	measure.SetFontFace(body)
	wrapWidth := float64(opts.Width) - 2*imageMargin - 2*panelPadding
	failureLineCount := 0
	for _, rec := range r.Failures() {
		lines := measure.WordWrap(failureMessage(rec), wrapWidth)
		layout.failureLines = append(layout.failureLines, lines)
		failureLineCount += 1 + len(lines)
	}

	layout.height = canvasHeight(opts, strings.Count(rc.CommitMessage, "\n"), len(r.Tests), r.Summary.Failed, failureLineCount)
	return layout
}

// canvasHeight grows the base height by one line per extra commit message
// line, per test beyond baseRows and, when there are failures, per line of
// the failure panel.
func canvasHeight(opts ImageOptions, commitNewlines, tests, failed, failureLines int) int {
	height := opts.BaseHeight + commitNewlines*opts.LineHeight
	if tests > baseRows {
		height += (tests - baseRows) * opts.LineHeight
	}
	if failed > 0 {
		height += failureHeader + failureLines*opts.LineHeight
	}
	return height
}

// RenderImage draws the run summary of r.
func RenderImage(r *Report, rc RenderContext, opts ImageOptions) (image.Image, error) {
	if opts.Width <= 0 || opts.BaseHeight <= 0 || opts.LineHeight <= 0 {
		return nil, errors.Errorf("invalid canvas geometry %dx%d line %d", opts.Width, opts.BaseHeight, opts.LineHeight)
	}

	ff := loadFaces(opts.Fonts)
	layout := measureImage(r, rc, opts, ff.body)
	line := float64(opts.LineHeight)
	width := float64(opts.Width)

	dc := gg.NewContext(opts.Width, layout.height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	// title bar
	dc.SetColor(titleBarColor)
	dc.DrawRoundedRectangle(imageMargin, titleBarTop, width-2*imageMargin, titleBarH, panelRadius)
	dc.Fill()
	dc.SetFontFace(ff.title)
	dc.SetColor(white)
	dc.DrawStringAnchored("Test Results", width/2, titleBarTop+titleBarH/2, 0.5, 0.35)

	// author, event and branch followed by the commit message
	dc.SetFontFace(ff.body)
	y := infoBaseline
	dc.DrawString("Author: "+rc.Author, imageMargin, y)
	dc.DrawString("Event: "+rc.Event, imageMargin+eventSpacing, y)
	dc.DrawString("Branch: "+rc.Branch, imageMargin+2*eventSpacing, y)
	for i, text := range layout.commitLines {
		y += line
		if i == 0 {
			text = "Commit Message: " + text
		}
		dc.DrawString(text, imageMargin, y)
	}

	top := y + panelPadding
	columnWidth := (width - 2*imageMargin - panelGap) / 2
	panelHeight := panelHeader + float64(layout.rows)*line + panelPadding

	// details panel
	drawPanel(dc, imageMargin, top, columnWidth, panelHeight)
	x := imageMargin + panelPadding
	dc.SetFontFace(ff.header)
	dc.SetColor(white)
	dc.DrawString("Details", x, top+panelHeader-10)
	dc.SetFontFace(ff.body)
	rowY := top + panelHeader + line - 5
	details := []struct {
		text string
		c    color.Color
	}{
		{"Test Suite: " + rc.Platform(), white},
		{fmt.Sprintf("Total Tests: %d", r.Summary.Tests), white},
		{fmt.Sprintf("Failures: %d", r.Summary.Failed), passFailColor(r.Summary.Failed == 0)},
		{fmt.Sprintf("Skipped: %d", r.Summary.Skipped), lightGray},
		{"Duration: " + formatElapsed(r.Summary.Elapsed()), lightGray},
	}
	for _, d := range details {
		dc.SetColor(d.c)
		dc.DrawString(d.text, x, rowY)
		rowY += line
	}

	// test results panel
	resultsX := imageMargin + columnWidth + panelGap
	drawPanel(dc, resultsX, top, columnWidth, panelHeight)
	x = resultsX + panelPadding
	dc.SetFontFace(ff.header)
	dc.SetColor(white)
	dc.DrawString("Detailed Test Results", x, top+panelHeader-10)
	dc.SetFontFace(ff.body)
	rowY = top + panelHeader + line - 5
	for _, rec := range r.Tests {
		dc.SetColor(white)
		dc.DrawString(rec.Name, x, rowY)
		dc.SetColor(statusColor(rec.Status))
		dc.DrawString(rec.Label(), x+columnWidth*0.5, rowY)
		dc.SetColor(lightGray)
		dc.DrawString(fmt.Sprintf("%d ms", rec.Duration), x+columnWidth*0.72, rowY)
		rowY += line
	}

	if r.Summary.Failed > 0 {
		failTop := top + panelHeight + panelGap
		drawPanel(dc, imageMargin, failTop, width-2*imageMargin, float64(layout.height)-failTop-panelGap)
		x = imageMargin + panelPadding
		dc.SetFontFace(ff.header)
		dc.SetColor(white)
		dc.DrawString("Failed Test Summary", x, failTop+panelHeader-10)
		dc.SetFontFace(ff.body)
		rowY = failTop + panelHeader + line - 5
		for i, rec := range r.Failures() {
			dc.SetColor(white)
			dc.DrawString(rec.Name, x, rowY)
			rowY += line
			dc.SetColor(red)
			for _, text := range layout.failureLines[i] {
				dc.DrawString(text, x, rowY)
				rowY += line
			}
		}
	}

	return dc.Image(), nil
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return errors.Wrap(err, "failed to encode PNG")
	}
	return nil
}

func drawPanel(dc *gg.Context, x, y, w, h float64) {
	dc.SetColor(panelColor)
	dc.DrawRoundedRectangle(x, y, w, h, panelRadius)
	dc.Fill()
}

func passFailColor(ok bool) color.Color {
	if ok {
		return green
	}
	return red
}

func statusColor(status TestStatus) color.Color {
	switch status {
	case TestStatusPassed:
		return green
	case TestStatusFailed:
		return red
	default:
		return lightGray
	}
}
