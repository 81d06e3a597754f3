package plugin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	columnMargin = 2

	nameHeader     = "Name"
	statusHeader   = "Status"
	durationHeader = "Duration (ms)"
	flakyHeader    = "Flaky 🍂"

	noFailuresText = "No failed tests ✨\n"
	noMessageText  = "Failed test did not return a message"
	codeFence      = "```\n"
)

// monospace measures cells independent of the locale of the runner.
var monospace = &runewidth.Condition{StrictEmojiNeutral: true}

// DiscordMessage is a Discord webhook payload.
type DiscordMessage struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewDiscordMessage builds the chat message for r. The embeds are always
// Test Summary, Detailed Test Results and Failed Test Summary, in that order.
func NewDiscordMessage(r *Report, rc RenderContext) DiscordMessage {
	return DiscordMessage{
		Content: messageHeader(rc),
		Embeds: []DiscordEmbed{
			{
				Title:       "Test Summary",
				Description: summaryBlock(r.Summary),
			},
			{
				Title:       "Detailed Test Results",
				Description: codeFence + FormatTable(r.Tests) + codeFence,
			},
			{
				Title:       "Failed Test Summary",
				Description: failedBlock(r),
			},
		},
	}
}

// MarshalDiscordMessage renders the chat message for r as indented JSON.
func MarshalDiscordMessage(r *Report, rc RenderContext) ([]byte, error) {
	return marshalDocument(NewDiscordMessage(r, rc))
}

// RenderMarkdown renders the same sections as the chat message as a single
// Markdown document.
func RenderMarkdown(r *Report, rc RenderContext) string {
	msg := NewDiscordMessage(r, rc)

	var b strings.Builder
	b.WriteString(msg.Content)
	b.WriteString("\n\n")
	for _, embed := range msg.Embeds {
		fmt.Fprintf(&b, "### %s\n%s\n", embed.Title, embed.Description)
	}
	return b.String()
}

func messageHeader(rc RenderContext) string {
	return fmt.Sprintf("# Test Results\n **Platform**: %s\n**Tester:** %s\n **Branch:** %s\n **Event:** %s",
		rc.Platform(), rc.Author, rc.Branch, rc.Event)
}

func summaryBlock(s Summary) string {
	return fmt.Sprintf(
		"**Tests 📝**:    %d\n"+
			"**Passed ✅**:   %d\n"+
			"**Failed ❌**:   %d\n"+
			"**Skipped ⏭️**: %d\n"+
			"**Pending ⏳**:  %d\n"+
			"**Other ❓**:    %d\n"+
			"**Duration ⏱️**: %s\n",
		s.Tests, s.Passed, s.Failed, s.Skipped, s.Pending, s.Other, formatElapsed(s.Elapsed()))
}

// FormatTable lays out records as a fixed-width table with a header row and
// a rule. Column widths are the widest cell plus a margin, so the layout
// depends on the records passed in.
func FormatTable(records []TestRecord) string {
	nameWidth, statusWidth := 0, 0
	for _, rec := range records {
		nameWidth = max(nameWidth, monospace.StringWidth(rec.Name))
		statusWidth = max(statusWidth, monospace.StringWidth(rec.Label()))
	}
	nameWidth += columnMargin
	statusWidth += columnMargin
	durationWidth := monospace.StringWidth(durationHeader) + columnMargin
	flakyWidth := monospace.StringWidth(flakyHeader) + columnMargin

	row := func(b *strings.Builder, name, status, duration, flaky string) {
		fmt.Fprintf(b, "%s %s %s %s\n",
			monospace.FillRight(name, nameWidth),
			monospace.FillRight(status, statusWidth),
			monospace.FillRight(duration, durationWidth),
			monospace.FillRight(flaky, flakyWidth))
	}

	var b strings.Builder
	row(&b, nameHeader, statusHeader, durationHeader, flakyHeader)
	b.WriteString(strings.Repeat("-", nameWidth+statusWidth+durationWidth+flakyWidth))
	b.WriteString("\n")
	for _, rec := range records {
		row(&b, rec.Name, rec.Label(), strconv.FormatInt(rec.Duration, 10), "")
	}
	return b.String()
}

func failedBlock(r *Report) string {
	if r.Summary.Failed == 0 {
		return noFailuresText
	}

	var b strings.Builder
	b.WriteString(codeFence)
	for _, rec := range r.Failures() {
		b.WriteString(rec.Name)
		b.WriteString("\n")
		b.WriteString(failureMessage(rec))
		b.WriteString("\n")
	}
	b.WriteString(codeFence)
	return b.String()
}

func failureMessage(rec TestRecord) string {
	if msg := strings.TrimSpace(rec.Message); msg != "" {
		return msg
	}
	return noMessageText
}

// formatElapsed renders seconds as HH:MM:SS. Hours are not wrapped at a day.
func formatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
