package plugin

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Args provides plugin execution arguments.
type Args struct {
	// Level defines the plugin log level.
	Level                      string   `envconfig:"PLUGIN_LOG_LEVEL"`
	PluginTestReportPath       string   `envconfig:"PLUGIN_TEST_REPORT_PATH"`
	PluginToolName             string   `envconfig:"PLUGIN_TOOL_NAME"`
	PluginJSONOutput           string   `envconfig:"PLUGIN_JSON_OUTPUT"`
	PluginDiscordOutput        string   `envconfig:"PLUGIN_DISCORD_OUTPUT"`
	PluginMarkdownOutput       string   `envconfig:"PLUGIN_MARKDOWN_OUTPUT"`
	PluginImageOutput          string   `envconfig:"PLUGIN_IMAGE_OUTPUT"`
	PluginStylesheet           string   `envconfig:"PLUGIN_STYLESHEET"`
	PluginPassStatus           string   `envconfig:"PLUGIN_PASS_STATUS" default:"run"`
	PluginFailStatus           string   `envconfig:"PLUGIN_FAIL_STATUS" default:"fail"`
	PluginIncludeMessage       bool     `envconfig:"PLUGIN_INCLUDE_MESSAGE" default:"true"`
	PluginFontDirs             []string `envconfig:"PLUGIN_FONT_DIRS"`
	PluginFailIfNoResults      bool     `envconfig:"PLUGIN_FAIL_IF_NO_RESULTS"`
	PluginFailedTestsFailBuild bool     `envconfig:"PLUGIN_FAILED_TESTS_FAIL_BUILD"`

	RenderContext
}

// RenderContext is presentation metadata about the build that produced the
// report. None of it comes from the report itself.
type RenderContext struct {
	OS            string `envconfig:"DRONE_STAGE_OS"`
	Compiler      string `envconfig:"PLUGIN_COMPILER"`
	Event         string `envconfig:"DRONE_BUILD_EVENT"`
	Author        string `envconfig:"DRONE_COMMIT_AUTHOR"`
	Branch        string `envconfig:"DRONE_COMMIT_BRANCH"`
	CommitMessage string `envconfig:"DRONE_COMMIT_MESSAGE"`
}

// Platform returns the runner description shown in messages, e.g. linux-gcc.
func (rc RenderContext) Platform() string {
	return rc.OS + "-" + rc.Compiler
}

// Exec executes the plugin.
func Exec(ctx context.Context, args Args) error {

	logger := logrus.
		WithField("PLUGIN_TEST_REPORT_PATH", args.PluginTestReportPath).
		WithField("PLUGIN_TOOL_NAME", args.PluginToolName).
		WithField("PLUGIN_FAIL_STATUS", args.PluginFailStatus)

	logger.Info("Starting plugin execution")

	if len(args.PluginTestReportPath) == 0 {
		errMsg := "Test Report Path should not be empty"
		logger.Error(errMsg)
		return errors.New(errMsg)
	}
	if len(args.PluginToolName) == 0 {
		errMsg := "Tool Name should not be empty"
		logger.Error(errMsg)
		return errors.New(errMsg)
	}

	report, err := NewReport(args.PluginTestReportPath, args.PluginToolName, NormalizeOptions{
		PassStatus:     args.PluginPassStatus,
		FailStatus:     args.PluginFailStatus,
		IncludeMessage: args.PluginIncludeMessage,
		Stylesheet:     args.PluginStylesheet,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to normalize test report")
		return err
	}

	summary := report.Summary
	logger.Infof("Found %d test(s): %d passed, %d failed, %d skipped, %d other",
		summary.Tests, summary.Passed, summary.Failed, summary.Skipped, summary.Other)

	if summary.Tests == 0 {
		if args.PluginFailIfNoResults {
			errMsg := "no test results found, failing the build as PLUGIN_FAIL_IF_NO_RESULTS is set to true"
			logger.Error(errMsg)
			return errors.New(errMsg)
		}
		logger.Warn("No test results found, but failing the build is not configured.")
	}

	if err := writeOutputs(ctx, logger, report, args); err != nil {
		logger.WithError(err).Error("Failed to write outputs")
		return err
	}

	if summary.Failed > 0 && args.PluginFailedTestsFailBuild {
		errMsg := "tests failed, failing the build as PLUGIN_FAILED_TESTS_FAIL_BUILD is set to true"
		logger.Error(errMsg)
		return errors.New(errMsg)
	}

	logger.Info("Plugin execution completed successfully")
	return nil
}

// writeOutputs renders and writes every requested output. Outputs written
// before a failure are left in place.
func writeOutputs(ctx context.Context, logger *logrus.Entry, report *Report, args Args) error {
	jsonOutput := args.PluginJSONOutput
	if jsonOutput == "" {
		jsonOutput = defaultOutputPath(args.PluginTestReportPath, "_output.json")
	}
	data, err := MarshalSummary(report)
	if err != nil {
		return err
	}
	if err := writeBytes(jsonOutput, data); err != nil {
		return err
	}
	logger.Infof("JSON output has been written to %s", jsonOutput)

	if err := ctx.Err(); err != nil {
		return err
	}

	discordOutput := args.PluginDiscordOutput
	if discordOutput == "" {
		discordOutput = defaultOutputPath(args.PluginTestReportPath, "_discord_output.json")
	}
	data, err = MarshalDiscordMessage(report, args.RenderContext)
	if err != nil {
		return err
	}
	if err := writeBytes(discordOutput, data); err != nil {
		return err
	}
	logger.Infof("Discord JSON output has been written to %s", discordOutput)

	if args.PluginMarkdownOutput != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeBytes(args.PluginMarkdownOutput, []byte(RenderMarkdown(report, args.RenderContext))); err != nil {
			return err
		}
		logger.Infof("Markdown output has been written to %s", args.PluginMarkdownOutput)
	}

	if args.PluginImageOutput != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		opts := DefaultImageOptions(args.OS)
		if len(args.PluginFontDirs) > 0 {
			opts.Fonts.Dirs = args.PluginFontDirs
		}
		img, err := RenderImage(report, args.RenderContext, opts)
		if err != nil {
			return err
		}
		if err := writeOutput(args.PluginImageOutput, func(w io.Writer) error {
			return EncodePNG(w, img)
		}); err != nil {
			return err
		}
		logger.Infof("Image output has been written to %s", args.PluginImageOutput)
	}

	logger.Debugf("Rendered outputs for %d test(s) of tool %s", len(report.Tests), report.Summary.Tool)
	return nil
}
