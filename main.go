// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/drone/drone-test-summary/plugin"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var args plugin.Args
	if err := envconfig.Process("", &args); err != nil {
		logrus.Fatalln(err)
	}

	if err := newRootCommand(&args).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newRootCommand returns the command line entrypoint. Flags default to the
// values read from the environment so the binary works both as a Drone
// plugin and from a shell.
func newRootCommand(args *plugin.Args) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "drone-test-summary <report.xml> <tool-name>",
		Short:        "Summarize a JUnit-style test report as JSON, a Discord message and an image",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			if len(positional) > 0 {
				args.PluginTestReportPath = positional[0]
			}
			if len(positional) > 1 {
				args.PluginToolName = positional[1]
			}
			if err := setLogLevel(args.Level); err != nil {
				return err
			}
			return plugin.Exec(cmd.Context(), *args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&args.Level, "log-level", args.Level, "Log level (trace, debug, info, warn, error).")
	flags.StringVar(&args.PluginJSONOutput, "json-output", args.PluginJSONOutput, "Path to the output JSON file.")
	flags.StringVar(&args.PluginDiscordOutput, "discord-output", args.PluginDiscordOutput, "Path to the output Discord JSON file.")
	flags.StringVar(&args.PluginMarkdownOutput, "markdown-output", args.PluginMarkdownOutput, "Path to the output Markdown file.")
	flags.StringVar(&args.PluginImageOutput, "image-output", args.PluginImageOutput, "Path to the rendered PNG summary.")
	flags.StringVar(&args.PluginStylesheet, "stylesheet", args.PluginStylesheet, "XSLT stylesheet applied to the report before parsing.")
	flags.StringVar(&args.PluginPassStatus, "pass-status", args.PluginPassStatus, "Status attribute value counted as passed.")
	flags.StringVar(&args.PluginFailStatus, "fail-status", args.PluginFailStatus, "Status attribute value counted as failed.")
	flags.BoolVar(&args.PluginIncludeMessage, "include-message", args.PluginIncludeMessage, "Keep system-out and failure text on test records.")
	flags.StringSliceVar(&args.PluginFontDirs, "font-dir", args.PluginFontDirs, "Directories searched for the image fonts.")
	flags.BoolVar(&args.PluginFailIfNoResults, "fail-if-no-results", args.PluginFailIfNoResults, "Fail when the report contains no test cases.")
	flags.BoolVar(&args.PluginFailedTestsFailBuild, "failed-tests-fail-build", args.PluginFailedTestsFailBuild, "Fail when the report contains failed test cases.")
	flags.StringVar(&args.OS, "os", args.OS, "Runner operating system.")
	flags.StringVar(&args.Compiler, "compiler", args.Compiler, "Runner compiler.")
	flags.StringVar(&args.Event, "event", args.Event, "The event triggering the build.")
	flags.StringVar(&args.Author, "author", args.Author, "The user triggering the build.")
	flags.StringVar(&args.Branch, "branch", args.Branch, "The branch the build was triggered on.")
	flags.StringVar(&args.CommitMessage, "commit-message", args.CommitMessage, "Commit message of the build.")

	cmd.AddCommand(newWrapTextCommand())
	return cmd
}

// newWrapTextCommand wraps a plain text test log into an NUnit document so
// runners without a structured report can go through the NUnit stylesheet.
func newWrapTextCommand() *cobra.Command {
	run := plugin.TextRun{
		Suite:   "TestSuite",
		Fixture: "TextOutput",
		Case:    "Run",
		Result:  "Passed",
	}
	cmd := &cobra.Command{
		Use:          "wrap-text <input.txt> <output.xml>",
		Short:        "Wrap a plain text test log into an NUnit result document",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			if run.Result != "Passed" && run.Result != "Failed" {
				return errors.Errorf("invalid result %q, expected Passed or Failed", run.Result)
			}
			return plugin.WriteTextRun(positional[0], positional[1], run)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&run.Suite, "suite", run.Suite, "Name of the wrapping test suite.")
	flags.StringVar(&run.Fixture, "fixture", run.Fixture, "Name of the test fixture.")
	flags.StringVar(&run.Case, "case", run.Case, "Name of the test case.")
	flags.StringVar(&run.Result, "result", run.Result, "Result of the test case, Passed or Failed.")
	flags.Float64Var(&run.Duration, "duration", run.Duration, "Duration of the run in seconds.")

	return cmd
}

func setLogLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}
