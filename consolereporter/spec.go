package consolereporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/colorstring"
	"github.com/bitrise-io/go-utils/stringutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-junit-report/runner"
)

// SpecReporterName selects the reporter that prints one line per test,
// nested under its suite.
const SpecReporterName = "spec"

const defaultStackTailLines = 10

type specReporter struct {
	logger     log.Logger
	stackLines int
}

// NewSpecReporter ...
func NewSpecReporter(logger log.Logger, options []string) (Reporter, error) {
	reporter := &specReporter{
		logger:     logger,
		stackLines: defaultStackTailLines,
	}

	for _, option := range options {
		key, value, found := strings.Cut(option, "=")
		if !found {
			return nil, fmt.Errorf("invalid option %q for the %s reporter, expected key=value", option, SpecReporterName)
		}
		switch key {
		case "stack-lines":
			lines, err := strconv.Atoi(value)
			if err != nil || lines < 0 {
				return nil, fmt.Errorf("invalid stack-lines value: %q", value)
			}
			reporter.stackLines = lines
		default:
			return nil, fmt.Errorf("unknown option %q for the %s reporter", key, SpecReporterName)
		}
	}

	return reporter, nil
}

func (r *specReporter) OnSuiteStart(suite *runner.Suite) {
	title := strings.TrimSpace(suite.Title)
	if title == "" {
		return
	}
	r.logger.Printf("%s%s", indent(suiteDepth(suite)), title)
}

func (r *specReporter) OnOutcome(test *runner.Test, testErr *runner.TestError) {
	pad := indent(suiteDepth(test.Suite) + 1)
	if testErr == nil {
		r.logger.Printf("%s%s %s", pad, colorstring.Green("✓"), test.Title)
		return
	}

	r.logger.Printf("%s%s %s", pad, colorstring.Red("✗"), test.Title)
	if testErr.Message != "" {
		r.logger.Printf("%s  %s", pad, colorstring.Red(testErr.Message))
	}
	if testErr.Stack != "" && r.stackLines > 0 {
		r.logger.Printf("%s", stringutil.LastNLines(testErr.Stack, r.stackLines))
	}
}

func (r *specReporter) OnPending(test *runner.Test) {
	r.logger.Printf("%s%s", indent(suiteDepth(test.Suite)+1), colorstring.Cyan("- "+test.Title))
}

func (r *specReporter) OnRunEnd(stats runner.Stats) {
	passed := stats.Tests - stats.Failures - stats.Pending
	if passed < 0 {
		passed = 0
	}

	r.logger.Println()
	r.logger.Printf("%s", colorstring.Green(fmt.Sprintf("%d passing (%s)", passed, formatDuration(stats.DurationMS))))
	if stats.Pending > 0 {
		r.logger.Printf("%s", colorstring.Cyan(fmt.Sprintf("%d pending", stats.Pending)))
	}
	if stats.Failures > 0 {
		r.logger.Printf("%s", colorstring.Red(fmt.Sprintf("%d failing", stats.Failures)))
	}
}

func suiteDepth(suite *runner.Suite) int {
	depth := 0
	for s := suite; s != nil && s.Parent != nil; s = s.Parent {
		depth++
	}
	return depth
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
