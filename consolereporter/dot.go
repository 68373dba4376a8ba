package consolereporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/colorstring"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-junit-report/runner"
)

// DotReporterName selects the reporter that prints one marker per test.
const DotReporterName = "dot"

const defaultLineWidth = 50

type dotReporter struct {
	logger log.Logger
	width  int

	line  strings.Builder
	count int
}

// NewDotReporter ...
func NewDotReporter(logger log.Logger, options []string) (Reporter, error) {
	reporter := &dotReporter{
		logger: logger,
		width:  defaultLineWidth,
	}

	for _, option := range options {
		key, value, found := strings.Cut(option, "=")
		if !found {
			return nil, fmt.Errorf("invalid option %q for the %s reporter, expected key=value", option, DotReporterName)
		}
		switch key {
		case "width":
			width, err := strconv.Atoi(value)
			if err != nil || width < 1 {
				return nil, fmt.Errorf("invalid width value: %q", value)
			}
			reporter.width = width
		default:
			return nil, fmt.Errorf("unknown option %q for the %s reporter", key, DotReporterName)
		}
	}

	return reporter, nil
}

func (r *dotReporter) OnSuiteStart(suite *runner.Suite) {}

func (r *dotReporter) OnOutcome(test *runner.Test, testErr *runner.TestError) {
	if testErr == nil {
		r.append(".")
		return
	}
	r.append(colorstring.Red("F"))
}

func (r *dotReporter) OnPending(test *runner.Test) {
	r.append(colorstring.Cyan(","))
}

func (r *dotReporter) OnRunEnd(stats runner.Stats) {
	r.flush()
	r.logger.Printf("%d tests, %d failures, %d pending (%s)", stats.Tests, stats.Failures, stats.Pending, formatDuration(stats.DurationMS))
}

// append buffers one marker and starts a new line once the current one is
// full. Markers may carry color escapes, so width counts tests, not bytes.
func (r *dotReporter) append(marker string) {
	r.line.WriteString(marker)
	r.count++
	if r.count >= r.width {
		r.flush()
	}
}

func (r *dotReporter) flush() {
	if r.count == 0 {
		return
	}
	r.logger.Printf("%s", r.line.String())
	r.line.Reset()
	r.count = 0
}
