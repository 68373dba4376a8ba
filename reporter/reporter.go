package reporter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-junit-report/pathtransform"
	"github.com/bitrise-steplib/steps-junit-report/runner"
	"github.com/pmezard/go-difflib/difflib"
)

// Default report labels.
const (
	DefaultTestsuitesTitle     = "Test Suites"
	DefaultRootSuiteTitle      = "Root Suite"
	DefaultSuiteTitleSeparator = "."
)

// Options control how runner events are folded into the report.
type Options struct {
	TestsuitesTitle     string
	RootSuiteTitle      string
	SuiteTitleSeparator string
	// UseFullSuiteTitle names suites by their ancestor path instead of
	// their own title.
	UseFullSuiteTitle      bool
	SwitchClassnameAndName bool
	IncludePending         bool
	IncludeConsoleOutputs  bool
	IncludeAttachments     bool
	SuppressErrorDiff      bool
	// WorkDir makes absolute testcase file paths repository relative.
	WorkDir        string
	PathTransforms *pathtransform.Set
}

func (o Options) withDefaults() Options {
	if o.TestsuitesTitle == "" {
		o.TestsuitesTitle = DefaultTestsuitesTitle
	}
	if o.RootSuiteTitle == "" {
		o.RootSuiteTitle = DefaultRootSuiteTitle
	}
	if o.SuiteTitleSeparator == "" {
		o.SuiteTitleSeparator = DefaultSuiteTitleSeparator
	}
	return o
}

// Reporter folds runner lifecycle events into a JUnit style report. The
// handlers run synchronously in stream order; Finalize renders the built
// tree without modifying it, so calling it repeatedly yields the same
// document.
type Reporter interface {
	OnSuiteStart(suite *runner.Suite)
	OnSuiteEnd(suite *runner.Suite)
	OnOutcome(test *runner.Test, testErr *runner.TestError)
	OnPending(test *runner.Test)
	RunStats() runner.Stats
	Finalize(stats runner.Stats) Report
}

type junitReporter struct {
	opts   Options
	clock  Clock
	logger log.Logger

	suites []*SuiteNode
	last   *SuiteNode
	nodes  map[*runner.Suite]*SuiteNode
	files  map[*runner.Suite]string
}

// NewReporter ...
func NewReporter(opts Options, clock Clock, logger log.Logger) Reporter {
	return &junitReporter{
		opts:   opts.withDefaults(),
		clock:  clock,
		logger: logger,
		nodes:  map[*runner.Suite]*SuiteNode{},
		files:  map[*runner.Suite]string{},
	}
}

func (r *junitReporter) OnSuiteStart(suite *runner.Suite) {
	if isInvalidSuite(suite) {
		return
	}

	node := &SuiteNode{
		Name:      r.suiteName(suite),
		Timestamp: r.clock.Now(),
		Tests:     suite.Tests,
		file:      r.resolveFile(suite),
	}

	r.suites = append(r.suites, node)
	r.last = node
	r.nodes[suite] = node
}

func (r *junitReporter) OnSuiteEnd(suite *runner.Suite) {
	if isInvalidSuite(suite) {
		return
	}

	node := r.nodes[suite]
	if node == nil || node.Elapsed != nil {
		return
	}

	elapsed := r.clock.Now().Sub(node.Timestamp)
	node.Elapsed = &elapsed
}

func (r *junitReporter) OnOutcome(test *runner.Test, testErr *runner.TestError) {
	r.appendTestcase(test, testErr, false)
}

// OnPending records a skipped testcase when pending tests are included.
func (r *junitReporter) OnPending(test *runner.Test) {
	if !r.opts.IncludePending {
		return
	}
	r.appendTestcase(test, nil, true)
}

// RunStats derives run totals from the built tree, for streams that end
// without a run summary event.
func (r *junitReporter) RunStats() runner.Stats {
	var stats runner.Stats
	var start, end time.Time

	for _, suite := range r.suites {
		stats.Tests += suite.Tests
		if start.IsZero() || suite.Timestamp.Before(start) {
			start = suite.Timestamp
		}
		if suite.Elapsed != nil {
			if suiteEnd := suite.Timestamp.Add(*suite.Elapsed); suiteEnd.After(end) {
				end = suiteEnd
			}
		}
		for _, testcase := range suite.Testcases {
			if testcase.Failure != nil {
				stats.Failures++
			}
			if testcase.Skipped {
				stats.Pending++
			}
		}
	}

	if !start.IsZero() && end.After(start) {
		stats.DurationMS = float64(end.Sub(start)) / float64(time.Millisecond)
	}
	return stats
}

func (r *junitReporter) appendTestcase(test *runner.Test, testErr *runner.TestError, skipped bool) {
	if test == nil {
		return
	}
	if r.last == nil {
		r.logger.Debugf("Dropping result for %s, no suite started yet", test.Title)
		return
	}

	node := &TestcaseNode{
		Name:      stripANSI(test.Title),
		Classname: r.classname(test.Suite),
		Duration:  testDuration(test),
		File:      r.testFile(test),
	}
	if r.opts.SwitchClassnameAndName {
		node.Name, node.Classname = node.Classname, node.Name
	}

	node.SystemOut = r.systemOut(test)
	if r.opts.IncludeConsoleOutputs && len(test.ConsoleErrors) > 0 {
		node.SystemErr = sanitizeContent(strings.Join(test.ConsoleErrors, "\n"))
	}
	if testErr != nil {
		node.Failure = r.failureNode(testErr)
	}
	node.Skipped = skipped

	r.last.Testcases = append(r.last.Testcases, node)
}

// isInvalidSuite tells which suites stay out of the report: unnamed
// non-root suites and suites with neither own tests nor child suites.
func isInvalidSuite(suite *runner.Suite) bool {
	if suite == nil {
		return true
	}
	if !suite.Root && suite.Title == "" {
		return true
	}
	return suite.Tests == 0 && suite.Suites == 0
}

func (r *junitReporter) suiteName(suite *runner.Suite) string {
	if suite.Root && suite.Title == "" {
		return r.opts.RootSuiteTitle
	}
	if r.opts.UseFullSuiteTitle {
		return strings.Join(titlePath(suite), r.opts.SuiteTitleSeparator)
	}
	return stripANSI(suite.Title)
}

// classname is the dot joined ancestor path of the owning suite. Unlike the
// suite name it always uses a dot, so report consumers can split it into
// package segments.
func (r *junitReporter) classname(suite *runner.Suite) string {
	return strings.Join(titlePath(suite), ".")
}

// titlePath collects the stripped, non-empty titles from the root down to
// the given suite. Unnamed placeholder suites contribute no segment.
func titlePath(suite *runner.Suite) []string {
	var titles []string
	for s := suite; s != nil; s = s.Parent {
		if title := stripANSI(s.Title); title != "" {
			titles = append([]string{title}, titles...)
		}
	}
	return titles
}

// resolveFile caches the effective source file of a suite: its own file,
// else the nearest ancestor's. The cache is keyed by suite identity so the
// runner's objects are never written to.
func (r *junitReporter) resolveFile(suite *runner.Suite) string {
	if suite == nil {
		return ""
	}
	if file, ok := r.files[suite]; ok {
		return file
	}

	file := suite.File
	if file == "" {
		file = r.resolveFile(suite.Parent)
	}
	r.files[suite] = file
	return file
}

func (r *junitReporter) testFile(test *runner.Test) string {
	file := test.File
	if file == "" {
		file = r.resolveFile(test.Suite)
	}
	if file == "" {
		return ""
	}

	if r.opts.WorkDir != "" && filepath.IsAbs(file) {
		if rel, err := filepath.Rel(r.opts.WorkDir, file); err == nil {
			file = rel
		}
	}
	if r.opts.PathTransforms != nil {
		file = r.opts.PathTransforms.Apply(file)
	}
	return file
}

func (r *junitReporter) systemOut(test *runner.Test) string {
	var lines []string
	if r.opts.IncludeConsoleOutputs {
		lines = append(lines, test.ConsoleOutputs...)
	}
	if r.opts.IncludeAttachments {
		for _, attachment := range test.Attachments {
			lines = append(lines, attachmentMarker(attachment))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return sanitizeContent(strings.Join(lines, "\n"))
}

// attachmentMarker formats the attachment line test report consumers scan
// system-out for.
func attachmentMarker(path string) string {
	return fmt.Sprintf("[[ATTACHMENT|%s]]", path)
}

func (r *junitReporter) failureNode(testErr *runner.TestError) *FailureNode {
	message := testErr.Message
	if message == "" && *testErr != (runner.TestError{}) {
		message = fmt.Sprintf("%+v", *testErr)
	}

	content := testErr.Stack
	if content == "" {
		content = message
	}
	if !r.opts.SuppressErrorDiff && testErr.Expected != "" && testErr.Actual != "" {
		if diff := expectedActualDiff(testErr.Expected, testErr.Actual); diff != "" {
			content = content + "\n\n" + diff
		}
	}

	return &FailureNode{
		Message: stripIllegalXMLChars(stripANSI(message)),
		Type:    testErr.Name,
		Content: stripIllegalXMLChars(stripANSI(content)),
	}
}

// expectedActualDiff renders a unified diff so assertion failures show what
// differed, the way interactive runners print it.
func expectedActualDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(actual),
		B:        difflib.SplitLines(expected),
		FromFile: "actual",
		ToFile:   "expected",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return strings.TrimRight(diff, "\n")
}

func testDuration(test *runner.Test) time.Duration {
	var ms float64
	switch {
	case test.DurationOverrideMS != nil:
		ms = *test.DurationOverrideMS
	case test.DurationMS != nil:
		ms = *test.DurationMS
	}
	return time.Duration(ms * float64(time.Millisecond))
}
