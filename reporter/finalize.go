package reporter

import (
	"strconv"
	"time"

	"github.com/bitrise-steplib/steps-junit-report/runner"
	"github.com/bitrise-steplib/steps-junit-report/xmlbuilder"
)

// Report is the finalized, serialized document plus the values report path
// placeholders resolve from.
type Report struct {
	XML string

	TestsuitesTitle string
	RootSuiteTitle  string
	// FirstSuiteFile is the source file of the first reported suite, if any.
	FirstSuiteFile string
	// SecondSuiteName is the name of the suite following the root.
	SecondSuiteName string

	Tests    int
	Failures int
	Skipped  int
}

// Finalize computes the per-suite rollups, formats timestamps and
// durations, wraps the suites in the testsuites element and serializes the
// document. The built tree is read, never written, so a second call yields
// byte identical output.
func (r *junitReporter) Finalize(stats runner.Stats) Report {
	totalTests := 0
	totalSkipped := 0
	var suiteElements []*xmlbuilder.Element
	for _, suite := range r.suites {
		totalTests += suite.Tests
		for _, testcase := range suite.Testcases {
			if testcase.Skipped {
				totalSkipped++
			}
		}
		suiteElements = append(suiteElements, suiteElement(suite))
	}

	root := xmlbuilder.NewElement("testsuites")
	root.SetAttr("name", r.opts.TestsuitesTitle)
	root.SetAttr("time", formatMillis(stats.DurationMS))
	root.SetAttr("tests", strconv.Itoa(totalTests))
	root.SetAttr("failures", strconv.Itoa(stats.Failures))
	if stats.Pending > 0 {
		root.SetAttr("skipped", strconv.Itoa(stats.Pending))
	}
	for _, element := range suiteElements {
		root.AddChild(element)
	}

	report := Report{
		XML: xmlbuilder.Serialize([]*xmlbuilder.Element{root}, xmlbuilder.Options{
			Declaration: true,
			Indent:      "  ",
		}),
		TestsuitesTitle: r.opts.TestsuitesTitle,
		RootSuiteTitle:  r.opts.RootSuiteTitle,
		Tests:           totalTests,
		Failures:        stats.Failures,
		Skipped:         totalSkipped,
	}
	if len(r.suites) > 0 {
		report.FirstSuiteFile = r.suites[0].file
	}
	if len(r.suites) > 1 {
		report.SecondSuiteName = r.suites[1].Name
	}
	return report
}

func suiteElement(suite *SuiteNode) *xmlbuilder.Element {
	failures := 0
	skipped := 0
	for _, testcase := range suite.Testcases {
		if testcase.Failure != nil {
			failures++
		}
		if testcase.Skipped {
			skipped++
		}
	}

	element := xmlbuilder.NewElement("testsuite")
	element.SetAttr("name", suite.Name)
	element.SetAttr("timestamp", suite.Timestamp.UTC().Format("2006-01-02T15:04:05"))
	element.SetAttr("tests", strconv.Itoa(suite.Tests))
	element.SetAttr("time", formatSeconds(suiteElapsed(suite)))
	element.SetAttr("failures", strconv.Itoa(failures))
	if skipped > 0 {
		element.SetAttr("skipped", strconv.Itoa(skipped))
	}

	for _, testcase := range suite.Testcases {
		element.AddChild(testcaseElement(testcase))
	}
	return element
}

func testcaseElement(testcase *TestcaseNode) *xmlbuilder.Element {
	element := xmlbuilder.NewElement("testcase")
	element.SetAttr("name", testcase.Name)
	element.SetAttr("time", formatSeconds(testcase.Duration))
	element.SetAttr("classname", testcase.Classname)
	if testcase.File != "" {
		element.SetAttr("file", testcase.File)
	}

	if testcase.SystemOut != "" {
		element.AddChild(xmlbuilder.NewElement("system-out").SetText(testcase.SystemOut))
	}
	if testcase.SystemErr != "" {
		element.AddChild(xmlbuilder.NewElement("system-err").SetText(testcase.SystemErr))
	}
	if testcase.Failure != nil {
		failure := xmlbuilder.NewElement("failure")
		failure.SetAttr("message", testcase.Failure.Message)
		failure.SetAttr("type", testcase.Failure.Type)
		failure.SetCDATA(testcase.Failure.Content)
		element.AddChild(failure)
	}
	if testcase.Skipped {
		element.AddChild(xmlbuilder.NewElement("skipped").SetNil())
	}
	return element
}

// suiteElapsed treats a missing suite end as zero elapsed time rather than
// leaving the time attribute out.
func suiteElapsed(suite *SuiteNode) time.Duration {
	if suite.Elapsed == nil {
		return 0
	}
	return *suite.Elapsed
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func formatMillis(ms float64) string {
	return strconv.FormatFloat(ms/1000.0, 'f', 3, 64)
}
