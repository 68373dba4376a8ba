package reporter

import "time"

// SuiteNode is one testsuite element in the making. Timestamp and Elapsed
// stay typed until the report is finalized; Tests is fixed when the node is
// created and never recomputed from appended testcases.
type SuiteNode struct {
	Name      string
	Timestamp time.Time
	Tests     int
	Elapsed   *time.Duration
	Testcases []*TestcaseNode

	file string
}

// TestcaseNode is one testcase element in the making.
type TestcaseNode struct {
	Name      string
	Classname string
	Duration  time.Duration
	File      string

	SystemOut string
	SystemErr string
	Failure   *FailureNode
	Skipped   bool
}

// FailureNode carries the failure child's attributes and character data.
type FailureNode struct {
	Message string
	Type    string
	Content string
}
