package runner

// EventKind identifies one lifecycle notification in a runner's event
// stream.
type EventKind string

// Event kinds in the order a run emits them. Suites nest: a suite event is
// followed by its outcomes and nested suites, then by its suite end event.
// The end event arrives exactly once, after every suite closed.
const (
	EventStart    EventKind = "start"
	EventSuite    EventKind = "suite"
	EventSuiteEnd EventKind = "suite end"
	EventPass     EventKind = "pass"
	EventFail     EventKind = "fail"
	EventPending  EventKind = "pending"
	EventEnd      EventKind = "end"
)

// Suite is one node of the runner's suite tree.
type Suite struct {
	ID     string
	Title  string
	Root   bool
	Parent *Suite
	// Tests is the suite's own test count, not including nested suites.
	Tests int
	// Suites is the suite's own child suite count.
	Suites int
	File   string
}

// Test is one executed test.
type Test struct {
	Title string
	Suite *Suite
	// DurationMS is the runner-measured duration.
	DurationMS *float64
	// DurationOverrideMS, when present, wins over the measured duration.
	DurationOverrideMS *float64
	File               string
	ConsoleOutputs     []string
	ConsoleErrors      []string
	Attachments        []string
}

// TestError describes why a test failed.
type TestError struct {
	Message  string
	Name     string
	Stack    string
	Expected string
	Actual   string
}

// Stats is the aggregate run summary carried by the end event.
type Stats struct {
	DurationMS float64
	Tests      int
	Failures   int
	Pending    int
}

// Event is one decoded stream entry. The payload fields are set according
// to Kind: Suite for suite events, Test (and Err on failure) for outcomes,
// Stats for the end event and Protocol for the start event.
type Event struct {
	Kind     EventKind
	Protocol string
	Suite    *Suite
	Test     *Test
	Err      *TestError
	Stats    *Stats
}
