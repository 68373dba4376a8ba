package runner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bitrise-io/go-utils/v2/log"
)

// maxEventBytes caps a single stream line. Failure events carry whole stack
// traces, so the cap is generous.
const maxEventBytes = 4 * 1024 * 1024

// Handler receives decoded events in stream order.
type Handler func(event Event) error

// StreamDecoder reads a JSON lines event stream and replays it on a
// handler. Suites are referenced by id on the wire; the decoder keeps a
// registry so later events resolve to the same Suite value and parent links
// become real pointers.
type StreamDecoder interface {
	Decode(reader io.Reader, handle Handler) error
}

type streamDecoder struct {
	logger log.Logger
	suites map[string]*Suite
}

// NewStreamDecoder ...
func NewStreamDecoder(logger log.Logger) StreamDecoder {
	return &streamDecoder{
		logger: logger,
		suites: map[string]*Suite{},
	}
}

type wireEvent struct {
	Event    string     `json:"event"`
	Protocol string     `json:"protocol"`
	Suite    *wireSuite `json:"suite"`
	Test     *wireTest  `json:"test"`
	Error    *wireError `json:"error"`
	Stats    *wireStats `json:"stats"`
}

type wireSuite struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Root   bool   `json:"root"`
	Parent string `json:"parent"`
	Tests  int    `json:"tests"`
	Suites int    `json:"suites"`
	File   string `json:"file"`
}

type wireTest struct {
	Title            string   `json:"title"`
	Suite            string   `json:"suite"`
	Duration         *float64 `json:"duration"`
	DurationOverride *float64 `json:"durationOverride"`
	File             string   `json:"file"`
	ConsoleOutputs   []string `json:"consoleOutputs"`
	ConsoleErrors    []string `json:"consoleErrors"`
	Attachments      []string `json:"attachments"`
}

type wireError struct {
	Message  string `json:"message"`
	Name     string `json:"name"`
	Stack    string `json:"stack"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type wireStats struct {
	Duration float64 `json:"duration"`
	Tests    int     `json:"tests"`
	Failures int     `json:"failures"`
	Pending  int     `json:"pending"`
}

func (d *streamDecoder) Decode(reader io.Reader, handle Handler) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var wire wireEvent
		if err := json.Unmarshal(line, &wire); err != nil {
			return fmt.Errorf("malformed event at line %d: %w", lineNumber, err)
		}

		event, ok := d.resolve(wire)
		if !ok {
			d.logger.Debugf("Skipping event %q at line %d", wire.Event, lineNumber)
			continue
		}

		if err := handle(event); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	return nil
}

func (d *streamDecoder) resolve(wire wireEvent) (Event, bool) {
	switch EventKind(wire.Event) {
	case EventStart:
		return Event{Kind: EventStart, Protocol: wire.Protocol}, true
	case EventSuite:
		if wire.Suite == nil {
			return Event{}, false
		}
		return Event{Kind: EventSuite, Suite: d.registerSuite(wire.Suite)}, true
	case EventSuiteEnd:
		if wire.Suite == nil {
			return Event{}, false
		}
		return Event{Kind: EventSuiteEnd, Suite: d.suites[wire.Suite.ID]}, true
	case EventPass, EventFail, EventPending:
		if wire.Test == nil {
			return Event{}, false
		}
		event := Event{Kind: EventKind(wire.Event), Test: d.resolveTest(wire.Test)}
		if wire.Error != nil {
			event.Err = &TestError{
				Message:  wire.Error.Message,
				Name:     wire.Error.Name,
				Stack:    wire.Error.Stack,
				Expected: wire.Error.Expected,
				Actual:   wire.Error.Actual,
			}
		}
		return event, true
	case EventEnd:
		stats := Stats{}
		if wire.Stats != nil {
			stats = Stats{
				DurationMS: wire.Stats.Duration,
				Tests:      wire.Stats.Tests,
				Failures:   wire.Stats.Failures,
				Pending:    wire.Stats.Pending,
			}
		}
		return Event{Kind: EventEnd, Stats: &stats}, true
	default:
		return Event{}, false
	}
}

// registerSuite creates or refreshes the registry entry for a wire suite.
// Later events carrying the same id resolve to the same Suite value, which
// is what makes identity-keyed side tables possible downstream.
func (d *streamDecoder) registerSuite(wire *wireSuite) *Suite {
	suite, ok := d.suites[wire.ID]
	if !ok {
		suite = &Suite{}
		if wire.ID != "" {
			d.suites[wire.ID] = suite
		}
	}

	suite.ID = wire.ID
	suite.Title = wire.Title
	suite.Root = wire.Root
	suite.Tests = wire.Tests
	suite.Suites = wire.Suites
	suite.File = wire.File
	if wire.Parent != "" {
		suite.Parent = d.suites[wire.Parent]
	}

	return suite
}

func (d *streamDecoder) resolveTest(wire *wireTest) *Test {
	return &Test{
		Title:              wire.Title,
		Suite:              d.suites[wire.Suite],
		DurationMS:         wire.Duration,
		DurationOverrideMS: wire.DurationOverride,
		File:               wire.File,
		ConsoleOutputs:     wire.ConsoleOutputs,
		ConsoleErrors:      wire.ConsoleErrors,
		Attachments:        wire.Attachments,
	}
}
