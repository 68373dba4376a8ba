package step

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/progress"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-junit-report/consolereporter"
	"github.com/bitrise-steplib/steps-junit-report/output"
	"github.com/bitrise-steplib/steps-junit-report/pathtransform"
	"github.com/bitrise-steplib/steps-junit-report/protocol"
	"github.com/bitrise-steplib/steps-junit-report/reporter"
	"github.com/bitrise-steplib/steps-junit-report/runner"
	"github.com/kballard/go-shellquote"
)

// stdinPath marks the event stream arriving on standard input.
const stdinPath = "-"

// Input ...
type Input struct {
	// Event Stream
	EventStreamPath string `env:"event_stream_path,required"`

	// Report Contents
	TestsuitesTitle        string `env:"testsuites_title"`
	RootSuiteTitle         string `env:"root_suite_title"`
	SuiteTitleSeparator    string `env:"suite_title_separator"`
	UseFullSuiteTitle      bool   `env:"use_full_suite_title,opt[yes,no]"`
	SwitchClassnameAndName bool   `env:"switch_classname_and_name,opt[yes,no]"`
	IncludePending         bool   `env:"include_pending,opt[yes,no]"`
	IncludeConsoleOutputs  bool   `env:"include_console_outputs,opt[yes,no]"`
	IncludeAttachments     bool   `env:"include_attachments,opt[yes,no]"`
	SuppressErrorDiff      bool   `env:"suppress_error_diff,opt[yes,no]"`

	// Testcase File Paths
	FilePathTransforms string `env:"file_path_transforms"`
	WorkDir            string `env:"work_dir"`

	// Console Output
	ConsoleReporter        string `env:"console_reporter"`
	ConsoleReporterOptions string `env:"console_reporter_options"`
	EchoReport             bool   `env:"echo_report,opt[yes,no]"`

	// Debug
	OptionsPath string `env:"options_path"`
	Verbose     bool   `env:"verbose,opt[yes,no]"`

	// Output export
	ReportPath string `env:"report_path,required"`
	DeployDir  string `env:"BITRISE_DEPLOY_DIR"`
}

// Config ...
type Config struct {
	EventStreamPath string
	ReportPath      string

	ReporterOptions reporter.Options

	ConsoleReporter        string
	ConsoleReporterOptions []string
	EchoReport             bool
}

// JUnitReportConfigParser ...
type JUnitReportConfigParser struct {
	inputParser  stepconf.InputParser
	logger       log.Logger
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
	fileManager  fileutil.FileManager
	reporters    *consolereporter.Registry
}

// NewJUnitReportConfigParser ...
func NewJUnitReportConfigParser(inputParser stepconf.InputParser, logger log.Logger, pathModifier pathutil.PathModifier, pathChecker pathutil.PathChecker, fileManager fileutil.FileManager, reporters *consolereporter.Registry) JUnitReportConfigParser {
	return JUnitReportConfigParser{
		inputParser:  inputParser,
		logger:       logger,
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
		fileManager:  fileManager,
		reporters:    reporters,
	}
}

// ProcessConfig ...
func (p JUnitReportConfigParser) ProcessConfig() (Config, error) {
	var input Input
	err := p.inputParser.Parse(&input)
	if err != nil {
		return Config{}, err
	}

	stepconf.Print(input)
	p.logger.Println()

	p.logger.EnableDebugLog(input.Verbose)

	if input.OptionsPath != "" {
		options, err := p.loadOptionsFile(input.OptionsPath)
		if err != nil {
			return Config{}, err
		}

		p.logger.Debugf("Applying report options from %s", input.OptionsPath)
		applyOptionsFile(&input, options)
	}

	// validate event stream path
	eventStreamPath := input.EventStreamPath
	if eventStreamPath != stdinPath {
		eventStreamPath, err = p.pathModifier.AbsPath(input.EventStreamPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute event stream path: %w", err)
		}

		exists, err := p.pathChecker.IsPathExists(eventStreamPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to check event stream path %s: %w", eventStreamPath, err)
		}
		if !exists {
			return Config{}, fmt.Errorf("event stream file does not exist: %s", eventStreamPath)
		}
	}

	// validate work dir
	workDir := input.WorkDir
	if workDir != "" {
		workDir, err = p.pathModifier.AbsPath(input.WorkDir)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute work dir: %w", err)
		}
	} else {
		workDir, err = os.Getwd()
		if err != nil {
			p.logger.Warnf("Failed to determine the working directory, testcase file paths are kept as recorded: %s", err)
			workDir = ""
		}
	}

	// validate file path transforms
	transforms, err := pathtransform.New(input.FilePathTransforms, p.logger)
	if err != nil {
		return Config{}, err
	}

	// validate console reporter
	var consoleReporterOptions []string
	if input.ConsoleReporter != "" {
		consoleReporterOptions, err = shellquote.Split(input.ConsoleReporterOptions)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse console reporter options (%s): %w", input.ConsoleReporterOptions, err)
		}

		// The console reporter is built again in Run; creating it here
		// surfaces bad names and options before any event is consumed.
		if _, err := p.reporters.Create(input.ConsoleReporter, p.logger, consoleReporterOptions); err != nil {
			return Config{}, err
		}
	}

	// A relative report path is anchored in the deploy dir when one is set.
	reportPath := input.ReportPath
	if !filepath.IsAbs(reportPath) && input.DeployDir != "" {
		reportPath = filepath.Join(input.DeployDir, reportPath)
	}

	return Config{
		EventStreamPath: eventStreamPath,
		ReportPath:      reportPath,

		ReporterOptions: reporter.Options{
			TestsuitesTitle:        input.TestsuitesTitle,
			RootSuiteTitle:         input.RootSuiteTitle,
			SuiteTitleSeparator:    input.SuiteTitleSeparator,
			UseFullSuiteTitle:      input.UseFullSuiteTitle,
			SwitchClassnameAndName: input.SwitchClassnameAndName,
			IncludePending:         input.IncludePending,
			IncludeConsoleOutputs:  input.IncludeConsoleOutputs,
			IncludeAttachments:     input.IncludeAttachments,
			SuppressErrorDiff:      input.SuppressErrorDiff,
			WorkDir:                workDir,
			PathTransforms:         transforms,
		},

		ConsoleReporter:        input.ConsoleReporter,
		ConsoleReporterOptions: consoleReporterOptions,
		EchoReport:             input.EchoReport,
	}, nil
}

// Result ...
type Result struct {
	Report      reporter.Report
	TestsFailed bool

	ReportPathTemplate string
	EchoReport         bool
}

// JUnitReportGenerator ...
type JUnitReportGenerator struct {
	logger            log.Logger
	fileManager       fileutil.FileManager
	decoder           runner.StreamDecoder
	protocolValidator protocol.Validator
	reporters         *consolereporter.Registry
	clock             reporter.Clock
	outputExporter    output.Exporter
}

// NewJUnitReportGenerator ...
func NewJUnitReportGenerator(logger log.Logger, fileManager fileutil.FileManager, decoder runner.StreamDecoder, protocolValidator protocol.Validator, reporters *consolereporter.Registry, clock reporter.Clock, outputExporter output.Exporter) JUnitReportGenerator {
	return JUnitReportGenerator{
		logger:            logger,
		fileManager:       fileManager,
		decoder:           decoder,
		protocolValidator: protocolValidator,
		reporters:         reporters,
		clock:             clock,
		outputExporter:    outputExporter,
	}
}

// Run ...
func (g JUnitReportGenerator) Run(cfg Config) (Result, error) {
	var consoleReporter consolereporter.Reporter
	if cfg.ConsoleReporter != "" {
		var err error
		consoleReporter, err = g.reporters.Create(cfg.ConsoleReporter, g.logger, cfg.ConsoleReporterOptions)
		if err != nil {
			return Result{}, fmt.Errorf("failed to create console reporter: %w", err)
		}
	}

	stream, err := g.openStream(cfg.EventStreamPath)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			g.logger.Warnf("Failed to close the event stream: %s", err)
		}
	}()

	junitReporter := reporter.NewReporter(cfg.ReporterOptions, g.clock, g.logger)

	g.logger.Println()
	g.logger.Infof("Processing test runner events")

	var endStats *runner.Stats
	handle := func(event runner.Event) error {
		switch event.Kind {
		case runner.EventStart:
			if err := g.protocolValidator.Validate(event.Protocol); err != nil {
				if errors.Is(err, protocol.ErrMissingVersion) {
					g.logger.Warnf("%s, assuming a compatible stream", err)
					return nil
				}
				return err
			}
		case runner.EventSuite:
			junitReporter.OnSuiteStart(event.Suite)
			if consoleReporter != nil {
				consoleReporter.OnSuiteStart(event.Suite)
			}
		case runner.EventSuiteEnd:
			junitReporter.OnSuiteEnd(event.Suite)
		case runner.EventPass, runner.EventFail:
			junitReporter.OnOutcome(event.Test, event.Err)
			if consoleReporter != nil {
				consoleReporter.OnOutcome(event.Test, event.Err)
			}
		case runner.EventPending:
			junitReporter.OnPending(event.Test)
			if consoleReporter != nil {
				consoleReporter.OnPending(event.Test)
			}
		case runner.EventEnd:
			endStats = event.Stats
		}
		return nil
	}

	// The spinner would garble the console reporter's output, so it only
	// runs when no console reporter is configured.
	var decodeErr error
	if consoleReporter == nil {
		progress.SimpleProgress(".", time.Minute, func() {
			decodeErr = g.decoder.Decode(stream, handle)
		})
	} else {
		decodeErr = g.decoder.Decode(stream, handle)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("failed to process the event stream: %w", decodeErr)
	}

	var stats runner.Stats
	if endStats != nil {
		stats = *endStats
	} else {
		g.logger.Warnf("The event stream ended without a run summary, deriving one from the recorded results")
		stats = junitReporter.RunStats()
	}

	if consoleReporter != nil {
		consoleReporter.OnRunEnd(stats)
	}

	report := junitReporter.Finalize(stats)

	g.logger.Println()
	g.logger.Infof("Test run finished: %d tests, %d failures, %d pending", stats.Tests, stats.Failures, stats.Pending)

	return Result{
		Report:      report,
		TestsFailed: stats.Failures > 0,

		ReportPathTemplate: cfg.ReportPath,
		EchoReport:         cfg.EchoReport,
	}, nil
}

// Export ...
func (g JUnitReportGenerator) Export(result Result) error {
	// export test run status
	g.outputExporter.ExportTestRunResult(result.TestsFailed)

	reportPath, err := g.outputExporter.WriteReport(result.ReportPathTemplate, result.Report)
	if err != nil {
		return err
	}
	g.logger.Donef("The JUnit report is available at %s", reportPath)

	g.outputExporter.ExportReport(reportPath, result.Report.TestsuitesTitle)

	if result.EchoReport {
		g.logger.Println()
		g.outputExporter.EchoReport(result.Report)
	}

	return nil
}

func (g JUnitReportGenerator) openStream(path string) (io.ReadCloser, error) {
	if path == stdinPath {
		g.logger.Debugf("Reading the event stream from standard input")
		return io.NopCloser(os.Stdin), nil
	}

	file, err := g.fileManager.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream %s: %w", path, err)
	}
	return file, nil
}
