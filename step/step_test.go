package step

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-junit-report/consolereporter"
	"github.com/bitrise-steplib/steps-junit-report/protocol"
	"github.com/bitrise-steplib/steps-junit-report/reporter"
	"github.com/bitrise-steplib/steps-junit-report/runner"
	"github.com/bitrise-steplib/steps-junit-report/step/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type configParserMocks struct {
	pathModifier *mocks.PathModifier
	pathChecker  *mocks.PathChecker
}

type stepMocks struct {
	outputExporter *mocks.Exporter
}

func Test_GivenValidInputs_WhenProcessingConfig_ThenCreatesConfig(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
	mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)
	mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(true, nil)

	// When
	actualConfig, err := configParser.ProcessConfig()

	// Then
	require.NoError(t, err)

	require.NotNil(t, actualConfig.ReporterOptions.PathTransforms)
	require.Equal(t, 0, actualConfig.ReporterOptions.PathTransforms.Len())

	expectedConfig := Config{
		EventStreamPath: "/workspace/app/events.jsonl",
		ReportPath:      "reports/junit.xml",

		ReporterOptions: reporter.Options{
			WorkDir:        "/workspace/app",
			PathTransforms: actualConfig.ReporterOptions.PathTransforms,
		},
	}
	require.Equal(t, expectedConfig, actualConfig)
}

func Test_GivenStdinEventStream_WhenProcessingConfig_ThenSkipsPathChecks(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	envValues["event_stream_path"] = "-"
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)

	// When
	actualConfig, err := configParser.ProcessConfig()

	// Then
	require.NoError(t, err)
	require.Equal(t, "-", actualConfig.EventStreamPath)
}

func Test_GivenMissingEventStream_WhenProcessingConfig_ThenFails(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
	mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(false, nil)

	// When
	_, err := configParser.ProcessConfig()

	// Then
	require.Error(t, err)
	require.ErrorContains(t, err, "does not exist")
}

func Test_GivenRelativeReportPath_WhenDeployDirIsSet_ThenAnchorsReportPathThere(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	envValues["BITRISE_DEPLOY_DIR"] = "/bitrise/deploy"
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
	mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)
	mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(true, nil)

	// When
	actualConfig, err := configParser.ProcessConfig()

	// Then
	require.NoError(t, err)
	require.Equal(t, "/bitrise/deploy/reports/junit.xml", actualConfig.ReportPath)
}

func Test_GivenOptionsFile_WhenProcessingConfig_ThenOverridesInputs(t *testing.T) {
	// Given
	optionsPath := filepath.Join(t.TempDir(), "report-options.yml")
	optionsContent := "testsuites_title: Nightly\ninclude_pending: true\nreport_path: nightly.xml\n"
	require.NoError(t, fileutil.NewFileManager().Write(optionsPath, optionsContent, 0600))

	envValues := defaultEnvValues()
	envValues["options_path"] = optionsPath
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
	mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)
	mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(true, nil)

	// When
	actualConfig, err := configParser.ProcessConfig()

	// Then
	require.NoError(t, err)
	assert.Equal(t, "Nightly", actualConfig.ReporterOptions.TestsuitesTitle)
	assert.True(t, actualConfig.ReporterOptions.IncludePending)
	assert.Equal(t, "nightly.xml", actualConfig.ReportPath)
}

func Test_GivenMissingOptionsFile_WhenProcessingConfig_ThenFails(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	envValues["options_path"] = filepath.Join(t.TempDir(), "report-options.yml")
	configParser, _ := createConfigParser(t, envValues)

	// When
	_, err := configParser.ProcessConfig()

	// Then
	require.Error(t, err)
}

func Test_GivenMalformedPathTransforms_WhenProcessingConfig_ThenFails(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	envValues["file_path_transforms"] = "{search: 'build/'}"
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
	mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)
	mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(true, nil)

	// When
	_, err := configParser.ProcessConfig()

	// Then
	require.Error(t, err)
}

func Test_GivenUnknownConsoleReporter_WhenProcessingConfig_ThenFails(t *testing.T) {
	// Given
	envValues := defaultEnvValues()
	envValues["console_reporter"] = "teamcity"
	configParser, mocks := createConfigParser(t, envValues)

	mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
	mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)
	mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(true, nil)

	// When
	_, err := configParser.ProcessConfig()

	// Then
	require.Error(t, err)
	require.ErrorContains(t, err, "unknown console reporter")
}

func Test_GivenBadConsoleReporterOptions_WhenProcessingConfig_ThenFails(t *testing.T) {
	tests := []struct {
		name    string
		options string
	}{
		{
			name:    "Unbalanced quoting",
			options: "'unterminated",
		},
		{
			name:    "Unknown option",
			options: "verbosity=3",
		},
		{
			name:    "Invalid option value",
			options: "stack-lines=many",
		},
	}

	for _, test := range tests {
		t.Log(test.name)

		envValues := defaultEnvValues()
		envValues["console_reporter"] = "spec"
		envValues["console_reporter_options"] = test.options
		configParser, mocks := createConfigParser(t, envValues)

		mocks.pathModifier.On("AbsPath", "./events.jsonl").Return("/workspace/app/events.jsonl", nil)
		mocks.pathModifier.On("AbsPath", "/workspace/app").Return("/workspace/app", nil)
		mocks.pathChecker.On("IsPathExists", "/workspace/app/events.jsonl").Return(true, nil)

		_, err := configParser.ProcessConfig()

		require.Error(t, err)
	}
}

func Test_GivenStep_WhenRuns_ThenBuildsReport(t *testing.T) {
	// Given
	step, _ := createStepAndMocks(t)
	streamPath := writeStreamFile(t, defaultStreamLines())

	config := Config{
		EventStreamPath: streamPath,
		ReportPath:      "report.xml",
		ReporterOptions: reporter.Options{WorkDir: "/workspace/app"},
	}

	// When
	result, err := step.Run(config)

	// Then
	require.NoError(t, err)
	assert.True(t, result.TestsFailed)
	assert.Equal(t, "report.xml", result.ReportPathTemplate)
	assert.Equal(t, 2, result.Report.Tests)
	assert.Equal(t, 1, result.Report.Failures)
	assert.Contains(t, result.Report.XML, `<testsuite name="Auth" `)
	assert.Contains(t, result.Report.XML, `<failure message="boom" type="Error">`)
	assert.Contains(t, result.Report.XML, `file="auth.test.js"`)
}

func Test_GivenConsoleReporter_WhenRuns_ThenBuildsReport(t *testing.T) {
	// Given
	step, _ := createStepAndMocks(t)
	streamPath := writeStreamFile(t, defaultStreamLines())

	config := Config{
		EventStreamPath: streamPath,
		ReportPath:      "report.xml",
		ConsoleReporter: consolereporter.DotReporterName,
	}

	// When
	result, err := step.Run(config)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 2, result.Report.Tests)
}

func Test_GivenUnsupportedProtocolVersion_WhenRuns_ThenFails(t *testing.T) {
	// Given
	step, _ := createStepAndMocks(t)
	lines := defaultStreamLines()
	lines[0] = `{"event": "start", "protocol": "3.0.0"}`
	streamPath := writeStreamFile(t, lines)

	config := Config{EventStreamPath: streamPath, ReportPath: "report.xml"}

	// When
	_, err := step.Run(config)

	// Then
	require.Error(t, err)
	require.ErrorContains(t, err, "unsupported protocol version")
}

func Test_GivenStreamWithoutProtocolVersion_WhenRuns_ThenBuildsReport(t *testing.T) {
	// Given
	step, _ := createStepAndMocks(t)
	lines := defaultStreamLines()
	lines[0] = `{"event": "start"}`
	streamPath := writeStreamFile(t, lines)

	config := Config{EventStreamPath: streamPath, ReportPath: "report.xml"}

	// When
	result, err := step.Run(config)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 2, result.Report.Tests)
}

func Test_GivenStreamWithoutRunSummary_WhenRuns_ThenDerivesStats(t *testing.T) {
	// Given
	step, _ := createStepAndMocks(t)
	lines := defaultStreamLines()
	streamPath := writeStreamFile(t, lines[:len(lines)-1])

	config := Config{EventStreamPath: streamPath, ReportPath: "report.xml"}

	// When
	result, err := step.Run(config)

	// Then
	require.NoError(t, err)
	assert.True(t, result.TestsFailed)
	assert.Equal(t, 2, result.Report.Tests)
	assert.Equal(t, 1, result.Report.Failures)
}

func Test_GivenStep_WhenExportsTestResult_ThenSetsCorrectly(t *testing.T) {
	tests := []struct {
		name       string
		testFailed bool
	}{
		{
			name:       "Exports success status",
			testFailed: false,
		},
		{
			name:       "Exports failure status",
			testFailed: true,
		},
	}

	for _, test := range tests {
		t.Log(test.name)

		runExportTest(t, test.testFailed)
	}
}

func runExportTest(t *testing.T, testFailed bool) {
	// Given
	step, mocks := createStepAndMocks(t)
	result := defaultResult()
	result.TestsFailed = testFailed

	mocks.outputExporter.On("ExportTestRunResult", testFailed)
	mocks.outputExporter.On("WriteReport", result.ReportPathTemplate, result.Report).Return("/bitrise/deploy/report.xml", nil)
	mocks.outputExporter.On("ExportReport", "/bitrise/deploy/report.xml", result.Report.TestsuitesTitle)

	// When
	err := step.Export(result)

	// Then
	assert.NoError(t, err)

	mocks.outputExporter.AssertCalled(t, "ExportTestRunResult", testFailed)
}

func Test_GivenEchoReportEnabled_WhenExport_ThenEchoesReport(t *testing.T) {
	// Given
	step, mocks := createStepAndMocks(t)
	result := defaultResult()
	result.EchoReport = true

	mocks.outputExporter.On("ExportTestRunResult", mock.Anything)
	mocks.outputExporter.On("WriteReport", mock.Anything, mock.Anything).Return("report.xml", nil)
	mocks.outputExporter.On("ExportReport", mock.Anything, mock.Anything)
	mocks.outputExporter.On("EchoReport", result.Report)

	// When
	err := step.Export(result)

	// Then
	assert.NoError(t, err)

	mocks.outputExporter.AssertCalled(t, "EchoReport", result.Report)
}

func Test_GivenReportWriteFails_WhenExport_ThenFails(t *testing.T) {
	// Given
	step, mocks := createStepAndMocks(t)
	result := defaultResult()

	mocks.outputExporter.On("ExportTestRunResult", mock.Anything)
	mocks.outputExporter.On("WriteReport", mock.Anything, mock.Anything).Return("", errors.New("disk full"))

	// When
	err := step.Export(result)

	// Then
	require.Error(t, err)
}

// Helpers

func defaultEnvValues() map[string]string {
	return map[string]string{
		"event_stream_path":         "./events.jsonl",
		"report_path":               "reports/junit.xml",
		"testsuites_title":          "",
		"root_suite_title":          "",
		"suite_title_separator":     "",
		"use_full_suite_title":      "no",
		"switch_classname_and_name": "no",
		"include_pending":           "no",
		"include_console_outputs":   "no",
		"include_attachments":       "no",
		"suppress_error_diff":       "no",
		"file_path_transforms":      "",
		"work_dir":                  "/workspace/app",
		"console_reporter":          "",
		"console_reporter_options":  "",
		"echo_report":               "no",
		"options_path":              "",
		"verbose":                   "no",
	}
}

func defaultStreamLines() []string {
	return []string{
		`{"event": "start", "protocol": "1.2.0"}`,
		`{"event": "suite", "suite": {"id": "s0", "title": "", "root": true, "tests": 0, "suites": 0}}`,
		`{"event": "suite", "suite": {"id": "s1", "title": "Auth", "parent": "s0", "tests": 2, "suites": 0, "file": "/workspace/app/auth.test.js"}}`,
		`{"event": "pass", "test": {"title": "logs in", "suite": "s1", "duration": 101}}`,
		`{"event": "fail", "test": {"title": "rejects bad passwords", "suite": "s1", "duration": 2002}, "error": {"message": "boom", "name": "Error", "stack": "Error: boom\n    at auth.test.js:42"}}`,
		`{"event": "suite end", "suite": {"id": "s1"}}`,
		`{"event": "suite end", "suite": {"id": "s0"}}`,
		`{"event": "end", "stats": {"duration": 2103, "tests": 2, "failures": 1, "pending": 0}}`,
	}
}

func defaultResult() Result {
	return Result{
		Report: reporter.Report{
			XML:             `<testsuites name="Test Suites"></testsuites>`,
			TestsuitesTitle: "Test Suites",
			RootSuiteTitle:  "Root Suite",
			Tests:           3,
			Failures:        1,
		},
		ReportPathTemplate: "reports/[testsuitesTitle].xml",
	}
}

func writeStreamFile(t *testing.T, lines []string) string {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	err := fileutil.NewFileManager().Write(path, strings.Join(lines, "\n")+"\n", 0600)
	require.NoError(t, err)
	return path
}

func createConfigParser(t *testing.T, envValues map[string]string) (JUnitReportConfigParser, configParserMocks) {
	envRepository := mocks.NewRepository(t)

	if envValues != nil {
		call := envRepository.On("Get", mock.Anything)
		call.RunFn = func(arguments mock.Arguments) {
			key := arguments[0].(string)
			value := envValues[key]
			call.ReturnArguments = mock.Arguments{value}
		}
	}

	logger := log.NewLogger()
	inputParser := stepconf.NewInputParser(envRepository)
	pathModifier := mocks.NewPathModifier(t)
	pathChecker := mocks.NewPathChecker(t)
	fileManager := fileutil.NewFileManager()
	reporters := consolereporter.NewDefaultRegistry()

	configParser := NewJUnitReportConfigParser(inputParser, logger, pathModifier, pathChecker, fileManager, reporters)
	mocks := configParserMocks{
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
	}

	return configParser, mocks
}

func createStepAndMocks(t *testing.T) (JUnitReportGenerator, stepMocks) {
	logger := log.NewLogger()
	fileManager := fileutil.NewFileManager()
	decoder := runner.NewStreamDecoder(logger)
	protocolValidator := protocol.NewValidator()
	reporters := consolereporter.NewDefaultRegistry()
	clock := reporter.NewClock()
	outputExporter := mocks.NewExporter(t)

	step := NewJUnitReportGenerator(logger, fileManager, decoder, protocolValidator, reporters, clock, outputExporter)
	mocks := stepMocks{
		outputExporter: outputExporter,
	}

	return step, mocks
}
