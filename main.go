package main

import (
	"os"

	"github.com/bitrise-io/go-steputils/v2/export"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-junit-report/consolereporter"
	"github.com/bitrise-steplib/steps-junit-report/fileremover"
	"github.com/bitrise-steplib/steps-junit-report/output"
	"github.com/bitrise-steplib/steps-junit-report/protocol"
	"github.com/bitrise-steplib/steps-junit-report/reporter"
	"github.com/bitrise-steplib/steps-junit-report/runner"
	"github.com/bitrise-steplib/steps-junit-report/step"
	"github.com/bitrise-steplib/steps-junit-report/testaddon"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()

	configParser := createConfigParser(logger)
	config, err := configParser.ProcessConfig()
	if err != nil {
		logger.Errorf("Process config: %s", err)
		return 1
	}

	generator := createReportGenerator(logger)
	result, err := generator.Run(config)
	if err != nil {
		logger.Errorf("Run: %s", err)
		return 1
	}

	if err := generator.Export(result); err != nil {
		logger.Errorf("Export outputs: %s", err)
		return 1
	}

	return 0
}

func createConfigParser(logger log.Logger) step.JUnitReportConfigParser {
	envRepository := env.NewRepository()
	inputParser := stepconf.NewInputParser(envRepository)
	pathModifier := pathutil.NewPathModifier()
	pathChecker := pathutil.NewPathChecker()
	fileManager := fileutil.NewFileManager()
	reporters := consolereporter.NewDefaultRegistry()

	return step.NewJUnitReportConfigParser(inputParser, logger, pathModifier, pathChecker, fileManager, reporters)
}

func createReportGenerator(logger log.Logger) step.JUnitReportGenerator {
	envRepository := env.NewRepository()
	fileManager := fileutil.NewFileManager()
	decoder := runner.NewStreamDecoder(logger)
	protocolValidator := protocol.NewValidator()
	reporters := consolereporter.NewDefaultRegistry()
	clock := reporter.NewClock()

	commandFactory := command.NewFactory(envRepository)
	outputExporter := output.NewExporter(
		envRepository,
		logger,
		fileManager,
		fileremover.NewFileRemover(),
		export.NewExporter(commandFactory),
		testaddon.NewExporter(testaddon.NewTestAddon(fileManager, logger)),
	)

	return step.NewJUnitReportGenerator(logger, fileManager, decoder, protocolValidator, reporters, clock, outputExporter)
}
