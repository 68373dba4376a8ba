package output

import (
	"fmt"

	"github.com/bitrise-io/bitrise/configs"
	"github.com/bitrise-io/go-steputils/v2/export"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-junit-report/fileremover"
	"github.com/bitrise-steplib/steps-junit-report/reporter"
	"github.com/bitrise-steplib/steps-junit-report/testaddon"
)

const (
	// ReportPathExportKey is the output variable holding the written report's path.
	ReportPathExportKey    = "BITRISE_JUNIT_REPORT_PATH"
	testRunResultExportKey = "BITRISE_JUNIT_TEST_RESULT"
)

// Exporter ...
type Exporter interface {
	WriteReport(pathTemplate string, report reporter.Report) (string, error)
	ExportTestRunResult(failed bool)
	ExportReport(reportPath string, bundleName string)
	EchoReport(report reporter.Report)
}

type exporter struct {
	envRepository     env.Repository
	logger            log.Logger
	fileManager       fileutil.FileManager
	fileRemover       fileremover.FileRemover
	outputExporter    export.Exporter
	testAddonExporter testaddon.Exporter
}

// NewExporter ...
func NewExporter(envRepository env.Repository, logger log.Logger, fileManager fileutil.FileManager, fileRemover fileremover.FileRemover, outputExporter export.Exporter, testAddonExporter testaddon.Exporter) Exporter {
	return &exporter{
		envRepository:     envRepository,
		logger:            logger,
		fileManager:       fileManager,
		fileRemover:       fileRemover,
		outputExporter:    outputExporter,
		testAddonExporter: testAddonExporter,
	}
}

// WriteReport resolves the report path template and writes the serialized
// document there, replacing a stale report from an earlier run.
func (e exporter) WriteReport(pathTemplate string, report reporter.Report) (string, error) {
	reportPath := resolveReportPath(pathTemplate, report)

	if err := e.fileRemover.RemoveIfExists(reportPath); err != nil {
		e.logger.Warnf("Failed to remove stale report (%s): %s", reportPath, err)
	}

	if err := e.fileManager.Write(reportPath, report.XML, 0644); err != nil {
		return "", fmt.Errorf("failed to write report to %s: %w", reportPath, err)
	}

	return reportPath, nil
}

func (e exporter) ExportTestRunResult(failed bool) {
	status := "succeeded"
	if failed {
		status = "failed"
	}
	if err := e.envRepository.Set(testRunResultExportKey, status); err != nil {
		e.logger.Warnf("Failed to export: %s: %s", testRunResultExportKey, err)
	}
}

func (e exporter) ExportReport(reportPath string, bundleName string) {
	if err := e.outputExporter.ExportOutput(ReportPathExportKey, reportPath); err != nil {
		e.logger.Warnf("Failed to export: %s: %s", ReportPathExportKey, err)
	}

	// export the report for the testing addon
	if addonResultPath := e.envRepository.Get(configs.BitrisePerStepTestResultDirEnvKey); len(addonResultPath) > 0 {
		e.logger.Println()
		e.logger.Infof("Exporting test results")

		if err := e.testAddonExporter.CopyAndSaveMetadata(testaddon.AddonCopy{
			SourceReportPath:      reportPath,
			TargetAddonPath:       addonResultPath,
			TargetAddonBundleName: bundleName,
		}); err != nil {
			e.logger.Warnf("Failed to export test results: %s", err)
		}
	}
}

func (e exporter) EchoReport(report reporter.Report) {
	e.logger.Printf("%s", report.XML)
}
