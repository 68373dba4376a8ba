package step

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// fileOptions are report options loaded from the options_path YAML file.
// Every field is a pointer so absent keys keep the step input values.
type fileOptions struct {
	ReportPath             *string `yaml:"report_path"`
	TestsuitesTitle        *string `yaml:"testsuites_title"`
	RootSuiteTitle         *string `yaml:"root_suite_title"`
	SuiteTitleSeparator    *string `yaml:"suite_title_separator"`
	UseFullSuiteTitle      *bool   `yaml:"use_full_suite_title"`
	SwitchClassnameAndName *bool   `yaml:"switch_classname_and_name"`
	IncludePending         *bool   `yaml:"include_pending"`
	IncludeConsoleOutputs  *bool   `yaml:"include_console_outputs"`
	IncludeAttachments     *bool   `yaml:"include_attachments"`
	SuppressErrorDiff      *bool   `yaml:"suppress_error_diff"`
	FilePathTransforms     *string `yaml:"file_path_transforms"`
	WorkDir                *string `yaml:"work_dir"`
}

func (p JUnitReportConfigParser) loadOptionsFile(path string) (fileOptions, error) {
	file, err := p.fileManager.Open(path)
	if err != nil {
		return fileOptions{}, fmt.Errorf("failed to open report options file %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			p.logger.Warnf("Failed to close %s: %s", path, err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return fileOptions{}, fmt.Errorf("failed to read report options file %s: %w", path, err)
	}

	var options fileOptions
	if err := yaml.Unmarshal(content, &options); err != nil {
		return fileOptions{}, fmt.Errorf("failed to parse report options file %s: %w", path, err)
	}
	return options, nil
}

func applyOptionsFile(input *Input, options fileOptions) {
	if options.ReportPath != nil {
		input.ReportPath = *options.ReportPath
	}
	if options.TestsuitesTitle != nil {
		input.TestsuitesTitle = *options.TestsuitesTitle
	}
	if options.RootSuiteTitle != nil {
		input.RootSuiteTitle = *options.RootSuiteTitle
	}
	if options.SuiteTitleSeparator != nil {
		input.SuiteTitleSeparator = *options.SuiteTitleSeparator
	}
	if options.UseFullSuiteTitle != nil {
		input.UseFullSuiteTitle = *options.UseFullSuiteTitle
	}
	if options.SwitchClassnameAndName != nil {
		input.SwitchClassnameAndName = *options.SwitchClassnameAndName
	}
	if options.IncludePending != nil {
		input.IncludePending = *options.IncludePending
	}
	if options.IncludeConsoleOutputs != nil {
		input.IncludeConsoleOutputs = *options.IncludeConsoleOutputs
	}
	if options.IncludeAttachments != nil {
		input.IncludeAttachments = *options.IncludeAttachments
	}
	if options.SuppressErrorDiff != nil {
		input.SuppressErrorDiff = *options.SuppressErrorDiff
	}
	if options.FilePathTransforms != nil {
		input.FilePathTransforms = *options.FilePathTransforms
	}
	if options.WorkDir != nil {
		input.WorkDir = *options.WorkDir
	}
}
