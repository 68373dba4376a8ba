package output

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/bitrise-steplib/steps-junit-report/reporter"
)

const placeholderFallback = "unknown"

// resolveReportPath fills the report path template's placeholders from the
// finished report.
func resolveReportPath(pathTemplate string, report reporter.Report) string {
	path := pathTemplate
	if strings.Contains(path, "[hash]") {
		sum := md5.Sum([]byte(report.XML))
		path = strings.ReplaceAll(path, "[hash]", hex.EncodeToString(sum[:]))
	}
	path = strings.ReplaceAll(path, "[testsuitesTitle]", sanitizePathToken(report.TestsuitesTitle))
	path = strings.ReplaceAll(path, "[rootSuiteTitle]", sanitizePathToken(report.RootSuiteTitle))
	path = strings.ReplaceAll(path, "[suiteFilename]", suiteFilenameToken(report.FirstSuiteFile))
	path = strings.ReplaceAll(path, "[suiteName]", sanitizePathToken(report.SecondSuiteName))
	return path
}

// suiteFilenameToken is the first suite's file name, without directories and
// the final extension.
func suiteFilenameToken(file string) string {
	if file == "" {
		return placeholderFallback
	}
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sanitizePathToken keeps a resolved name usable as a single path segment.
func sanitizePathToken(name string) string {
	if name == "" {
		return placeholderFallback
	}
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, ":", "-")
	return name
}
