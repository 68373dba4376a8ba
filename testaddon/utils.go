package testaddon

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

// TestAddon ...
type TestAddon interface {
	ReplaceUnsupportedFilenameCharacters(s string) string
	CopyReport(sourceReportPath string, targetDir string) error
	SaveBundleMetadata(outputDir string, bundleName string) error
}

type testAddon struct {
	fileManager fileutil.FileManager
	logger      log.Logger
}

// NewTestAddon ...
func NewTestAddon(fileManager fileutil.FileManager, logger log.Logger) TestAddon {
	return &testAddon{
		fileManager: fileManager,
		logger:      logger,
	}
}

// ReplaceUnsupportedFilenameCharacters Replaces characters '/' and ':', which are unsupported in filenames on macOS
func (t testAddon) ReplaceUnsupportedFilenameCharacters(s string) string {
	s = strings.Replace(s, "/", "-", -1)
	s = strings.Replace(s, ":", "-", -1)
	return s
}

func (t testAddon) CopyReport(sourceReportPath string, targetDir string) error {
	source, err := t.fileManager.Open(sourceReportPath)
	if err != nil {
		return fmt.Errorf("failed to open report (%s): %w", sourceReportPath, err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			t.logger.Warnf("Failed to close %s: %s", sourceReportPath, err)
		}
	}()

	content, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("failed to read report (%s): %w", sourceReportPath, err)
	}

	target := filepath.Join(targetDir, filepath.Base(sourceReportPath))
	if err := t.fileManager.Write(target, string(content), 0644); err != nil {
		return fmt.Errorf("failed to copy report to %s: %w", target, err)
	}
	return nil
}

func (t testAddon) SaveBundleMetadata(outputDir string, bundleName string) error {
	// Save test bundle metadata
	type testBundle struct {
		BundleName string `json:"test-name"`
	}
	bytes, err := json.Marshal(testBundle{
		BundleName: bundleName,
	})
	if err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}
	if err := t.fileManager.Write(filepath.Join(outputDir, "test-info.json"), string(bytes), 0600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}
