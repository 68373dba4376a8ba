package testaddon

import "path/filepath"

// Exporter places a finished report where the Bitrise test addon picks it up.
type Exporter interface {
	CopyAndSaveMetadata(info AddonCopy) error
}

type exporter struct {
	testAddon TestAddon
}

// NewExporter ...
func NewExporter(addon TestAddon) Exporter {
	return &exporter{
		testAddon: addon,
	}
}

// AddonCopy ...
type AddonCopy struct {
	SourceReportPath      string
	TargetAddonPath       string
	TargetAddonBundleName string
}

func (e exporter) CopyAndSaveMetadata(info AddonCopy) error {
	bundleName := e.testAddon.ReplaceUnsupportedFilenameCharacters(info.TargetAddonBundleName)
	addonPerStepOutputDir := filepath.Join(info.TargetAddonPath, bundleName)

	if err := e.testAddon.CopyReport(info.SourceReportPath, addonPerStepOutputDir); err != nil {
		return err
	}
	if err := e.testAddon.SaveBundleMetadata(addonPerStepOutputDir, bundleName); err != nil {
		return err
	}
	return nil
}
