package fileremover

import "os"

// FileRemover ...
type FileRemover interface {
	Remove(name string) error
	RemoveAll(path string) error
	// RemoveIfExists deletes the named file, treating a missing file as
	// success. Used to clear stale reports before a new one is written.
	RemoveIfExists(name string) error
}

type fileRemover struct{}

// NewFileRemover ...
func NewFileRemover() FileRemover {
	return fileRemover{}
}

func (r fileRemover) Remove(name string) error {
	return os.Remove(name)
}

func (r fileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (r fileRemover) RemoveIfExists(name string) error {
	err := os.Remove(name)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
