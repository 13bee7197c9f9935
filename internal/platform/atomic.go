package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Permission constants for emitted files and directories.
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// tmpSuffix is appended to the target path while new contents are staged.
const tmpSuffix = ".tmp"

// WriteFileAtomic replaces path with data, creating parent directories as
// needed. The bytes are staged in a sibling temp file and renamed into
// place, so a reader never observes a half-written file. On failure the
// temp file is removed and the original file is untouched.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, FilePerm); err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	// os.WriteFile applies the umask; force the exact mode.
	if err := chmod(tmp, FilePerm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// chmod sets file permissions, skipping Windows where Unix permission bits
// do not apply.
func chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
