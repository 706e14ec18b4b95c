package shared

import "os"

const (
	OwnerReadWriteExec = 0o700
	OwnerReadWrite     = 0o600
)

// GetFiles returns the entries of dir that satisfy predicate.
// A missing dir yields no files and no error.
func GetFiles(dir string, predicate func(os.FileInfo) bool) ([]os.FileInfo, error) {
	allFiles, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	includedFiles := make([]os.FileInfo, 0)
	for _, file := range allFiles {
		info, err := file.Info()
		if err != nil {
			continue
		}

		if predicate(info) {
			includedFiles = append(includedFiles, info)
		}
	}

	return includedFiles, nil
}
