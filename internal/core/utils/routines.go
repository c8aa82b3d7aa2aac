package utils

import (
	"io/fs"
	"os"
	"path/filepath"
)

func CleanTempRuntimes(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			os.RemoveAll(path)
		}
	}
	return nil
}

func ExistsMatchingDirs(pattern, exclude string) (bool, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return false, err
	}

	for _, path := range matches {
		if filepath.Clean(path) == filepath.Clean(exclude) {
			continue
		}
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// IndexPaths maps every regular file under root, by slash-separated path
// relative to root, to its full path.
func IndexPaths(root string) (map[string]string, error) {
	indexed := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		indexed[filepath.ToSlash(rel)] = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return indexed, nil
}
