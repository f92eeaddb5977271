package dataset

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractCSV extracts the named CSV from the zip archive into destDir and
// returns its path. An already-extracted file is reused.
func ExtractCSV(archivePath, csvName, destDir string) (string, error) {
	dest := filepath.Join(destDir, csvName)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %v", err)
	}
	defer r.Close()

	for _, file := range r.File {
		// Archive entries are attacker-controlled paths; only the base
		// name is compared and the output path is fixed.
		if filepath.Base(file.Name) != csvName || strings.HasSuffix(file.Name, "/") {
			continue
		}

		in, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open archive entry: %v", err)
		}
		defer in.Close()

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return "", err
		}

		out, err := os.Create(dest)
		if err != nil {
			return "", err
		}

		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dest)
			return "", fmt.Errorf("failed to extract %s: %v", csvName, err)
		}
		if err := out.Close(); err != nil {
			return "", err
		}

		return dest, nil
	}

	return "", fmt.Errorf("%s not found in archive %s", csvName, archivePath)
}
