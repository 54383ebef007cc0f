package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// NumberedPath turns dir/name.ext into dir/name-(index).ext.
func NumberedPath(outputPath string, index int) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
}

func RenewOutputPath(outputPath string) string {
	for index := 1; ; index++ {
		candidate := NumberedPath(outputPath, index)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func TempDir(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), TempDirName)
}

// Clean removes the temp directory inside dir. A missing directory is not an
// error.
func Clean(dir string) error {
	tempDir := filepath.Join(dir, TempDirName)
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	return os.RemoveAll(tempDir)
}

// CleanEmptyTempDir removes the temp directory only when nothing is left in it,
// so concurrent jobs writing to the same directory are not disturbed.
func CleanEmptyTempDir(outputPath string) {
	tempDir := TempDir(outputPath)
	entries, err := os.ReadDir(tempDir)
	if err == nil && len(entries) == 0 {
		os.Remove(tempDir)
	}
}
