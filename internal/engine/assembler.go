package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

// WriteFile writes chunk data in plan order to a temp file next to
// outputPath and renames it into place, replacing any existing file. On error
// the temp file is removed and outputPath is left as it was.
func WriteFile(outputPath string, plan *utils.DownloadPlan) error {
	tempDir := utils.TempDir(outputPath)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return &utils.AssemblyError{Path: outputPath, Err: fmt.Errorf("error creating temp directory: %w", err)}
	}
	defer utils.CleanEmptyTempDir(outputPath)

	tempFile, err := os.CreateTemp(tempDir, filepath.Base(outputPath)+".part*")
	if err != nil {
		return &utils.AssemblyError{Path: outputPath, Err: fmt.Errorf("error creating temp file: %w", err)}
	}
	tempPath := tempFile.Name()
	fail := func(err error) error {
		tempFile.Close()
		os.Remove(tempPath)
		return &utils.AssemblyError{Path: outputPath, Err: err}
	}
	// CreateTemp uses 0600
	if err := tempFile.Chmod(0644); err != nil {
		return fail(fmt.Errorf("error setting file mode: %w", err))
	}

	var totalWritten int64
	for i := range plan.Chunks {
		chunk := &plan.Chunks[i]
		written, err := tempFile.Write(chunk.Data)
		totalWritten += int64(written)
		if err != nil {
			return fail(fmt.Errorf("error writing chunk %d: %w", chunk.ID, err))
		}
	}
	if totalWritten != plan.FileSize {
		return fail(fmt.Errorf("size mismatch: expected %d, got %d", plan.FileSize, totalWritten))
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return &utils.AssemblyError{Path: outputPath, Err: err}
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		os.Remove(tempPath)
		return &utils.AssemblyError{Path: outputPath, Err: fmt.Errorf("error renaming (finalizing) output file: %w", err)}
	}
	log.Debug().Str("op", "engine/assembler").Int64("bytes", totalWritten).Msgf("Assembled %s", outputPath)
	return nil
}
