// Command gridcheck validates board configuration JSON files. It checks:
//   - JSON structure and required fields
//   - Grid and cell size bounds
//   - Start position inside the grid
//   - Start facing is a known orientation
//   - Timing values (tick interval, repeat delay) are not negative
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maca/robotgrid/robot/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File  string
	Valid bool
	Notes []string
}

// validateFile loads and validates a single board configuration file.
func validateFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	config, err := engine.LoadGridConfig(filePath)
	if err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, err.Error())
		return result
	}

	result.Notes = append(result.Notes, fmt.Sprintf("✓ Name: %s", config.Name))
	result.Notes = append(result.Notes, fmt.Sprintf("✓ Grid: %dx%d (cell %dpx)", config.GridSize, config.GridSize, config.CellSize))
	result.Notes = append(result.Notes, fmt.Sprintf("✓ Start: (%d,%d) facing %s", config.Start.X, config.Start.Y, config.StartFacing))
	result.Notes = append(result.Notes, fmt.Sprintf("✓ Timing: tick %dms, repeat delay %dms", config.TickIntervalMs, config.RepeatDelayMs))

	return result
}

// main scans the config directory for *.json files and validates each one,
// printing a concise report and exiting non-zero if any are invalid.
func main() {
	configDir := flag.String("config-dir", "configs", "Directory containing board configuration files")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No config files found in %s\n", *configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, note := range result.Notes {
				fmt.Println("  " + note)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, note := range result.Notes {
				fmt.Println("  ❌ " + note)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
