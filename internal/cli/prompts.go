package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"

	"cryptodash/internal/files"
)

const otherPath = "Other path..."

// askDataFile asks the user which table to load. Replaced in tests.
var askDataFile = promptForDataFile

// promptForDataFile offers the data files found nearby and falls back to a
// free-form path.
func promptForDataFile(candidates []files.FileInfo) (string, error) {
	if len(candidates) > 0 {
		options := make([]string, 0, len(candidates)+1)
		for _, c := range candidates {
			options = append(options, c.Path)
		}
		options = append(options, otherPath)

		var choice string
		prompt := &survey.Select{
			Message: "No default price table found. Which file should be loaded?",
			Options: options,
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			return "", err
		}
		if choice != otherPath {
			return choice, nil
		}
	}

	var path string
	prompt := &survey.Input{
		Message: "Path to a crypto price table (CSV or XLSX):",
		Help:    "The table needs the columns coin_id, symbol, timestamp, date, open, high, low, close.",
	}
	err := survey.AskOne(prompt, &path, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return fmt.Errorf("a path is required")
		}
		if !files.IsDataFile(str) {
			return fmt.Errorf("only .csv and .xlsx files are supported")
		}
		if _, err := os.Stat(str); err != nil {
			return fmt.Errorf("cannot read %s", str)
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r interface{}) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
