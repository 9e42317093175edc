package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/integrii/flaggy"
)

var (
	flagNoColor bool
	flagFile    string

	flagGenLength      = 16
	flagGenNoUpper     bool
	flagGenNoLower     bool
	flagGenNoNumbers   bool
	flagGenNoSymbols   bool
	flagGenNoAmbiguous bool

	argAnalyzePassword string
)

var (
	versionCmd = flaggy.NewSubcommand("version")
	genCmd     = flaggy.NewSubcommand("gen")
	analyzeCmd = flaggy.NewSubcommand("analyze")
)

func parseCli() {
	parser := flaggy.NewParser("latch")
	parser.Description = "local zero-knowledge credential vault"
	parser.Bool(&flagNoColor, "", "no-color", "Turn off color output")
	parser.String(&flagFile, "f", "file", "The vault file to open (can be set by $LATCH_VAULT)")

	versionCmd.Description = "print version and exit"

	genCmd.Description = "generate a password without opening the vault"
	genCmd.Int(&flagGenLength, "l", "length", "Password length (8-128)")
	genCmd.Bool(&flagGenNoUpper, "", "no-upper", "Exclude uppercase letters")
	genCmd.Bool(&flagGenNoLower, "", "no-lower", "Exclude lowercase letters")
	genCmd.Bool(&flagGenNoNumbers, "", "no-numbers", "Exclude digits")
	genCmd.Bool(&flagGenNoSymbols, "", "no-symbols", "Exclude symbols")
	genCmd.Bool(&flagGenNoAmbiguous, "", "no-ambiguous", "Exclude 0O1lI")

	analyzeCmd.Description = "score a password's strength"
	analyzeCmd.AddPositionalValue(&argAnalyzePassword, "password", 1, true, "The password to analyze")

	parser.DisableShowVersionWithVersion()
	parser.AttachSubcommand(versionCmd, 1)
	parser.AttachSubcommand(genCmd, 1)
	parser.AttachSubcommand(analyzeCmd, 1)
	parser.Parse()

	if flagFile == "" {
		flagFile = os.Getenv("LATCH_VAULT")
	}
}

// shortPath shows ~/ for things under the home directory to keep prompts
// small.
func shortPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return "~/" + rel
	}
	return path
}
