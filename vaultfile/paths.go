package vaultfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// FileName is the envelope file name inside the config directory.
const FileName = "vault.enc"

// DefaultPath resolves the OS-conventional vault location:
// %APPDATA%\Latch\vault.enc on Windows,
// ~/Library/Application Support/Latch/vault.enc on macOS,
// ~/.config/latch/vault.enc elsewhere (honoring XDG_CONFIG_HOME).
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func configDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, "Latch"), nil
		}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Latch"), nil
		}
		return "", fmt.Errorf("neither APPDATA nor LOCALAPPDATA is set")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Latch"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "latch"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "latch"), nil
	}
}
