// utils.go: utility functions for the configuration package.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	osLinux   = "linux"
	osWindows = "windows"
)

// GetDefaultConfigPaths returns a list of default configuration paths for the
// current operating system. If a config.yaml file is found in any of the
// paths, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("error fetching executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "mallwatch"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "mallwatch"),
			"/etc/mallwatch",
		}
	}

	for _, path := range configPaths {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the active config.yaml file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return configFile, nil
		}
	}

	return "", fmt.Errorf("config.yaml not found in any of the default paths")
}

// GetBasePath resolves a possibly relative directory against the working
// directory and ensures it exists.
func GetBasePath(path string) string {
	if !filepath.IsAbs(path) {
		if workDir, err := os.Getwd(); err == nil {
			path = filepath.Join(workDir, path)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		// fall back to the path as-is, callers will surface open errors
		return path
	}
	return path
}
