package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ProjectConfigName is looked up in the working directory when no explicit
// config file is given.
const ProjectConfigName = "crossproj.toml"

// Load decodes the TOML config file into cfg, overwriting only the keys the
// file sets. An explicit path must exist; without one, ./crossproj.toml and
// then ~/.config/crossproj/config.toml are tried and a missing file is not
// an error. It returns the resolved path and whether a file was read.
func Load(path string, cfg *Config) (string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return resolved, false, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		return "", false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return "", false, fmt.Errorf("parse config %s: %s", resolved, strict.String())
		}
		return "", false, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.ConfigFile = resolved
	return resolved, true, nil
}

// DefaultConfigPath returns ~/.config/crossproj/config.toml.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/crossproj/config.toml")
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file not found: %s", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path is a directory: %s", expanded)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(ProjectConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		// No home directory: behave as if no user config exists.
		return "", false, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// expandPath resolves a leading ~ and returns an absolute, cleaned path.
func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
