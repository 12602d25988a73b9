package config

import (
	"os"
	"path/filepath"
)

func IsDebug() bool {
	return os.Getenv("ARCUS_DEBUG") == "1"
}

func GetRuntimePath() string {
	path := os.Getenv("ARCUS_RUNTIME_PATH")
	if path == "" {
		path = ".arcus"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
