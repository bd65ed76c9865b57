package utils

import (
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// GetAbsStorePath resolves the store path. An empty path means the default
// location under the user's config directory.
func GetAbsStorePath(storePath, driver string) (string, error) {
	if storePath == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		name := "pses.sqlite"
		if driver == "badger" {
			name = "pses.badger"
		}
		return filepath.Join(home, ".config", "pses", name), nil
	}
	return filepath.Abs(storePath)
}
