package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/jpalmerr/matchwatch"
)

// MessageNotFound is recorded when the configuration file does not exist.
const MessageNotFound = "Config file not found. Please update tracker_config.json."

// LoadCredential reads the access token from the configuration file at path.
//
// It never fails: on any problem it records exactly one diagnostic on sink
// and returns the Absent token, which makes every tick report
// "Error fetching data." without network I/O. The file is read once and
// not retried. sink may be nil.
func LoadCredential(path string, sink matchwatch.DiagnosticsSink) matchwatch.AccessToken {
	record := func(msg string) {
		if sink != nil {
			sink.Record(msg)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			record(MessageNotFound)
		} else {
			record("Config error: " + err.Error())
		}
		return matchwatch.AccessToken{}
	}

	cfg, err := decode(data, FormatFor(path))
	if err != nil {
		record("Config error: " + err.Error())
		return matchwatch.AccessToken{}
	}

	tok, err := cfg.Credential()
	if err != nil {
		record("Config error: " + err.Error())
		return matchwatch.AccessToken{}
	}
	return tok
}
