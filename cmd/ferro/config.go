package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/npillmayer/schuko/tracing"
)

// Config is the CLI configuration, optionally read from a ferro.toml
// file. Command-line flags override file values.
type Config struct {
	Tables string `toml:"tables"` // path of the parser table artifact
	Trace  string `toml:"trace"`  // trace level: Debug, Info or Error
}

const defaultConfigFile = "ferro.toml"
const defaultTablesFile = "ferro.tables"

// loadConfig reads the configuration file. Without an explicit --config
// flag, a ferro.toml in the working directory is picked up when present;
// a missing default file is not an error.
func loadConfig(path string) Config {
	cfg := Config{Tables: defaultTablesFile, Trace: "Error"}
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !os.IsNotExist(err) {
			tracer().Errorf("cannot read configuration %s: %v", path, err)
		}
		return cfg
	}
	tracer().Infof("configuration loaded from %s", path)
	return cfg
}

// applyTraceLevel sets the trace level for all ferro tracing keys.
func applyTraceLevel(level string) {
	tl := traceLevel(level)
	for _, key := range []string{
		"ferro.cli", "ferro.lexer", "ferro.lr", "ferro.syntax",
		"ferro.parser", "ferro.sema", "ferro.ir",
	} {
		tracing.Select(key).SetTraceLevel(tl)
	}
}

func traceLevel(level string) tracing.TraceLevel {
	switch level {
	case "Debug":
		return tracing.LevelDebug
	case "Info":
		return tracing.LevelInfo
	default:
		return tracing.LevelError
	}
}
