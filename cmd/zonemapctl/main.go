// Command zonemapctl resolves place names from the command line and drives
// gazetteer imports through Temporal.
package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/samirrijal/zonemap/internal/pkg/config"
	"github.com/samirrijal/zonemap/internal/pkg/logging"
)

type globalOptions struct {
	LogLevel  string `long:"log-level"  env:"ZONEMAP_LOG_LEVEL"  description:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat string `long:"log-format" env:"ZONEMAP_LOG_FORMAT" description:"Log format (json, text)" default:"text"`
}

var global globalOptions

func main() {
	parser := flags.NewParser(&global, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		logging.Setup(global.LogLevel, global.LogFormat)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	mustAdd(parser, "resolve", "Resolve a place name", "Resolve free text against the configured gazetteer and print the target as JSON.", &resolveCommand{})
	mustAdd(parser, "import", "Start a gazetteer import", "Start the gazetteer import workflow for a YAML document.", &importCommand{})
	mustAdd(parser, "worker", "Run the import worker", "Run the Temporal worker that executes gazetteer imports.", &workerCommand{})
	mustAdd(parser, "versions", "List gazetteer versions", "List the gazetteer versions stored in PostgreSQL.", &versionsCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func mustAdd(p *flags.Parser, name, short, long string, data any) {
	if _, err := p.AddCommand(name, short, long, data); err != nil {
		panic(err)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load("zonemapctl")
}
