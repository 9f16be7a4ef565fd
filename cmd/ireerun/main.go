package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to TOML config file")
		backend     = flag.String("backend", "", "Runtime backend (emulator, native)")
		driver      = flag.String("driver", "", "HAL driver name (local-sync, local-task, ...)")
		modules     = flag.String("module", "", "Bytecode module files (comma-separated)")
		calls       = flag.String("call", "", "Functions to call (module.function, comma-separated)")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		trace       = flag.Bool("trace", false, "Enable VM execution tracing")
		trim        = flag.Bool("trim", false, "Trim the session after all calls")
		schema      = flag.Bool("schema", false, "Print the config JSON schema and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *schema {
		out, err := Schema()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	cfg := DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = LoadConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "driver":
			cfg.Driver = *driver
		case "module":
			cfg.Modules = splitList(*modules)
		case "call":
			cfg.Calls = splitList(*calls)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "trace":
			cfg.Trace = *trace
		case "trim":
			cfg.Trim = *trim
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: ireerun [-config file.toml] [-backend emulator|native] [-driver name] -module a.vmfb[,b.vmfb] [-call module.fn,...]")
		fmt.Fprintln(os.Stderr, "       ireerun -schema")
		fmt.Fprintln(os.Stderr, "       ireerun -module a.vmfb -i  (interactive mode)")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	installLogger(logger)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
