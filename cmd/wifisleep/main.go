package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"wifisleep/internal/agent"
	"wifisleep/internal/config"
	"wifisleep/internal/connection"
	"wifisleep/internal/diag"
	"wifisleep/internal/logging"
	"wifisleep/internal/secrets"
	"wifisleep/internal/suspend"
	"wifisleep/internal/tracing"
	"wifisleep/internal/tui"
	"wifisleep/internal/wol"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) <= 1 {
		runWatch()
		return
	}

	command := strings.ToLower(os.Args[1])
	if handler, ok := commandHandlers()[command]; ok {
		handler()
		return
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
	printUsage()
	os.Exit(1)
}

func commandHandlers() map[string]func() {
	return map[string]func(){
		"run":     runAgent,
		"status":  runStatus,
		"watch":   runWatch,
		"config":  runConfig,
		"secret":  runSecret,
		"diag":    runDiag,
		"wake":    runWake,
		"version": runVersion,
		"help":    printUsage,
		"--help":  printUsage,
		"-h":      printUsage,
	}
}

func runVersion() {
	fmt.Printf("wifisleep version %s\n", version)
}

// parseConfigFlag extracts --config <path> (or --config=<path>) from args
func parseConfigFlag(args []string) (string, []string, error) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s requires a path", arg)
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		default:
			rest = append(rest, arg)
		}
	}
	return path, rest, nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// newLogger builds the process logger from a validated config
func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var logger *logging.Logger
	if cfg.File != "" {
		logger, err = logging.NewFileLogger(level, cfg.File)
		if err != nil {
			return nil, err
		}
	} else {
		logger = logging.NewLogger(level)
	}
	logger.SetFormat(logging.Format(cfg.Format))
	return logger, nil
}

func runAgent() {
	path, _, err := parseConfigFlag(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	var source agent.PasswordSource
	if cfg.WiFi.PasswordSecret != "" {
		store, err := secrets.NewStore(secrets.DefaultStoreConfig(), logger)
		if err != nil {
			logger.Error("agent.secrets.open_failed", "Failed to open secret store", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		source = store
	}

	password, err := agent.ResolvePassword(cfg.WiFi, source)
	if err != nil {
		logger.Error("agent.password.failed", "Failed to resolve Wi-Fi password", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.TracingSetting(), logger)
	if err != nil {
		logger.Error("agent.tracing.failed", "Failed to initialize tracing", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	a, err := agent.NewAgent(cfg, password, logger)
	if err != nil {
		logger.Error("agent.init_failed", "Failed to initialize agent", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	err = a.Run(ctx)
	tracing.ShutdownWithTimeout(ctx, shutdownTracing, logger)
	if err != nil {
		code := 1
		if errors.Is(err, connection.ErrFatal) {
			code = 3
		}
		logger.Error("agent.exit", "Agent stopped with error", map[string]interface{}{
			"error":     err.Error(),
			"exit_code": code,
		})
		logger.Close()
		os.Exit(code)
	}
}

// statusStore resolves the status file from config, falling back to the
// default location when the config cannot be loaded
func statusStore(logger *logging.Logger) *suspend.StatusStore {
	stateFile := ""
	if cfg, err := config.Load(); err == nil {
		stateFile = cfg.Suspend.StateFile
	} else {
		fmt.Fprintf(os.Stderr, "Warning: Could not load configuration: %v\n", err)
	}
	return suspend.NewStatusStore(stateFile, logger)
}

func runStatus() {
	logger := logging.NewLogger(logging.LevelError)
	store := statusStore(logger)

	snap, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading status: %v\n", err)
		fmt.Fprintf(os.Stderr, "Is the agent running? (wifisleep run)\n")
		os.Exit(1)
	}

	if len(os.Args) > 2 && os.Args[2] == "--json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding status: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printSnapshot(os.Stdout, snap)
}

func printSnapshot(w io.Writer, snap suspend.Snapshot) {
	fmt.Fprintln(w, "Network Suspend Status:")
	fmt.Fprintln(w, "-----------------------")
	fmt.Fprintf(w, "  State:            %s\n", snap.State)
	fmt.Fprintf(w, "  Power save:       %s\n", snap.PowerSave)
	fmt.Fprintf(w, "  Passes:           %d (timed out %d, aborted %d)\n", snap.Passes, snap.TimedOut, snap.Aborted)
	fmt.Fprintf(w, "  Suspends:         %d\n", snap.Suspends)
	fmt.Fprintf(w, "  Resumes:          %d\n", snap.Resumes)
	fmt.Fprintf(w, "  Suspend failures: %d\n", snap.SuspendFailures)
	fmt.Fprintf(w, "  Wake locks:       %d\n", snap.WakeLocks)
	if snap.LastDecision != "" {
		fmt.Fprintf(w, "  Last pass:        %s (longest idle %dms)\n", snap.LastDecision, snap.LastIdleMs)
	}
	fmt.Fprintf(w, "  Updated:          %s\n", snap.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}

func runWatch() {
	logger := logging.NewLogger(logging.LevelError)
	if err := tui.Run(statusStore(logger), tui.DefaultRefresh); err != nil {
		fmt.Fprintf(os.Stderr, "Error running watch view: %v\n", err)
		os.Exit(1)
	}
}

func runConfig() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: wifisleep config <show|validate> [path]\n")
		os.Exit(1)
	}

	path := ""
	if len(os.Args) > 3 {
		path = os.Args[3]
	}

	switch strings.ToLower(os.Args[2]) {
	case "show":
		runConfigShow(path)
	case "validate", "test":
		runConfigValidate(path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", os.Args[2])
		fmt.Fprintf(os.Stderr, "Valid subcommands: show, validate\n")
		os.Exit(1)
	}
}

func runConfigShow(path string) {
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering configuration: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func runConfigValidate(path string) {
	if path != "" {
		fmt.Printf("Validating configuration file: %s\n", path)
	} else {
		fmt.Println("Validating configuration (system + user merge):")
		fmt.Printf("  System config: %s\n", config.SystemConfigPath())
		if userPath := config.UserConfigPath(); userPath != "" {
			fmt.Printf("  User config:   %s\n", userPath)
		}
		fmt.Println()
	}

	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation FAILED:\n")
		fmt.Fprintf(os.Stderr, "   %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is VALID")
	fmt.Println()
	fmt.Printf("  SSID:             %s (%s)\n", cfg.WiFi.SSID, cfg.WiFi.Security)
	fmt.Printf("  Power save:       %s\n", cfg.PowerSaveSetting())
	fmt.Printf("  Activity window:  %dms of %dms\n", cfg.Activity.InactiveWindowMs, cfg.Activity.IntervalMs)
	fmt.Printf("  Connect retries:  %d\n", cfg.Connect.MaxRetries)
	fmt.Printf("  Settle delay:     %dms\n", cfg.Suspend.SettleDelayMs)
	if cfg.WiFi.SSID == "" {
		fmt.Println()
		fmt.Println("  Note: wifi.ssid is empty; `wifisleep run` will refuse to start")
	}
}

func runDiag() {
	path, rest, err := parseConfigFlag(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	diagConfig, err := diagConfigFor(path, rest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewLogger(logging.LevelWarn)
	out, err := diag.NewPackager(diagConfig, logger).CreatePackage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating diagnostic package: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Diagnostic package written to %s\n", out)
}

// diagConfigFor maps the effective configuration onto a diagnostic bundle.
// An unloadable config is still bundled raw so the error can be inspected.
func diagConfigFor(path string, args []string) (*diag.Config, error) {
	dc := diag.NewConfig(version)
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--output" || args[i] == "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a path", args[i])
			}
			dc.OutputPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--output="):
			dc.OutputPath = strings.TrimPrefix(args[i], "--output=")
		default:
			return nil, fmt.Errorf("unknown diag flag: %s", args[i])
		}
	}

	if path != "" {
		dc.ConfigPaths = []string{path}
	} else {
		dc.ConfigPaths = []string{config.SystemConfigPath()}
		if userPath := config.UserConfigPath(); userPath != "" {
			dc.ConfigPaths = append(dc.ConfigPaths, userPath)
		}
	}

	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load configuration: %v\n", err)
		dc.StatusPath = suspend.DefaultStatusPath()
		return dc, nil
	}
	if effective, err := config.Marshal(cfg); err == nil {
		dc.EffectiveConfig = effective
	}
	dc.StatusPath = suspend.NewStatusStore(cfg.Suspend.StateFile, nil).Path()
	dc.PassLogPath = cfg.Metrics.PassLog
	dc.LogFile = cfg.Logging.File
	return dc, nil
}

func runWake() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: wifisleep wake <mac> [host[:port]]\n")
		os.Exit(1)
	}
	addr := ""
	if len(os.Args) > 3 {
		addr = os.Args[3]
	}

	logger := logging.NewLogger(logging.LevelWarn)
	if err := wol.NewSender(logger).Send(context.Background(), os.Args[2], addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error sending magic packet: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Magic packet sent to %s\n", os.Args[2])
}

func runSecret() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: wifisleep secret <set|list|delete> [name]\n")
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.LevelWarn)
	store, err := secrets.NewStore(secrets.DefaultStoreConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening secret store: %v\n", err)
		os.Exit(1)
	}

	sub := strings.ToLower(os.Args[2])
	if sub == "list" {
		names, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing secrets: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: wifisleep secret %s <name>\n", sub)
		os.Exit(1)
	}
	name := os.Args[3]

	switch sub {
	case "set":
		value, err := readSecret(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading secret: %v\n", err)
			os.Exit(1)
		}
		if err := store.Put(name, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error storing secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Stored secret %s\n", name)
	case "delete":
		if err := store.Delete(name); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted secret %s\n", name)
	default:
		fmt.Fprintf(os.Stderr, "Unknown secret subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// readSecret prompts without echo on a terminal and reads one line otherwise
func readSecret(f *os.File) ([]byte, error) {
	fd := int(f.Fd()) // #nosec G115 -- file descriptors fit in int
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return value, err
	}
	return readLine(f)
}

func readLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, errors.New("empty secret")
	}
	return []byte(line), nil
}

func printUsage() {
	fmt.Printf(`wifisleep - Wi-Fi power save and network suspend agent (version %s)

Usage:
  wifisleep                          Watch the live suspend status (default)
  wifisleep run [--config path]      Connect and run the suspend loop in the foreground
  wifisleep status [--json]          Print the last status written by the agent
  wifisleep watch                    Interactive status view
  wifisleep config show [path]       Print the effective configuration (password redacted)
  wifisleep config validate [path]   Validate configuration (defaults to system/user configs)
  wifisleep secret set <name>        Store a Wi-Fi passphrase (read from stdin)
  wifisleep secret list              List stored secrets
  wifisleep secret delete <name>     Remove a stored secret
  wifisleep wake <mac> [host[:port]] Send a magic packet to a suspended agent
  wifisleep diag [--output path]     Bundle redacted config, status and logs into a ZIP
  wifisleep version                  Print version information
  wifisleep help                     Show this help message

Signals (run):
  SIGTERM, SIGINT                    Resume the stack and stop
  SIGHUP                             Log the current status
  SIGUSR1                            Toggle a wake lock that keeps the stack awake

Environment:
  WIFISLEEP_CONFIG_DIR               System configuration directory (default /etc/wifisleep)
  WIFISLEEP_STATE_DIR                State directory (default /var/lib/wifisleep)
`, version)
}
