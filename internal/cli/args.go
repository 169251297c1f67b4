package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rainsave/rainsave/internal/types"
	"github.com/rainsave/rainsave/internal/version"
)

const (
	defaultConfigPath   = "./configs/rainsave.conf"
	configSourceDefault = "default path"
	configSourceFlag    = "specified via --config/-c flag"
)

// Args holds the parsed command-line arguments. String and bool flags that
// can also come from the config file track whether they were set explicitly,
// so that flags override the file only when actually provided.
type Args struct {
	ConfigPath       string
	ConfigPathSource string
	Host             string
	HostSet          bool
	Password         string
	PasswordSet      bool
	Backup           bool
	BackupSet        bool
	Restore          bool
	RestoreSet       bool
	File             string
	FileSet          bool
	Insecure         bool
	ForceCLI         bool
	LogLevel         types.LogLevel
	ShowVersion      bool
	ShowHelp         bool
}

// Parse parses command-line arguments and returns Args struct
func Parse() *Args {
	return parse(flag.CommandLine, os.Args[1:])
}

func parse(fs *flag.FlagSet, argv []string) *Args {
	args := &Args{}

	configFlag := newStringFlag(defaultConfigPath)
	hostFlag := newStringFlag("")
	passwordFlag := newStringFlag("")
	fileFlag := newStringFlag("")
	backupFlag := &boolFlag{}
	restoreFlag := &boolFlag{}

	fs.Var(configFlag, "config", "Path to configuration file")
	fs.Var(configFlag, "c", "Path to configuration file (shorthand)")

	fs.Var(hostFlag, "host", "IP address or hostname of the RainMachine controller")
	fs.Var(hostFlag, "rainmachine", "Alias for --host")

	fs.Var(passwordFlag, "password", "Password of the RainMachine controller")
	fs.Var(passwordFlag, "p", "Password (shorthand)")

	fs.Var(backupFlag, "backup", "Back up all settings of the specified controller")
	fs.Var(backupFlag, "b", "Back up (shorthand)")

	fs.Var(restoreFlag, "restore", "Restore all settings of the specified controller")
	fs.Var(restoreFlag, "r", "Restore (shorthand)")

	fs.Var(fileFlag, "file", "Name of the backup file (default: <host>.json)")
	fs.Var(fileFlag, "f", "Backup file name (shorthand)")

	var logLevelStr string
	fs.StringVar(&logLevelStr, "log-level", "",
		"Log level (debug|info|warning|error|critical)")
	fs.StringVar(&logLevelStr, "l", "",
		"Log level (shorthand)")

	fs.BoolVar(&args.Insecure, "insecure", false,
		"Skip TLS certificate verification (self-signed controller certificates)")

	fs.BoolVar(&args.ForceCLI, "cli", false,
		"Use CLI prompts instead of TUI for the restore confirmation")

	fs.BoolVar(&args.ShowVersion, "version", false,
		"Show version information")
	fs.BoolVar(&args.ShowVersion, "v", false,
		"Show version information (shorthand)")

	fs.BoolVar(&args.ShowHelp, "help", false,
		"Show help message")
	fs.BoolVar(&args.ShowHelp, "h", false,
		"Show help message (shorthand)")

	fs.Usage = func() {
		printHelp(os.Stderr, os.Args[0])
	}

	fs.Parse(argv)

	args.ConfigPath = configFlag.value
	if configFlag.set {
		args.ConfigPathSource = configSourceFlag
	} else {
		args.ConfigPathSource = configSourceDefault
	}

	args.Host, args.HostSet = hostFlag.value, hostFlag.set
	args.Password, args.PasswordSet = passwordFlag.value, passwordFlag.set
	args.File, args.FileSet = fileFlag.value, fileFlag.set
	args.Backup, args.BackupSet = backupFlag.value, backupFlag.set
	args.Restore, args.RestoreSet = restoreFlag.value, restoreFlag.set

	if logLevelStr != "" {
		args.LogLevel = parseLogLevel(logLevelStr)
	} else {
		args.LogLevel = types.LogLevelNone // Will be overridden by config
	}

	return args
}

// parseLogLevel converts string to LogLevel
func parseLogLevel(s string) types.LogLevel {
	switch s {
	case "debug", "5":
		return types.LogLevelDebug
	case "info", "4":
		return types.LogLevelInfo
	case "warning", "3":
		return types.LogLevelWarning
	case "error", "2":
		return types.LogLevelError
	case "critical", "1":
		return types.LogLevelCritical
	case "none", "0":
		return types.LogLevelNone
	default:
		return types.LogLevelInfo
	}
}

// ShowHelp displays help message and exits
func ShowHelp() {
	printHelp(os.Stderr, os.Args[0])
	os.Exit(0)
}

// ShowVersion displays version information and exits
func ShowVersion() {
	printVersion(os.Stdout)
	os.Exit(0)
}

func printHelp(w io.Writer, argv0 string) {
	fmt.Fprintf(w, "Usage: %s [options]\n\n", argv0)
	fmt.Fprintln(w, "rainsave - Backup/Restore utility for RainMachine sprinkler controllers.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	flag.PrintDefaults()
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s --host 192.168.1.50 -p secret -b\n", argv0)
	fmt.Fprintf(w, "  %s --host 192.168.1.50 -p secret -r -f sprinkler.json\n", argv0)
	fmt.Fprintf(w, "  %s --version\n", argv0)
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, "rainsave")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	if version.Commit != "" {
		fmt.Fprintf(w, "Commit: %s\n", version.Commit)
	}
	if version.Date != "" {
		fmt.Fprintf(w, "Built: %s\n", version.Date)
	}
}

type stringFlag struct {
	value string
	set   bool
}

func newStringFlag(defaultValue string) *stringFlag {
	return &stringFlag{value: defaultValue}
}

func (s *stringFlag) String() string {
	return s.value
}

func (s *stringFlag) Set(val string) error {
	s.value = val
	s.set = true
	return nil
}

type boolFlag struct {
	value bool
	set   bool
}

func (b *boolFlag) String() string {
	if b.value {
		return "true"
	}
	return "false"
}

func (b *boolFlag) Set(val string) error {
	b.value = val == "" || val == "true" || val == "1"
	b.set = true
	return nil
}

// IsBoolFlag makes the flag package treat the flag as a boolean switch.
func (b *boolFlag) IsBoolFlag() bool { return true }
