// Package cliargs parses the broker's command-line surface. It
// reproduces the minimal argument parser's behavior from the original
// broker (register a flag, accept "--flag value" or "--flag=value",
// abort on any unknown or repeated flag) on top of pflag, and layers
// the result over config.Load as the final, highest-precedence
// configuration source.
package cliargs

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"ev3broker/config"
)

// Version is this build's own release version. It is compared against
// an operator-supplied --require-version constraint at startup and
// never appears on the wire.
const Version = "1.0.0"

// Personality distinguishes the two binaries' flag sets: the server
// exposes --motor-root, the client does not.
type Personality int

const (
	Server Personality = iota
	Client
)

// Parse builds a Config for personality from compiled-in defaults, an
// optional --config YAML file, environment variables, and finally the
// command-line flags in args (os.Args[1:] in production). Any unknown
// or repeated flag, or a failed --require-version check, returns an
// error; --help and --version print to stdout/stderr and exit the
// process directly, matching the original broker's argument parser.
func Parse(personality Personality, args []string) (config.Config, error) {
	if err := checkDuplicateFlags(args); err != nil {
		return config.Config{}, err
	}

	fs := pflag.NewFlagSet(programName(personality), pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultName := "EV3"
	if personality == Client {
		defaultName = "EV3_CLIENT"
	}

	var (
		configPath     string
		logDir         string
		logMode        string
		motorRoot      string
		requireVersion string
		name           string
		port           uint16
		showVersion    bool
		showHelp       bool
	)

	fs.Uint16Var(&port, "port", 4721, "UDP port used for both send and receive")
	fs.StringVar(&name, "name", defaultName, "source name advertised on the wire")
	fs.StringVar(&configPath, "config", "", "optional YAML configuration file")
	fs.StringVar(&logDir, "log-dir", "", "directory for log files (ignored in dev log mode)")
	fs.StringVar(&logMode, "log-mode", "", "dev, release, verbose, or hidden")
	if personality == Server {
		fs.StringVar(&motorRoot, "motor-root", "", "root directory to scan for tacho-motor devices")
	}
	fs.StringVar(&requireVersion, "require-version", "", "abort unless this build satisfies the given semver constraint")
	fs.BoolVarP(&showVersion, "version", "V", false, "print the broker version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "print usage and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, fmt.Errorf("cliargs: %w", err)
	}

	if showHelp {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", programName(personality))
		fs.PrintDefaults()
		os.Exit(1)
	}

	if showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if requireVersion != "" {
		if err := checkVersionConstraint(requireVersion); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	if fs.Changed("port") {
		cfg.Port = port
	}
	if fs.Changed("name") {
		cfg.Name = name
	} else if cfg.Name == config.Default().Name {
		cfg.Name = defaultName
	}
	if fs.Changed("log-dir") {
		cfg.LogDir = logDir
	}
	if fs.Changed("log-mode") {
		cfg.LogMode = logMode
	}
	if personality == Server && fs.Changed("motor-root") {
		cfg.MotorRoot = motorRoot
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func checkVersionConstraint(requireVersion string) error {
	constraint, err := semver.NewConstraint(requireVersion)
	if err != nil {
		return fmt.Errorf("cliargs: --require-version %q: %w", requireVersion, err)
	}
	v, err := semver.NewVersion(Version)
	if err != nil {
		return fmt.Errorf("cliargs: internal version %q: %w", Version, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("cliargs: this build (%s) does not satisfy --require-version %q", Version, requireVersion)
	}
	return nil
}

// checkDuplicateFlags rejects any flag name (long or short) that
// appears more than once among args, regardless of whether it uses
// the "--flag value" or "--flag=value" form. pflag itself would
// silently let the last occurrence win; the original parser aborts.
func checkDuplicateFlags(args []string) error {
	seen := make(map[string]bool)
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			continue
		}
		name := strings.TrimLeft(a, "-")
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		if name == "h" {
			name = "help"
		}
		if name == "V" {
			name = "version"
		}
		if seen[name] {
			return fmt.Errorf("cliargs: duplicate flag --%s", name)
		}
		seen[name] = true
	}
	return nil
}

func programName(personality Personality) string {
	if personality == Server {
		return "ev3-server"
	}
	return "ev3-client"
}

// IsInteractive reports whether stdin is attached to a terminal. The
// client uses this to decide whether to log a startup banner
// (interactive use) or start silently (piped/scripted use).
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
