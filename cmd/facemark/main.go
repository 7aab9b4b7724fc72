package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrCodeEU/facemark/pkg/config"
	"github.com/MrCodeEU/facemark/pkg/logging"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"register": {
			Name:        "register",
			Description: "Register a new identity",
			Usage:       "facemark register <label>",
			Run:         cmdRegister,
		},
		"add-image": {
			Name:        "add-image",
			Description: "Add an enrollment image to an identity",
			Usage:       "facemark add-image <identity-id> <image-file>...",
			Run:         cmdAddImage,
		},
		"match": {
			Name:        "match",
			Description: "Match a capture against the enrolled identities",
			Usage:       "facemark match <image-file>",
			Run:         cmdMatch,
		},
		"remove": {
			Name:        "remove",
			Description: "Remove an identity and its enrollment images",
			Usage:       "facemark remove <identity-id>",
			Run:         cmdRemove,
		},
		"list": {
			Name:        "list",
			Description: "List all registered identities",
			Usage:       "facemark list",
			Run:         cmdList,
		},
		"download-models": {
			Name:        "download-models",
			Description: "Download the face recognition models",
			Usage:       "facemark download-models [directory]",
			Run:         cmdDownloadModels,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "facemark config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "facemark version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "facemark help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	// Parse global flags
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Get remaining args after flags
	args := flag.Args()

	// Load configuration
	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	// Expand paths in config
	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("Facemark v%s starting", version)
	logging.Debugf("Config loaded, data dir: %s", cfg.Storage.DataDir)

	// Show usage if no command provided
	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	// Find and run command
	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	// Run the command
	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Facemark - Face Recognition Attendance")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: facemark [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"register", "add-image", "match", "remove", "list", "download-models", "config", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-16s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  facemark register \"Jane Doe\"           # Register a new identity")
	fmt.Println("  facemark add-image <id> face.jpg       # Enroll an image for it")
	fmt.Println("  facemark match capture.jpg             # Identify who is in a capture")
	fmt.Println("\nRun 'facemark help <command>' for more information on a command.")
}

func cmdVersion(args []string) error {
	fmt.Printf("Facemark v%s\n", version)
	fmt.Println("Face Recognition Attendance")
	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf("Command: %s\n", cmd.Name)
	fmt.Printf("Description: %s\n", cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)

	// Add specific help for each command
	switch cmdName {
	case "add-image":
		fmt.Println("\nEnrollment Notes:")
		fmt.Println("  1. Use well-lit photos showing exactly one face")
		fmt.Println("  2. Several images per identity improve matching")
		fmt.Println("  3. Images are normalized and stored encrypted locally")
	case "match":
		fmt.Println("\nMatching Process:")
		fmt.Println("  1. Faces are located in the capture")
		fmt.Println("  2. Each face is compared against every enrolled identity")
		fmt.Println("  3. The first identity within the distance threshold wins")
	case "config":
		fmt.Println("\nConfiguration Locations:")
		fmt.Println("  System: /etc/facemark/facemark.yaml")
		fmt.Println("  User:   ~/.config/facemark/facemark.yaml")
		fmt.Println("\nUse -config flag to specify a custom config file.")
	}

	return nil
}
