package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/petervdpas/goopchat/internal/app"
	"github.com/petervdpas/goopchat/internal/config"
	"github.com/petervdpas/goopchat/internal/util"
)

const cfgName = "goopchat.json"

var (
	showHelp    = flag.Bool("h", false, "Show help")
	version     = flag.Bool("version", false, "Show version")
	interactive = flag.Bool("i", false, "Ask for settings when running init")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("goopchat v%s\n", appVersion)
		return
	}
	if *showHelp {
		showUsage()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	command := args[0]
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Error: %s command requires directory path\n", command)
		fmt.Fprintf(os.Stderr, "Usage: goopchat %s <client-directory>\n", command)
		os.Exit(1)
	}

	switch command {
	case "run":
		runClient(args[1])
	case "init":
		initClient(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		fmt.Fprintln(os.Stderr)
		showUsage()
		os.Exit(1)
	}
}

func runClient(dirArg string) {
	absDir, err := filepath.Abs(dirArg)
	if err != nil {
		log.Fatalf("Invalid client directory: %v", err)
	}
	if stat, err := os.Stat(absDir); err != nil || !stat.IsDir() {
		log.Fatalf("Client directory does not exist: %s", absDir)
	}

	cfgPath := filepath.Join(absDir, cfgName)
	cfg, _, err := config.Ensure(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := app.Run(ctx, app.Options{
		Dir:     absDir,
		CfgPath: cfgPath,
		Cfg:     cfg,
		In:      os.Stdin,
		Out:     os.Stdout,
	}); err != nil {
		// log output goes to the in-memory buffer once Run starts
		fmt.Fprintf(os.Stderr, "Client failed: %v\n", err)
		os.Exit(1)
	}
}

func initClient(dirArg string) {
	absDir, err := filepath.Abs(dirArg)
	if err != nil {
		log.Fatalf("Invalid client directory: %v", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		log.Fatalf("Create %s: %v", absDir, err)
	}

	cfgPath := filepath.Join(absDir, cfgName)
	cfg, created, err := config.Ensure(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *interactive {
		var token string
		cfg, token = app.PromptInteractive(os.Stdin, os.Stdout, absDir, cfgPath, cfg)
		if err := config.Save(cfgPath, cfg); err != nil {
			log.Fatalf("Save config: %v", err)
		}
		if token != "" {
			tokenPath := util.ResolvePath(absDir, cfg.Identity.TokenFile)
			if err := util.WriteSecretFile(tokenPath, token); err != nil {
				log.Fatalf("Save token: %v", err)
			}
			fmt.Printf("Token written to %s\n", tokenPath)
		}
	}

	if created {
		fmt.Printf("Created %s\n", cfgPath)
	} else {
		fmt.Printf("Config %s is valid\n", cfgPath)
	}
}

func showUsage() {
	fmt.Println("goopchat - team chat client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  goopchat [-i] init <directory>   Create a client folder with a default config")
	fmt.Println("  goopchat run <directory>         Connect and start the chat prompt")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -i        Ask for settings during init")
	fmt.Println("  -h        Show this help message")
	fmt.Println("  -version  Show version information")
	fmt.Println()
	fmt.Println("The session token is read from identity.token, identity.token_file")
	fmt.Println("or the GOOPCHAT_TOKEN environment variable (a .env file in the client")
	fmt.Println("folder is loaded first).")
}
