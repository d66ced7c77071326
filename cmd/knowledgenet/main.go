// Command knowledgenet serves and queries KnowledgeNet agents.
//
// Usage:
//
//	knowledgenet serve [-config knowledgenet.yaml]   # serve the public agents over HTTP
//	knowledgenet ask [-agent id] [question]          # ask a public agent from the terminal
//	knowledgenet version                             # print version information
package main

import (
	"fmt"
	"os"
)

// Set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "ask":
		err = runAsk(os.Args[2:], os.Stdin, os.Stdout)
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("knowledgenet %s\n", Version)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`knowledgenet - agent call substrate

Usage:
  knowledgenet <command> [options]

Commands:
  serve     Serve the public agents over HTTP
  ask       Ask a public agent from the terminal
  version   Show version information
  help      Show this help message

Common options:
  -config <path>   Configuration file (YAML)
  -dir <path>      Agent configuration directory, overrides agents.dir
  -keys <path>     Credentials file (TOML), overrides agents.keys_file

Options for 'ask':
  -agent <id>      Public agent to ask, required when several are public

Examples:
  knowledgenet serve -config /etc/knowledgenet/config.yaml
  knowledgenet ask -dir ./agents "Which plants grow in shade?"
  knowledgenet version`)
}
