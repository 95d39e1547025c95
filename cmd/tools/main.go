package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "init-db":
		initDBCommand(args)
	case "print-ddl":
		printDDLCommand()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: tools <command> [options]

Commands:
  init-db     apply the catalog schema to a PostgreSQL database
  print-ddl   print the catalog schema DDL to stdout`)
}
