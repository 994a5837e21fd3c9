// Command blobxfer copies blobs between object stores using chunked fragment
// uploads and progressive compose.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "run":
		return runTransferCmd(ctx, rest, stdout, stderr)
	case "names":
		return runNamesCmd(rest, stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: blobxfer <command> [flags]

Commands:
  run    -request FILE [-config FILE] [-dry-run]
         Transfer one request or a list of requests (JSON or YAML)
  names  -path PATH
         Print the fragment naming for a destination path

Configuration is read from the optional YAML file and BLOBXFER_* variables.
`)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
