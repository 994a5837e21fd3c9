package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/input-output-hk/blobxfer/internal/naming"
)

type namesOutput struct {
	Path     string `json:"path"`
	Prefix   string `json:"prefix"`
	Fragment string `json:"fragment_example"`
	Compose  string `json:"compose_example"`
}

func runNamesCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("names", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", "", "destination object path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" {
		fmt.Fprintln(stderr, "names: -path is required")
		return 2
	}

	scheme, err := naming.Parse(*path)
	if err != nil {
		fmt.Fprintf(stderr, "names: %v\n", err)
		return 1
	}

	if err := printJSON(stdout, namesOutput{
		Path:     scheme.Path,
		Prefix:   scheme.Prefix(),
		Fragment: scheme.FragmentName(),
		Compose:  scheme.ComposeName(),
	}); err != nil {
		fmt.Fprintf(stderr, "names: %v\n", err)
		return 1
	}
	return 0
}
