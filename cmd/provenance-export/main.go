// Command provenance-export renders the golden corpus through the
// current template into the eval tool configuration. With -check it
// diffs the fresh rendering against a pinned export and fails on drift,
// gating template changes before activation
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"provenance/internal/core/golden"
	"provenance/internal/core/prompt"
)

func main() {
	var (
		name    = flag.String("template", "review-classify", "template name")
		version = flag.String("version", "1.0.0", "template version")
		out     = flag.String("out", "", "write to file instead of stdout")
		check   = flag.String("check", "", "diff against a pinned export and exit non-zero on drift")
	)
	flag.Parse()

	eng := prompt.NewEngine()
	rendered, err := golden.Export(eng, *name, *version)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	if *check != "" {
		pinned, err := os.ReadFile(*check)
		if err != nil {
			log.Fatalf("read pinned export: %v", err)
		}
		if d := prompt.Diff(string(pinned), string(rendered)); d != "" {
			fmt.Fprintf(os.Stderr, "template drift against %s:\n%s", *check, d)
			os.Exit(1)
		}
		fmt.Printf("no drift: %s v%s matches %s\n", *name, *version, *check)
		return
	}

	if *out != "" {
		if err := os.WriteFile(*out, rendered, 0o644); err != nil {
			log.Fatalf("write %s: %v", *out, err)
		}
		return
	}
	if _, err := os.Stdout.Write(rendered); err != nil {
		log.Fatalf("write stdout: %v", err)
	}
}
