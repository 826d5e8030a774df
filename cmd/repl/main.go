package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/scripthost/script-engine/region"
	"github.com/scripthost/script-engine/session"
)

func main() {
	var (
		collectible = flag.Bool("c", false, "Place fragments in the reclaimable region")
		entryName   = flag.String("entry", "", "Entry export to call (default _start, then main)")
		dumpDir     = flag.String("dump", "", "Flush region containers to this directory after the run")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*entryName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: repl [-c] [-entry name] [-dump dir] <fragment.wasm> [args...]")
		fmt.Fprintln(os.Stderr, "       repl -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(flag.Args(), *collectible, *entryName, *dumpDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run builds one fragment file as a submission and invokes its entry point
// with the remaining arguments.
func run(args []string, collectible bool, entryName, dumpDir string) error {
	ctx := context.Background()

	opts := session.DefaultOptions()
	if dumpDir != "" {
		opts.Mode = region.ModePersist
	}
	sess, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	payload, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read fragment: %w", err)
	}

	policy := session.PolicyPersistent
	if collectible {
		policy = session.PolicyReclaimable
	}
	sub := sess.NewSubmission(payload, policy)
	sub.EntryName = entryName

	callable, err := sess.Build(ctx, sub)
	if err != nil {
		return err
	}
	if callable == nil {
		for _, d := range sess.Diagnostics().All() {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", d.Severity, d.Code, d.Message)
		}
		return fmt.Errorf("fragment produced nothing runnable")
	}

	var callArgs []uint64
	for _, a := range args[1:] {
		n, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return fmt.Errorf("argument %q: %w", a, err)
		}
		callArgs = append(callArgs, n)
	}

	results, err := callable(ctx, callArgs)
	if err != nil {
		return fmt.Errorf("call entry: %w", err)
	}
	for _, r := range results {
		fmt.Println(r)
	}

	if dumpDir != "" {
		c := sess.Persistent().GetOrCreateContainer()
		if path, err := c.Flush(dumpDir); err == nil {
			fmt.Fprintf(os.Stderr, "container flushed to %s\n", path)
		}
	}
	return nil
}
