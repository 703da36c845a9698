package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
)

func main() {
	var (
		scenario    = flag.String("scenario", "all", "Built-in scenario: "+strings.Join(builtinOrder, "|")+"|all")
		scriptFile  = flag.String("script", "", "Path to a YAML step script (overrides -scenario)")
		dir         = flag.String("dir", "", "Directory for journal files (default: temporary)")
		verbose     = flag.Bool("v", false, "Log lifecycle internals to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
		defer logger.Sync()
	}
	lifecycle.SetLogger(logger)
	heap.SetLogger(logger)

	workDir := *dir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "lifecycle-*")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(workDir, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	scripts, err := selectScripts(*scenario, *scriptFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: lifecycle [-scenario name|all] [-script file.yaml] [-dir path] [-v]")
		fmt.Fprintln(os.Stderr, "       lifecycle -i  (interactive mode)")
		os.Exit(1)
	}

	ctx := context.Background()
	for _, sc := range scripts {
		if err := run(ctx, sc, workDir, logger, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func selectScripts(scenario, scriptFile string) ([]*Script, error) {
	if scriptFile != "" {
		sc, err := loadScript(scriptFile)
		if err != nil {
			return nil, err
		}
		return []*Script{sc}, nil
	}
	if scenario == "all" {
		scripts := make([]*Script, len(builtinOrder))
		for i, name := range builtinOrder {
			scripts[i] = builtinScripts[name]
		}
		return scripts, nil
	}
	sc, ok := builtinScripts[scenario]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", scenario)
	}
	return []*Script{sc}, nil
}

// run executes every step of sc, printing each result followed by the
// lifecycle events it caused. Step errors are printed, not fatal: using a
// released object is part of what scripts demonstrate.
func run(ctx context.Context, sc *Script, dir string, logger *zap.Logger, w io.Writer) error {
	sess, err := newSession(ctx, dir, sc.MaxPages, logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, titleStyle.Render("scenario "+sc.Name))
	for i, st := range sc.Steps {
		fmt.Fprintf(w, "%2d %s\n", i+1, funcStyle.Render(st.String()))
		line, err := sess.exec(st)
		if err != nil {
			fmt.Fprintf(w, "   %s\n", errorStyle.Render("error: "+err.Error()))
		} else {
			fmt.Fprintf(w, "   %s\n", resultStyle.Render(line))
		}
		for _, e := range sess.events() {
			fmt.Fprintf(w, "   %s\n", eventStyle.Render(e))
		}
	}

	err = sess.close()
	if events := sess.events(); len(events) > 0 {
		fmt.Fprintln(w, helpStyle.Render("   teardown"))
		for _, e := range events {
			fmt.Fprintf(w, "   %s\n", eventStyle.Render(e))
		}
	}
	fmt.Fprintln(w)
	return err
}
