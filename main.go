package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spaghettifunk/batchrender/engine"
	"github.com/spaghettifunk/batchrender/engine/batch"
	"github.com/spaghettifunk/batchrender/engine/core"
)

func main() {
	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run wires configuration, engine and progress output together. It returns an
// ExitError carrying code 2 for usage and configuration problems and code 1 for
// failed runs.
func run(ctx context.Context, out io.Writer, args []string) error {
	opts, shouldExit, err := parse(args, out, executableDir())
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	ac, err := engine.NewApplicationConfig(opts.cfg)
	if err != nil {
		return usageError(err)
	}
	e, err := engine.New(ac)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError("shutdown: %s", err)
		}
	}()
	core.LogDebug("%s", ac)

	if err := e.Initialize(); err != nil {
		if errors.Is(err, batch.ErrTargetNotFound) {
			return usageError(err)
		}
		return &ExitError{Code: 1, Message: err.Error()}
	}
	registerProgress(e.Events(), out)

	report, err := e.Run(ctx)
	if report != nil {
		printSummary(out, report)
	}
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	return nil
}

// executableDir anchors the default input and output folders.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func registerProgress(bus *core.EventBus, out io.Writer) {
	progress := func(code core.EventCode, sender, listener interface{}, data core.EventContext) bool {
		ev, ok := data.Data.(batch.FileEvent)
		if !ok {
			core.LogError("wrong event associated with the event type `%d`", code)
			return false
		}
		switch code {
		case core.EventFileStarted:
			fmt.Fprintf(out, "[%d/%d] %s\n", ev.Index, ev.Total, filepath.Base(ev.Input))
		case core.EventFileRendered:
			fmt.Fprintf(out, "      saved %s\n", ev.Output)
		case core.EventFileFailed:
			fmt.Fprintf(out, "      failed: %s\n", ev.Err)
		}
		return false
	}
	for _, code := range []core.EventCode{core.EventFileStarted, core.EventFileRendered, core.EventFileFailed} {
		bus.Register(code, out, progress)
	}
}

func printSummary(out io.Writer, report *batch.Report) {
	r := lipgloss.NewRenderer(out)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	ok := r.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	bad := r.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)

	heading := "Batch render complete"
	if !report.OK() {
		heading = "Batch render stopped"
	}
	lines := []string{
		title.Render(heading),
		ok.Render(fmt.Sprintf("%d rendered", len(report.Processed))),
	}
	if n := len(report.Failed); n > 0 {
		lines = append(lines, bad.Render(fmt.Sprintf("%d failed", n)))
		for _, f := range report.Failed {
			lines = append(lines, bad.Render("  "+filepath.Base(f.Input)))
		}
	}
	if n := len(report.Pending); n > 0 {
		lines = append(lines, fmt.Sprintf("%d not attempted", n))
	}
	lines = append(lines, fmt.Sprintf("took %s (avg render %s)", report.Duration.Round(time.Millisecond), report.AvgRender.Round(time.Millisecond)))
	fmt.Fprintln(out, box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
