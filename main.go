package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tally/engine"
	"tally/kernel"
	"tally/repl"
	"tally/web"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	if _, err := strconv.Atoi(sub); err == nil {
		// Bare `tally <rows> <cols>` starts the terminal sheet.
		os.Exit(sheetCommand(os.Args[1:]))
	}

	switch sub {
	case "-h", "--help", "help":
		usage()
		return
	case "sheet":
		os.Exit(sheetCommand(os.Args[2:]))
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	case "kernel":
		os.Exit(kernelCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  tally <rows> <cols>               start the terminal sheet\n")
	fmt.Fprintf(os.Stderr, "  tally sheet <rows> <cols>         same, explicit subcommand\n")
	fmt.Fprintf(os.Stderr, "  tally serve [addr] [--rows=N --cols=N]   start the websocket server (default :8080)\n")
	fmt.Fprintf(os.Stderr, "  tally kernel <connection_file> [--rows=N --cols=N]   start the ZeroMQ kernel\n")
	fmt.Fprintf(os.Stderr, "  tally help                        show this help message\n")
}

func sheetCommand(args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: tally <rows> <cols>\n")
		return 2
	}
	rows, err1 := strconv.Atoi(args[0])
	cols, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Fprintf(os.Stderr, "rows and cols must be integers\n")
		return 2
	}

	start := time.Now()
	sheet, err := engine.New(rows, cols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	setup := time.Since(start).Seconds()

	repl.Start(sheet, os.Stdin, os.Stdout, setup)
	return 0
}

func serveCommand(args []string) int {
	addr := ":8080"
	rows, cols, rest, err := parseDimFlags(args, 100, 26)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if len(rest) > 1 {
		fmt.Fprintf(os.Stderr, "usage: tally serve [addr] [--rows=N --cols=N]\n")
		return 2
	}
	if len(rest) == 1 {
		addr = rest[0]
	}

	sheet, err := engine.New(rows, cols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if err := web.NewServer(sheet).Start(addr); err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		return 1
	}
	return 0
}

func kernelCommand(args []string) int {
	rows, cols, rest, err := parseDimFlags(args, 100, 26)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "usage: tally kernel <connection_file> [--rows=N --cols=N]\n")
		return 2
	}

	sheet, err := engine.New(rows, cols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	k, err := kernel.New(rest[0], sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel: %v\n", err)
		return 1
	}
	if err := k.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "kernel: %v\n", err)
		return 1
	}
	return 0
}

// parseDimFlags pulls --rows=N / --cols=N out of args and returns the
// remaining positionals.
func parseDimFlags(args []string, defaultRows, defaultCols int) (rows, cols int, rest []string, err error) {
	rows, cols = defaultRows, defaultCols
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--rows="):
			rows, err = strconv.Atoi(arg[len("--rows="):])
		case strings.HasPrefix(arg, "--cols="):
			cols, err = strconv.Atoi(arg[len("--cols="):])
		case strings.HasPrefix(arg, "-"):
			return 0, 0, nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			rest = append(rest, arg)
		}
		if err != nil {
			return 0, 0, nil, fmt.Errorf("bad flag %s: %v", arg, err)
		}
	}
	return rows, cols, rest, nil
}
