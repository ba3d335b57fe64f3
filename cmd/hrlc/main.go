package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/its-hmny/hrlc/pkg/lexer"
	"github.com/its-hmny/hrlc/pkg/parser"
	"github.com/its-hmny/hrlc/pkg/semalyzer"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
hrlc runs the semantic analysis pipeline over one or more Human Resource
Machine-style source files, reporting every diagnostic the pipeline's
passes emit to stdout.
`, "\n", " ")

var Hrlc = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source (.hrl) files to analyze").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("no-optimize", "Skips the optimistic phase (constant folding, dead code and unused symbol elimination)").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("fail-fast", "Stops the pipeline as soon as any pass reports a fatal diagnostic").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("suppress", "Comma-separated list of error ids to suppress (e.g. 3006,3014)").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	optimize := true
	if _, disabled := options["no-optimize"]; disabled {
		optimize = false
	}
	failFast := false
	if _, enabled := options["fail-fast"]; enabled {
		failFast = true
	}

	anyErrors := false

	for _, input := range args {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		filename := filepath.Base(input)
		em := semalyzer.NewErrorManager()
		if raw, ok := options["suppress"]; ok {
			em.Suppress(parseSuppressList(raw)...)
		}

		tokens, err := lexer.New().Tokenize(content)
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'lexing' pass for %s: %s\n", filename, err)
			return -1
		}

		root, err := parser.New(tokens).Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass for %s: %s\n", filename, err)
			return -1
		}

		pipeline := semalyzer.BuildDefaultPipeline(root, filename, em, optimize)
		pipeline.Run(failFast)

		em.PrintAll(os.Stdout)
		if em.HasErrors() {
			anyErrors = true
		}
	}

	if anyErrors {
		return -1
	}
	return 0
}

// parseSuppressList turns "3006,3014" into []int{3006, 3014}, silently
// skipping any entry that isn't a valid integer.
func parseSuppressList(raw string) []int {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.Atoi(part); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func main() { os.Exit(Hrlc.Run(os.Args, os.Stdout)) }
