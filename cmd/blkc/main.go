// Command blkc compiles one source file through the full pipeline --
// lexing, parsing, block lowering, CFG construction, dead-block
// elimination, and interpretation -- and prints the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/segmentio/ksuid"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/cfg"
	"blocklang/internal/errors"
	"blocklang/internal/interp"
	"blocklang/internal/lower"
	"blocklang/internal/parser"
	"blocklang/internal/types"
)

func main() {
	path := flag.String("file", "", "source file to compile and run")
	dumpBlocks := flag.Bool("dump-blocks", false, "print the lowered block program before running it")
	inputList := flag.String("input", "", "comma-separated decimal/bool values bound to main's parameters, in order")
	parallel := flag.Bool("parallel", false, "lower independent functions concurrently")
	flag.Parse()

	if *path == "" && flag.NArg() > 0 {
		*path = flag.Arg(0)
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: blkc -file <source.blk> [-input v1,v2,...] [-dump-blocks] [-parallel]")
		os.Exit(2)
	}

	runID := ksuid.New().String()

	src, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.RenderFatal(err))
		os.Exit(1)
	}

	prog, parseErrs, scanErrs := parser.ParseSource(*path, string(src))
	if len(scanErrs) > 0 || len(parseErrs) > 0 {
		for _, e := range scanErrs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		for _, e := range parseErrs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		os.Exit(1)
	}

	reporter := errors.NewReporter(*path, string(src))

	raw, err := lower.LowerProgram(prog, lower.Options{Parallel: *parallel})
	if err != nil {
		reportAndExit(reporter, err)
	}

	mainEntry := raw.Entries[raw.Main]
	graph, err := cfg.Build(raw.Blocks, mainEntry)
	if err != nil {
		reportAndExit(reporter, err)
	}
	relabeled := cfg.Relabel(raw.Blocks, mainEntry, graph.Reachable, raw.EntryParams)

	if *dumpBlocks {
		fmt.Println(blockir.Print(relabeled))
	}

	inputs, err := parseInputs(prog, *inputList)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.RenderFatal(err))
		os.Exit(1)
	}

	result, err := interp.Run(relabeled, inputs)
	if err != nil {
		reportAndExit(reporter, err)
	}

	banner := color.New(color.FgGreen, color.Bold)
	banner.Printf("ok")
	fmt.Printf(" [%s] return=%s\n", runID, result.ReturnValue)

	labels := make([]int, 0, len(result.BlockCounts))
	for l := range result.BlockCounts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	for _, l := range labels {
		fmt.Printf("  block %d ran %d time(s)\n", l, result.BlockCounts[l])
	}
}

func parseInputs(prog *ast.Program, raw string) ([]types.Value, error) {
	var mainFn *ast.Function
	for _, fn := range prog.Functions {
		if fn.IsMain() {
			mainFn = fn
			break
		}
	}
	if mainFn == nil {
		return nil, fmt.Errorf("program declares no main function")
	}

	var parts []string
	if strings.TrimSpace(raw) != "" {
		parts = strings.Split(raw, ",")
	}
	if len(parts) != 0 && len(parts) != len(mainFn.Params) {
		return nil, fmt.Errorf("-input supplies %d value(s), main declares %d parameter(s)", len(parts), len(mainFn.Params))
	}

	out := make([]types.Value, len(mainFn.Params))
	for i, p := range mainFn.Params {
		kind, ok := types.FromAST(p.Type)
		if !ok {
			return nil, fmt.Errorf("parameter %s has unrecognized type %s", p.Name, p.Type)
		}
		if len(parts) == 0 {
			out[i] = types.ZeroValue(kind)
			continue
		}
		v, err := parseValue(kind, strings.TrimSpace(parts[i]))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseValue(kind types.Kind, s string) (types.Value, error) {
	if kind == types.KindBool {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return types.Value{}, fmt.Errorf("invalid bool value %q", s)
		}
		return types.Value{Kind: kind, Bool: b}, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return types.Value{}, fmt.Errorf("invalid integer value %q", s)
	}
	return types.Value{Kind: kind, Int: types.Mask(kind, n)}, nil
}

func reportAndExit(reporter *errors.Reporter, err error) {
	if ce, ok := err.(*errors.CompilerError); ok {
		fmt.Fprint(os.Stderr, reporter.Render(ce))
	} else {
		fmt.Fprintln(os.Stderr, errors.RenderFatal(err))
	}
	os.Exit(1)
}
