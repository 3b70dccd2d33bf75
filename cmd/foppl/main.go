package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"foppl.dev/compiler/pkg/compiler"
)

var Description = strings.ReplaceAll(`
The FOPPL compiler reads a probabilistic program, written in either the Lisp
(Clojure-like) or imperative (Python-like) surface syntax, and compiles it
into a directed graphical model: sampled/observed vertices, condition nodes
and data nodes wired by ancestor dependency, plus generated prior-sampling
and log-pdf code. It does not evaluate the model -- that is left to an
external inference engine.
`, "\n", " ")

var FopplCompiler = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source files (or directories) to compile").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("no-simplify", "Disables the optimizer/partial-evaluator pass").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("print-graph", "Prints the compiled model's V/A/C/D sets instead of code").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Printf("ERROR: Unable to stat input %q: %s\n", arg, err)
			return -1
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		filepath.Walk(arg, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			switch filepath.Ext(p) {
			case ".foppl", ".fppl", ".clj", ".py":
				inputs = append(inputs, p)
			}
			return nil
		})
	}

	var opts []compiler.Option
	if _, disabled := options["no-simplify"]; disabled {
		opts = append(opts, compiler.WithSimplify(false))
	}

	for _, input := range inputs {
		source, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file %q: %s\n", input, err)
			return -1
		}

		model, err := compiler.Compile(string(source), opts...)
		if err != nil {
			fmt.Printf("ERROR: Unable to compile %q: %s\n", input, err)
			return -1
		}

		if _, printGraph := options["print-graph"]; printGraph {
			fmt.Printf("# %s\n%s", input, model.String())
			continue
		}

		extension := path.Ext(input)
		outPath := strings.TrimSuffix(input, extension) + ".model.py"
		out, err := os.Create(outPath)
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file %q: %s\n", outPath, err)
			return -1
		}
		if _, err := out.WriteString(model.ModelCode()); err != nil {
			out.Close()
			fmt.Printf("ERROR: Unable to write output file %q: %s\n", outPath, err)
			return -1
		}
		out.Close()
	}

	return 0
}

func main() { os.Exit(FopplCompiler.Run(os.Args, os.Stdout)) }
