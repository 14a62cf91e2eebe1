package main

import (
	"flag"
	"fmt"
	"os"

	"blackbox/pkg/compiler"
	"blackbox/pkg/utils"
)

const testSource = `#include "blackbox.h"
BlackBox *blackbox;
int x = 10;
void main() {
	while (1) {
		x = x + 1;
	}
}
`

func main() {
	validate := flag.Bool("validate", true, "run the device checks after parsing")
	flag.Parse()

	src := testSource
	baseDir := "."
	if flag.NArg() > 0 {
		file, err := utils.ReadSource(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src, baseDir = file.Text, file.Dir
	}

	prog, err := compiler.ParseWith(src, compiler.DirLoader(baseDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		if ex := compiler.Excerpt(err); ex != "" {
			fmt.Fprintln(os.Stderr, "  |>", ex)
		}
		os.Exit(1)
	}

	fmt.Printf("AST (%d declarations)\n", len(prog.Decls))
	for _, d := range prog.Decls {
		fmt.Printf("  %4d  %s\n", d.Pos(), d)
	}
	fmt.Println()

	for _, f := range compiler.UnusedFunctions(prog) {
		fmt.Printf("warning: line %d: function %s is never called\n", f.Line, f.Name)
	}

	if !*validate {
		return
	}
	shape, err := compiler.Validate(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "validation error:", err)
		os.Exit(1)
	}
	fmt.Println("Shape")
	fmt.Printf("  root: %s\n", shape.Root)
	fmt.Printf("  main: line %d\n", shape.Main.Line)
	fmt.Printf("  loop: %s\n", shape.Loop.Cond)
}
