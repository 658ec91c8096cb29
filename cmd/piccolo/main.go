// Command piccolo validates sensor pipelines against a step contract
// catalog and compiles them into plans for the embedded backend.
//
// Usage:
//
//	piccolo [--catalog PATH] [--db PATH] [--format json|text] <command> [flags]
//
// Commands:
//
//	catalog   Check, list and show catalog contracts
//	validate  Validate a pipeline
//	compile   Compile a pipeline into a plan
//	save      Compile and store a pipeline
//	load      Show a stored pipeline
//	list      List stored pipelines
//	delete    Delete a stored pipeline
//	test      Run scenario files
package main

import (
	"fmt"
	"os"

	"github.com/sensiml/piccolo-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
