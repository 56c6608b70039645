package main

import (
	"os"

	"github.com/spf13/cobra"

	"qtbundle/deploy"
	"qtbundle/inspect"
)

// depsCmd prints the recursive dependency tree of one binary.
var depsCmd = &cobra.Command{
	Use:   "deps <binary>",
	Short: "Print the recursive library dependency tree of a binary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.PrintTree(os.Stdout, inspect.New(), args[0])
	},
}
