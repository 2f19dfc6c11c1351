package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-autoquote/pkg/flatten"
)

var flattenFlags struct {
	prefix string
}

var flattenCmd = &cobra.Command{
	Use:   "flatten [FILE]",
	Short: "Flatten a JSON document into form field names",
	Long: `Flatten a JSON document the way quotes are flattened before submission:
nested keys join with "_" and list positions are appended to the list key,
so {"vehicles":[{"make":"Ford"}]} becomes {"vehicles0_make":"Ford"}.

Reads stdin when FILE is omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFlatten,
}

func init() {
	flattenCmd.Flags().StringVarP(&flattenFlags.prefix, "prefix", "p", "", "Prefix for every key")
}

func runFlatten(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var doc any
	dec := json.NewDecoder(in)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	flat, err := flatten.Flatten(doc, flattenFlags.prefix)
	if err != nil {
		return err
	}
	return printJSON(cmd, flatten.Strings(flat))
}
