package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var nowFunc = time.Now

var lookupFlags struct {
	year     int
	makeName string
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Query vehicle makes, models and VINs through the lookup cache",
}

var lookupMakesCmd = &cobra.Command{
	Use:   "makes",
	Short: "List the makes of a model year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		names, err := a.cache.Makes(cmd.Context(), lookupFlags.year)
		if err != nil {
			return err
		}
		return printJSON(cmd, names)
	},
}

var lookupModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models of a make in a model year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if strings.TrimSpace(lookupFlags.makeName) == "" {
			return fmt.Errorf("--make is required")
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		names, err := a.cache.Models(cmd.Context(), lookupFlags.makeName, lookupFlags.year)
		if err != nil {
			return err
		}
		return printJSON(cmd, names)
	},
}

var lookupDecodeCmd = &cobra.Command{
	Use:   "decode VIN",
	Short: "Decode a VIN into year, make and model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		decoded, err := a.client.DecodeVIN(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, decoded)
	},
}

func init() {
	for _, c := range []*cobra.Command{lookupMakesCmd, lookupModelsCmd} {
		c.Flags().IntVarP(&lookupFlags.year, "year", "y", nowFunc().Year(), "Model year")
	}
	lookupModelsCmd.Flags().StringVarP(&lookupFlags.makeName, "make", "m", "", "Make name")

	lookupCmd.AddCommand(lookupMakesCmd, lookupModelsCmd, lookupDecodeCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
