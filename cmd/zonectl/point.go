package main

import (
	"encoding/json"
	"fmt"

	"zone-match/internal/batch"
	"zone-match/internal/zone"

	"github.com/spf13/cobra"
)

var (
	pointSquare string
	pointSign   string
)

var pointCmd = &cobra.Command{
	Use:   `point "<lat>, <lon>"`,
	Short: "Look up a single point and compare it with the expected square and sign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, err := batch.ParseLatLon(args[0])
		if err != nil {
			return err
		}
		ds, err := loadZones()
		if err != nil {
			return err
		}
		res := ds.Lookup(zone.Query{Point: pt, ExpectedSquare: pointSquare, ExpectedSign: pointSign})
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d - %s\n", res.Outcome.Code, zone.CodeLabel(res.Outcome.Code))
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	},
}

func init() {
	pointCmd.Flags().StringVar(&pointSquare, "square", "", "Expected square number")
	pointCmd.Flags().StringVar(&pointSign, "sign", "", "Expected sign number")
}
