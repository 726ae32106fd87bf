package main

import (
	"fmt"

	"zone-match/internal/kml"
	"zone-match/internal/loader"
	"zone-match/internal/sheet"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <zones.kml|zones.kmz> <zones.xlsx>",
	Short: "Convert a KML/KMZ zone file to a zone spreadsheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loader.File(args[0])
		if err != nil {
			return err
		}
		f, done, err := create(args[1])
		if err != nil {
			return err
		}
		if err := sheet.WriteZones(f, ds.Zones()); err != nil {
			_ = done()
			return err
		}
		if err := done(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d zones written to %s\n", ds.Len(), args[1])
		return nil
	},
}

var exportAlpha int

var exportKMLCmd = &cobra.Command{
	Use:   "export-kml <out.kml>",
	Short: "Write the loaded zones as styled KML polygons",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportAlpha < -1 || exportAlpha > 255 {
			return fmt.Errorf("--alpha must be between 0 and 255")
		}
		ds, err := loadZones()
		if err != nil {
			return err
		}
		alpha := cfg.FillAlpha
		if exportAlpha >= 0 {
			alpha = uint8(exportAlpha)
		}
		f, done, err := create(args[0])
		if err != nil {
			return err
		}
		if err := kml.WriteZones(f, ds.Zones(), alpha); err != nil {
			_ = done()
			return err
		}
		return done()
	},
}

func init() {
	exportKMLCmd.Flags().IntVar(&exportAlpha, "alpha", -1, "Fill alpha 0..255; defaults to KML_FILL_ALPHA")
}
