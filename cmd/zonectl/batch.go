package main

import (
	"fmt"
	"os"

	"zone-match/internal/batch"
	"zone-match/internal/kml"
	"zone-match/internal/logger"
	"zone-match/internal/sheet"
	"zone-match/internal/zone"

	"github.com/spf13/cobra"
)

var (
	batchOut  string
	pointsOut string
)

// runPoints：读取点表并执行第一轮查询；被中断时返回上下文错误
func runPoints(cmd *cobra.Command, path string) (*zone.Dataset, *batch.Report, error) {
	ds, err := loadZones()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	t, err := sheet.ReadPoints(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	rep := batch.Run(cmd.Context(), ds, t.Header, batch.FromTable(t), logger.Progress(logger.L(), cfg.ProgressN, "file", path))
	if rep.Err != nil {
		return nil, nil, rep.Err
	}
	if rep.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d rows skipped:\n%v\n", rep.Failed, rep.Errors())
	}
	return ds, rep, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch <points.xlsx>",
	Short: "Match every row of a point spreadsheet and write the result spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, rep, err := runPoints(cmd, args[0])
		if err != nil {
			return err
		}
		rep.NearestPass(ds)
		header, rows := rep.Table()
		f, done, err := create(batchOut)
		if err != nil {
			return err
		}
		if err := sheet.WriteTable(f, header, rows); err != nil {
			_ = done()
			return err
		}
		if err := done(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d rows written to %s (run %s)\n", len(rep.Results), batchOut, rep.RunID)
		return nil
	},
}

var exportPointsCmd = &cobra.Command{
	Use:   "export-points <points.xlsx>",
	Short: "Write matched points as KML placemarks grouped by result code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rep, err := runPoints(cmd, args[0])
		if err != nil {
			return err
		}
		f, done, err := create(pointsOut)
		if err != nil {
			return err
		}
		if err := kml.WritePoints(f, rep.PointMarks()); err != nil {
			_ = done()
			return err
		}
		return done()
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "results.xlsx", "Output spreadsheet, - for stdout")
	exportPointsCmd.Flags().StringVarP(&pointsOut, "out", "o", "points.kml", "Output KML, - for stdout")
}
