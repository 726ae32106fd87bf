package main

import (
	"fmt"
	"os"
	"path/filepath"

	"zone-match/internal/config"
	"zone-match/internal/loader"
	"zone-match/internal/logger"
	"zone-match/internal/zone"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	zonesPath string
	verbose   bool
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "zonectl",
	Short:        "Match survey points against KML zones and convert zone files",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("data", "env", ".env"))
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
		logger.Setup()
		cfg = config.Load()
		if zonesPath == "" {
			zonesPath = cfg.ZonesPath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&zonesPath, "zones", "", "Zone file (.kml, .kmz or .xlsx); defaults to ZONES_PATH")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(convertCmd, pointCmd, batchCmd, exportKMLCmd, exportPointsCmd)
}

// loadZones：装载 --zones 指定的数据集
func loadZones() (*zone.Dataset, error) {
	if zonesPath == "" {
		return nil, fmt.Errorf("no zone file: pass --zones or set ZONES_PATH")
	}
	return loader.File(zonesPath)
}

// create：输出路径为 "-" 时写标准输出
func create(path string) (*os.File, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
