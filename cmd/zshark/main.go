// Command zshark runs the offline PCAP anomaly analysis engine against
// a single capture file and prints a human-readable summary followed by
// the full AnalysisResult as JSON.
//
// Flag parsing here is deliberately shallow — the engine's Non-goals
// exclude a full CLI argument-parsing surface — but a complete repo
// still needs a runnable entry point, so this wires the library up with
// github.com/spf13/cobra, the same CLI framework the pack's other
// larger Go repositories (the phenix config loader) build on.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/evilsocket/islazy/tui"
	"github.com/spf13/cobra"

	"github.com/Delta-Sec/Z-Shark/internal/analyzer"
	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/xlog"
)

var (
	profile    string
	debug      bool
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "zshark <capture-file>",
		Short: "Offline PCAP anomaly analysis engine",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	root.Flags().StringVar(&profile, "profile", "default", "analysis profile label")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.Flags().StringVar(&configPath, "config", "", "path to a JSON configuration file (defaults to the built-in configuration)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, args []string) error {
	if debug {
		xlog.SetDebug()
	}

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	cfg.AnalysisProfile = profile

	a, err := analyzer.New(cfg)
	if err != nil {
		return err
	}

	result, err := a.AnalyzePCAP(args[0])
	if err != nil {
		return err
	}

	printSummary(result)

	if debug {
		xlog.For("cmd").Debugw("full result", "dump", spew.Sdump(result))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printSummary(result *analyzer.AnalysisResult) {
	fmt.Printf("capture: %s\n", result.PCAPPath)
	fmt.Printf("packets: %d  bytes: %d  windows: %d\n\n", result.TotalPackets, result.TotalBytes, len(result.WindowStats))

	if len(result.Detections) > 0 {
		rows := make([][]string, 0, len(result.Detections))
		for _, d := range result.Detections {
			rows = append(rows, []string{
				d.Label,
				d.ModelName,
				fmt.Sprintf("%.2f", d.Severity),
				d.Timestamp.Format("15:04:05"),
			})
		}
		tui.Table(os.Stdout, []string{"Label", "Model", "Severity", "Window End"}, rows)
		fmt.Println()
	}

	if len(result.TopSourceIPs) > 0 {
		rows := make([][]string, 0, len(result.TopSourceIPs))
		for _, ip := range result.TopSourceIPs {
			rows = append(rows, []string{ip.IP, fmt.Sprintf("%d", ip.Packets), fmt.Sprintf("%d", ip.Bytes)})
		}
		tui.Table(os.Stdout, []string{"Source IP", "Packets", "Bytes"}, rows)
		fmt.Println()
	}
}
