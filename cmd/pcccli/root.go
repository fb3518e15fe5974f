// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo-scada/df1/pccc"
)

var (
	host       string
	port       int
	srcNode    uint8
	dstNode    uint8
	clientName string
	timeout    time.Duration
	outputFmt  string
	verbose    bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pcccli",
	Short: "A PCCC client for Allen-Bradley processors over a df1d service",
	Long: `pcccli sends PCCC commands to PLC processors through a running df1d
link layer service.

Examples:
  # Read 10 integers from N7:0 on node 1
  pcccli read n 7 0 -c 10 --dnode 1

  # Write three values to N7:5
  pcccli write n 7 5 100 200 300 --dnode 1

  # Verify the link with a 32 byte echo
  pcccli echo -n 32 --dnode 1

  # Live register monitor
  pcccli interactive`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&host, "host", "H", "localhost", "df1d service host")
	pf.IntVarP(&port, "port", "p", 2101, "df1d service port")
	pf.Uint8Var(&srcNode, "node", 2, "our DF1 node address")
	pf.Uint8Var(&dstNode, "dnode", 1, "destination node address")
	pf.StringVar(&clientName, "name", "pcccli", "client name registered with the service")
	pf.DurationVarP(&timeout, "timeout", "t", 5*time.Second, "command timeout")
	pf.StringVarP(&outputFmt, "output", "o", "table", "output format: table, json, hex")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.SetEnvPrefix("PCCC")
	viper.AutomaticEnv()
	viper.BindPFlag("host", pf.Lookup("host"))
	viper.BindPFlag("port", pf.Lookup("port"))

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(interactiveCmd)
}

// connect opens a blocking-mode session with the df1d service.
func connect() (*pccc.Session, error) {
	s, err := pccc.NewSession(srcNode, timeout, 1, pccc.WithSessionLogger(logger))
	if err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
	if err := s.Connect(addr, clientName); err != nil {
		return nil, err
	}
	return s, nil
}

// fileTypeFromLetter maps the CLI's file-type letters to FileType.
func fileTypeFromLetter(letter string) (pccc.FileType, error) {
	switch letter {
	case "n":
		return pccc.FileInteger, nil
	case "b":
		return pccc.FileBinary, nil
	case "f":
		return pccc.FileFloat, nil
	case "t":
		return pccc.FileTimer, nil
	case "c":
		return pccc.FileCounter, nil
	case "r":
		return pccc.FileControl, nil
	case "st":
		return pccc.FileString, nil
	case "s":
		return pccc.FileStatus, nil
	default:
		return 0, fmt.Errorf("unknown file type %q (n, b, f, t, c, r, st, s)", letter)
	}
}
