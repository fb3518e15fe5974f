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

// df1d multiplexes Allen-Bradley DF1 serial lines among TCP clients
// addressed by node number. One connection element in the configuration
// file describes each line.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo-scada/df1/internal/df1cfg"
	"github.com/edgeo-scada/df1/internal/serialport"
	"github.com/edgeo-scada/df1/link"
)

const version = "1.0.0"

var (
	debug      bool
	foreground bool
	pidFile    string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "df1d <config file>",
	Short:   "Allen-Bradley DF1 link layer service",
	Long: `df1d owns one or more DF1 serial lines and multiplexes each among TCP
clients by logical node address. Clients register with a node address and
name, then exchange framed application messages; the daemon handles DF1
framing, checksums, ACK/NAK retries, ENQ recovery, and duplicate
detection on the line.

Signals: SIGTERM and SIGINT shut down cleanly; SIGHUP reloads the
configuration, starting added connections and closing removed ones.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in the foreground, logging to stderr")
	rootCmd.Flags().StringVarP(&pidFile, "pid-file", "p", "", "write the process id to this file")

	viper.SetEnvPrefix("DF1D")
	viper.AutomaticEnv()
	viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	viper.BindPFlag("pid-file", rootCmd.Flags().Lookup("pid-file"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	level := slog.LevelInfo
	if debug || viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	if foreground {
		logger = slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: level}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	slog.SetDefault(logger)

	cfg, err := df1cfg.Load(cfgFile)
	if err != nil {
		logger.Error("configuration error", slog.String("error", err.Error()))
		return err
	}

	if pf := viper.GetString("pid-file"); pf != "" {
		pidFile = pf
	}
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
			logger.Error("cannot write pid file", slog.String("error", err.Error()))
			return err
		}
		defer os.Remove(pidFile)
	}

	svc := link.NewService(logger)
	started := map[string]df1cfg.Connection{}
	for _, cc := range cfg.Connections {
		if err := startConn(svc, cc); err != nil {
			logger.Error("failed to start connection",
				slog.String("conn", cc.Name), slog.String("error", err.Error()))
			continue
		}
		started[cc.Name] = cc
	}
	logger.Info("df1d started",
		slog.String("version", version),
		slog.Int("connections", len(svc.Names())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			logger.Info("shutting down", slog.String("signal", sig.String()))
			break
		}
		logger.Info("reloading configuration")
		newCfg, err := df1cfg.Load(cfgFile)
		if err != nil {
			logger.Error("reload failed, keeping current configuration",
				slog.String("error", err.Error()))
			continue
		}
		reload(svc, started, newCfg)
	}

	svc.CloseAll()
	logger.Info("df1d stopped")
	return nil
}

// startConn opens a connection's serial line and listening socket and
// hands both to the service.
func startConn(svc *link.Service, cc df1cfg.Connection) error {
	line, err := serialport.Open(cc.Device, cc.Baud)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cc.Port))
	if err != nil {
		line.Close()
		return err
	}
	opts := append(cc.Options(), link.WithLogger(logger))
	if _, err := svc.Add(cc.Name, line, listener, opts...); err != nil {
		line.Close()
		listener.Close()
		return err
	}
	return nil
}

// reload diffs the new configuration against the running set: unknown
// connections are started, removed ones are closed. Changed settings on
// a surviving connection take effect only after a restart of that
// connection's element (remove, HUP, re-add, HUP).
func reload(svc *link.Service, started map[string]df1cfg.Connection, cfg *df1cfg.Config) {
	want := map[string]df1cfg.Connection{}
	for _, cc := range cfg.Connections {
		want[cc.Name] = cc
	}
	for name := range started {
		if _, ok := want[name]; !ok {
			svc.Remove(name)
			delete(started, name)
		}
	}
	for name, cc := range want {
		if _, ok := started[name]; ok {
			continue
		}
		if err := startConn(svc, cc); err != nil {
			logger.Error("failed to start connection",
				slog.String("conn", name), slog.String("error", err.Error()))
			continue
		}
		started[name] = cc
	}
}
