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
	"time"

	"github.com/spf13/cobra"
)

var (
	echoBytes  int
	echoRepeat int
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Verify the link with an echo command",
	Long: `Send an echo command carrying a test pattern to the destination node's
interface module and verify the data comes back unchanged. SLC 500,
5/01, and 5/02 processors accept at most 95 bytes per echo.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if echoBytes < 1 || echoBytes > 243 {
			return fmt.Errorf("echo size must be 1-243 bytes")
		}
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()

		data := make([]byte, echoBytes)
		for i := range data {
			data[i] = byte(i)
		}
		for n := 0; n < echoRepeat; n++ {
			start := time.Now()
			if err := s.Echo(nil, dstNode, data); err != nil {
				return err
			}
			fmt.Printf("echo %d bytes to node %d: ok in %s\n",
				echoBytes, dstNode, time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	echoCmd.Flags().IntVarP(&echoBytes, "bytes", "n", 16, "number of bytes to echo (1-243)")
	echoCmd.Flags().IntVarP(&echoRepeat, "repeat", "r", 1, "number of echo round trips")
}
