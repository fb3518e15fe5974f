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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edgeo-scada/df1/pccc"
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Diagnostic and maintenance commands",
}

var fileInfoCmd = &cobra.Command{
	Use:   "fileinfo <file>",
	Short: "Read a SLC data file's type and size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("invalid file number %q", args[0])
		}
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()

		var info pccc.SLCFileInfo
		if err := s.ReadSLCFileInfo(nil, dstNode, &info, uint8(num)); err != nil {
			return err
		}
		fmt.Printf("file %d: type %s, %d element(s), %d byte(s)\n",
			num, info.Type, info.Elements, info.Bytes)
		return nil
	},
}

var modeFamily string

var modeCmd = &cobra.Command{
	Use:   "mode <prog|run|test-cont|test-single|test-debug|rem-test|rem-run>",
	Short: "Change the processor's operating mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode(args[0])
		if err != nil {
			return err
		}
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()

		switch modeFamily {
		case "slc":
			err = s.ChangeModeSLC500(nil, dstNode, mode)
		case "micrologix":
			err = s.ChangeModeMicroLogix1000(nil, dstNode, mode)
		case "plc5":
			err = s.SetCPUMode(nil, dstNode, mode)
		default:
			return fmt.Errorf("unknown processor family %q (slc, micrologix, plc5)", modeFamily)
		}
		if err != nil {
			return err
		}
		fmt.Printf("node %d mode changed to %s\n", dstNode, args[0])
		return nil
	},
}

var disableForcesCmd = &cobra.Command{
	Use:   "disable-forces",
	Short: "Disable I/O forcing on the processor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.DisableForces(nil, dstNode); err != nil {
			return err
		}
		fmt.Printf("forces disabled on node %d\n", dstNode)
		return nil
	},
}

var linkParamCmd = &cobra.Command{
	Use:   "linkparam [value]",
	Short: "Read or set the DH-485 maximum solicit address",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) == 0 {
			var max uint8
			if err := s.ReadLinkParam(nil, dstNode, &max); err != nil {
				return err
			}
			fmt.Printf("maximum solicit address: %d\n", max)
			return nil
		}
		v, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[0])
		}
		if err := s.SetLinkParam(nil, dstNode, uint8(v)); err != nil {
			return err
		}
		fmt.Printf("maximum solicit address set to %d\n", v)
		return nil
	},
}

var setVarsCmd = &cobra.Command{
	Use:   "setvars <cycles> <naks> <enqs>",
	Short: "Set an interface module's timeout, NAK, and ENQ limits",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vals := make([]uint8, 3)
		for i, a := range args {
			v, err := strconv.ParseUint(a, 10, 8)
			if err != nil {
				return fmt.Errorf("invalid value %q", a)
			}
			vals[i] = uint8(v)
		}
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SetVariables(nil, dstNode, vals[0], vals[1], vals[2]); err != nil {
			return err
		}
		fmt.Println("interface variables set")
		return nil
	},
}

func parseMode(name string) (pccc.Mode, error) {
	switch name {
	case "prog":
		return pccc.ModeProgram, nil
	case "run":
		return pccc.ModeRun, nil
	case "test-cont":
		return pccc.ModeTestContinuous, nil
	case "test-single":
		return pccc.ModeTestSingle, nil
	case "test-debug":
		return pccc.ModeTestDebug, nil
	case "rem-test":
		return pccc.ModeRemoteTest, nil
	case "rem-run":
		return pccc.ModeRemoteRun, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", name)
	}
}

func init() {
	modeCmd.Flags().StringVar(&modeFamily, "family", "slc", "processor family: slc, micrologix, plc5")
	diagCmd.AddCommand(fileInfoCmd)
	diagCmd.AddCommand(modeCmd)
	diagCmd.AddCommand(disableForcesCmd)
	diagCmd.AddCommand(linkParamCmd)
	diagCmd.AddCommand(setVarsCmd)
}
