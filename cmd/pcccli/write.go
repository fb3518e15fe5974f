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

var writeMask uint16

var writeCmd = &cobra.Command{
	Use:   "write <type> <file> <element> <value>...",
	Short: "Write data table elements",
	Long: `Write values to a processor data file using a protected typed logical
write. Supported types: n (integer), b (binary), f (float), s (status),
st (string). With --mask only bit positions set in the mask are
modified, and the type must be word shaped (n, b, s).`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ft, err := fileTypeFromLetter(args[0])
		if err != nil {
			return err
		}
		file, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid file number %q", args[1])
		}
		element, err := strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid element number %q", args[2])
		}
		value, err := parseValueSlice(ft, args[3:])
		if err != nil {
			return err
		}

		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()

		if cmd.Flags().Changed("mask") {
			err = s.ProtectedTypedLogicalWriteWithMask(nil, dstNode, value, writeMask, ft, uint16(file), uint16(element), 0)
		} else {
			err = s.ProtectedTypedLogicalWrite3AddressFields(nil, dstNode, value, ft, uint16(file), uint16(element), 0)
		}
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d element(s) to %s%d:%d\n", len(args)-3, ft, file, element)
		return nil
	},
}

func init() {
	writeCmd.Flags().Uint16Var(&writeMask, "mask", 0, "bit mask for a masked write")
}

// parseValueSlice converts the command line values into the host slice
// for a file type.
func parseValueSlice(ft pccc.FileType, args []string) (pccc.Value, error) {
	switch ft {
	case pccc.FileInteger:
		out := make([]int16, len(args))
		for i, a := range args {
			v, err := strconv.ParseInt(a, 0, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid integer %q", a)
			}
			out[i] = int16(v)
		}
		return out, nil
	case pccc.FileBinary, pccc.FileStatus:
		out := make([]uint16, len(args))
		for i, a := range args {
			v, err := strconv.ParseUint(a, 0, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid word %q", a)
			}
			out[i] = uint16(v)
		}
		return out, nil
	case pccc.FileFloat:
		out := make([]float32, len(args))
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid float %q", a)
			}
			out[i] = float32(v)
		}
		return out, nil
	case pccc.FileString:
		out := make([]pccc.PString, len(args))
		for i, a := range args {
			out[i].SetText(a)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("file type %s is not writable from the command line", ft)
	}
}
