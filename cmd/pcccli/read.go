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

var readCount int

var readCmd = &cobra.Command{
	Use:   "read <type> <file> <element>",
	Short: "Read data table elements",
	Long: `Read elements from a processor data file using a protected typed
logical read. The type is a file-type letter: n (integer), b (binary),
f (float), t (timer), c (counter), r (control), st (string),
s (status).`,
	Args: cobra.ExactArgs(3),
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

		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Close()

		value := newValueSlice(ft, readCount)
		err = s.ProtectedTypedLogicalRead3AddressFields(nil, dstNode, value, ft, uint16(file), uint16(element), 0)
		if err != nil {
			return err
		}
		printValues(ft, uint16(file), uint16(element), value)
		return nil
	},
}

func init() {
	readCmd.Flags().IntVarP(&readCount, "count", "c", 1, "number of elements to read")
}

// newValueSlice allocates the host slice matching a file type.
func newValueSlice(ft pccc.FileType, n int) pccc.Value {
	switch ft {
	case pccc.FileInteger:
		return make([]int16, n)
	case pccc.FileBinary, pccc.FileStatus:
		return make([]uint16, n)
	case pccc.FileFloat:
		return make([]float32, n)
	case pccc.FileTimer:
		return make([]pccc.Timer, n)
	case pccc.FileCounter:
		return make([]pccc.CounterElem, n)
	case pccc.FileControl:
		return make([]pccc.Control, n)
	case pccc.FileString:
		return make([]pccc.PString, n)
	}
	return nil
}
