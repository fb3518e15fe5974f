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
	"encoding/json"
	"fmt"
	"os"

	"github.com/edgeo-scada/df1/pccc"
)

// printValues renders a read result in the selected output format.
func printValues(ft pccc.FileType, file, element uint16, value pccc.Value) {
	switch outputFmt {
	case "json":
		out := map[string]any{
			"address": fmt.Sprintf("%s%d:%d", ft, file, element),
			"values":  valueStrings(ft, value),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
	case "hex":
		for i, v := range valueRaw(value) {
			fmt.Printf("%s%d:%d\t0x%04X\n", ft, file, int(element)+i, v)
		}
	default:
		for i, v := range valueStrings(ft, value) {
			fmt.Printf("%s%d:%d\t%s\n", ft, file, int(element)+i, v)
		}
	}
}

// valueStrings formats each element of a read result.
func valueStrings(ft pccc.FileType, value pccc.Value) []string {
	var out []string
	switch s := value.(type) {
	case []int16:
		for _, v := range s {
			out = append(out, fmt.Sprintf("%d", v))
		}
	case []uint16:
		for _, v := range s {
			out = append(out, fmt.Sprintf("%d", v))
		}
	case []float32:
		for _, v := range s {
			out = append(out, fmt.Sprintf("%g", v))
		}
	case []pccc.Timer:
		for _, v := range s {
			out = append(out, fmt.Sprintf("PRE=%d ACC=%d EN=%t TT=%t DN=%t",
				v.Preset, v.Accumulator, v.EN, v.TT, v.DN))
		}
	case []pccc.CounterElem:
		for _, v := range s {
			out = append(out, fmt.Sprintf("PRE=%d ACC=%d CU=%t CD=%t DN=%t OV=%t UN=%t",
				v.Preset, v.Accumulator, v.CU, v.CD, v.DN, v.OV, v.UN))
		}
	case []pccc.Control:
		for _, v := range s {
			out = append(out, fmt.Sprintf("LEN=%d POS=%d EN=%t DN=%t ER=%t",
				v.Length, v.Position, v.EN, v.DN, v.ER))
		}
	case []pccc.PString:
		for i := range s {
			out = append(out, fmt.Sprintf("%q", s[i].String()))
		}
	}
	return out
}

// valueRaw returns one word per element for hex output: integer words as
// they are, floats converted to an integer, timers and counters their
// accumulator, controls their position, and strings their length.
func valueRaw(value pccc.Value) []uint16 {
	var out []uint16
	switch s := value.(type) {
	case []int16:
		for _, v := range s {
			out = append(out, uint16(v))
		}
	case []uint16:
		out = append(out, s...)
	case []float32:
		for _, v := range s {
			out = append(out, uint16(v))
		}
	case []pccc.Timer:
		for _, v := range s {
			out = append(out, uint16(v.Accumulator))
		}
	case []pccc.CounterElem:
		for _, v := range s {
			out = append(out, uint16(v.Accumulator))
		}
	case []pccc.Control:
		for _, v := range s {
			out = append(out, uint16(v.Position))
		}
	case []pccc.PString:
		for _, v := range s {
			out = append(out, uint16(v.Len))
		}
	}
	return out
}
