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

package df1cfg

import (
	"testing"
	"time"

	"github.com/edgeo-scada/df1/link"
)

const sample = `<?xml version="1.0"?>
<df1d_config>
  <connection>
    <name>plant-floor</name>
    <duplex>full</duplex>
    <error_detect>crc</error_detect>
    <device>/dev/ttyS0</device>
    <baud>19200</baud>
    <port>2101</port>
    <duplicate_detect>yes</duplicate_detect>
    <max_nak>5</max_nak>
    <max_enq>2</max_enq>
    <ack_timeout>750</ack_timeout>
  </connection>
  <connection>
    <name>lab</name>
    <duplex>slave</duplex>
    <error_detect>bcc</error_detect>
    <device>/dev/ttyUSB0</device>
    <baud>9600</baud>
    <port>2102</port>
  </connection>
</df1d_config>`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(cfg.Connections))
	}

	c := cfg.Connections[0]
	if c.Name != "plant-floor" {
		t.Errorf("name: %q", c.Name)
	}
	if c.Checksum != link.ChecksumCRC {
		t.Errorf("checksum: %v", c.Checksum)
	}
	if !c.DuplicateDetect {
		t.Error("duplicate_detect should be enabled")
	}
	if c.MaxNAK != 5 || c.MaxENQ != 2 {
		t.Errorf("max_nak/max_enq: %d/%d", c.MaxNAK, c.MaxENQ)
	}
	if c.ACKTimeout != 750*time.Millisecond {
		t.Errorf("ack_timeout: %v", c.ACKTimeout)
	}

	c = cfg.Connections[1]
	if c.Duplex != link.DuplexSlave {
		t.Errorf("duplex: %v", c.Duplex)
	}
	if c.Checksum != link.ChecksumBCC {
		t.Errorf("checksum: %v", c.Checksum)
	}
	if c.DuplicateDetect {
		t.Error("duplicate_detect should default off")
	}
	if c.MaxNAK != DefaultMaxNAK || c.MaxENQ != DefaultMaxENQ {
		t.Errorf("defaults not applied: %d/%d", c.MaxNAK, c.MaxENQ)
	}
	if c.ACKTimeout != DefaultACKTimeout {
		t.Errorf("default ack_timeout not applied: %v", c.ACKTimeout)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad duplex":    `<df1d_config><connection><name>x</name><duplex>both</duplex><error_detect>crc</error_detect><device>/dev/ttyS0</device><baud>9600</baud><port>2101</port></connection></df1d_config>`,
		"bad checksum":  `<df1d_config><connection><name>x</name><error_detect>parity</error_detect><device>/dev/ttyS0</device><baud>9600</baud><port>2101</port></connection></df1d_config>`,
		"bad baud":      `<df1d_config><connection><name>x</name><error_detect>crc</error_detect><device>/dev/ttyS0</device><baud>115200</baud><port>2101</port></connection></df1d_config>`,
		"missing name":  `<df1d_config><connection><error_detect>crc</error_detect><device>/dev/ttyS0</device><baud>9600</baud><port>2101</port></connection></df1d_config>`,
		"bad port":      `<df1d_config><connection><name>x</name><error_detect>crc</error_detect><device>/dev/ttyS0</device><baud>9600</baud><port>0</port></connection></df1d_config>`,
		"empty config":  `<df1d_config></df1d_config>`,
		"duplicate name": `<df1d_config>` +
			`<connection><name>x</name><error_detect>crc</error_detect><device>/dev/ttyS0</device><baud>9600</baud><port>2101</port></connection>` +
			`<connection><name>x</name><error_detect>crc</error_detect><device>/dev/ttyS1</device><baud>9600</baud><port>2102</port></connection>` +
			`</df1d_config>`,
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
