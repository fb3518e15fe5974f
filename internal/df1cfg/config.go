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

// Package df1cfg parses the df1d XML configuration file: a df1d_config
// document with one connection element per serial line.
package df1cfg

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/edgeo-scada/df1/internal/serialport"
	"github.com/edgeo-scada/df1/link"
)

// Connection is one parsed and validated connection element.
type Connection struct {
	Name            string
	Duplex          link.DuplexMode
	Checksum        link.ChecksumMode
	Device          string
	Baud            int
	Port            int
	DuplicateDetect bool
	MaxNAK          uint
	MaxENQ          uint
	ACKTimeout      time.Duration
}

// Config is the parsed configuration file.
type Config struct {
	Connections []Connection
}

type xmlConfig struct {
	XMLName     xml.Name  `xml:"df1d_config"`
	Connections []xmlConn `xml:"connection"`
}

type xmlConn struct {
	Name            string `xml:"name"`
	Duplex          string `xml:"duplex"`
	ErrorDetect     string `xml:"error_detect"`
	Device          string `xml:"device"`
	Baud            int    `xml:"baud"`
	Port            int    `xml:"port"`
	DuplicateDetect string `xml:"duplicate_detect"`
	MaxNAK          *int   `xml:"max_nak"`
	MaxENQ          *int   `xml:"max_enq"`
	ACKTimeout      *int   `xml:"ack_timeout"`
}

// Defaults applied when a connection element omits an optional child.
const (
	DefaultMaxNAK     = 3
	DefaultMaxENQ     = 3
	DefaultACKTimeout = 500 * time.Millisecond
)

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("df1cfg: %w", err)
	}
	return Parse(data)
}

// Parse validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var raw xmlConfig
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("df1cfg: invalid XML: %w", err)
	}
	if len(raw.Connections) == 0 {
		return nil, fmt.Errorf("df1cfg: no connection elements")
	}
	cfg := &Config{}
	seen := map[string]bool{}
	for i := range raw.Connections {
		conn, err := parseConn(&raw.Connections[i])
		if err != nil {
			return nil, err
		}
		if seen[conn.Name] {
			return nil, fmt.Errorf("df1cfg: duplicate connection name %q", conn.Name)
		}
		seen[conn.Name] = true
		cfg.Connections = append(cfg.Connections, *conn)
	}
	return cfg, nil
}

func parseConn(raw *xmlConn) (*Connection, error) {
	conn := &Connection{
		Name:       raw.Name,
		Device:     raw.Device,
		Baud:       raw.Baud,
		Port:       raw.Port,
		MaxNAK:     DefaultMaxNAK,
		MaxENQ:     DefaultMaxENQ,
		ACKTimeout: DefaultACKTimeout,
	}
	if conn.Name == "" {
		return nil, fmt.Errorf("df1cfg: connection missing name")
	}
	if conn.Device == "" {
		return nil, fmt.Errorf("df1cfg: [%s] missing device", conn.Name)
	}
	switch raw.Duplex {
	case "full", "":
		conn.Duplex = link.DuplexFull
	case "master":
		conn.Duplex = link.DuplexMaster
	case "slave":
		conn.Duplex = link.DuplexSlave
	default:
		return nil, fmt.Errorf("df1cfg: [%s] invalid duplex %q", conn.Name, raw.Duplex)
	}
	switch raw.ErrorDetect {
	case "crc":
		conn.Checksum = link.ChecksumCRC
	case "bcc":
		conn.Checksum = link.ChecksumBCC
	default:
		return nil, fmt.Errorf("df1cfg: [%s] invalid error_detect %q", conn.Name, raw.ErrorDetect)
	}
	if !serialport.ValidRate(conn.Baud) {
		return nil, fmt.Errorf("df1cfg: [%s] invalid baud %d", conn.Name, conn.Baud)
	}
	if conn.Port < 1 || conn.Port > 65535 {
		return nil, fmt.Errorf("df1cfg: [%s] invalid port %d", conn.Name, conn.Port)
	}
	switch raw.DuplicateDetect {
	case "yes":
		conn.DuplicateDetect = true
	case "no", "":
	default:
		return nil, fmt.Errorf("df1cfg: [%s] invalid duplicate_detect %q", conn.Name, raw.DuplicateDetect)
	}
	if raw.MaxNAK != nil {
		if *raw.MaxNAK < 0 || *raw.MaxNAK > 255 {
			return nil, fmt.Errorf("df1cfg: [%s] max_nak out of range", conn.Name)
		}
		conn.MaxNAK = uint(*raw.MaxNAK)
	}
	if raw.MaxENQ != nil {
		if *raw.MaxENQ < 0 || *raw.MaxENQ > 255 {
			return nil, fmt.Errorf("df1cfg: [%s] max_enq out of range", conn.Name)
		}
		conn.MaxENQ = uint(*raw.MaxENQ)
	}
	if raw.ACKTimeout != nil {
		if *raw.ACKTimeout < 1 {
			return nil, fmt.Errorf("df1cfg: [%s] ack_timeout must be positive", conn.Name)
		}
		conn.ACKTimeout = time.Duration(*raw.ACKTimeout) * time.Millisecond
	}
	return conn, nil
}

// Options translates a connection's settings into link options.
func (c *Connection) Options() []link.Option {
	return []link.Option{
		link.WithChecksum(c.Checksum),
		link.WithDuplex(c.Duplex),
		link.WithMaxNAK(c.MaxNAK),
		link.WithMaxENQ(c.MaxENQ),
		link.WithACKTimeout(c.ACKTimeout),
		link.WithDuplicateDetect(c.DuplicateDetect),
	}
}
