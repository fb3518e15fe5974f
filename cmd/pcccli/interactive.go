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
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/edgeo-scada/df1/pccc"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Live register monitor",
	Long: `Open a terminal UI that polls a data table address and displays its
values live. Press c to copy the current values to the clipboard, q to
quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := newMonitorModel()
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	addrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

type monitorPhase int

const (
	phaseForm monitorPhase = iota
	phasePoll
)

type pollMsg struct {
	values []string
	err    error
}

type tickMsg time.Time

type monitorModel struct {
	phase monitorPhase
	form  *huh.Form

	typeLetter string
	fileStr    string
	elementStr string
	countStr   string

	session  *pccc.Session
	fileType pccc.FileType
	file     uint16
	element  uint16
	count    int

	values  []string
	lastErr error
	updated time.Time
	status  string
}

func newMonitorModel() *monitorModel {
	m := &monitorModel{
		phase:      phaseForm,
		typeLetter: "n",
		fileStr:    "7",
		elementStr: "0",
		countStr:   "1",
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("File type").
				Options(
					huh.NewOption("Integer (N)", "n"),
					huh.NewOption("Binary (B)", "b"),
					huh.NewOption("Float (F)", "f"),
					huh.NewOption("Timer (T)", "t"),
					huh.NewOption("Counter (C)", "c"),
					huh.NewOption("Control (R)", "r"),
					huh.NewOption("String (ST)", "st"),
					huh.NewOption("Status (S)", "s"),
				).
				Value(&m.typeLetter),
			huh.NewInput().
				Title("File number").
				Value(&m.fileStr),
			huh.NewInput().
				Title("Element").
				Value(&m.elementStr),
			huh.NewInput().
				Title("Elements to monitor").
				Value(&m.countStr),
		),
	)
	return m
}

func (m *monitorModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.phase == phaseForm {
		formModel, cmd := m.form.Update(msg)
		m.form = formModel.(*huh.Form)
		switch m.form.State {
		case huh.StateCompleted:
			if err := m.applyForm(); err != nil {
				m.lastErr = err
				return m, tea.Quit
			}
			m.phase = phasePoll
			return m, tea.Batch(m.poll, tick())
		case huh.StateAborted:
			return m, tea.Quit
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.session != nil {
				m.session.Close()
			}
			return m, tea.Quit
		case "c":
			if err := clipboard.WriteAll(strings.Join(m.values, "\n")); err != nil {
				m.status = "clipboard: " + err.Error()
			} else {
				m.status = "values copied to clipboard"
			}
		case "r":
			return m, m.poll
		}
	case tickMsg:
		return m, tea.Batch(m.poll, tick())
	case pollMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.values = msg.values
			m.updated = time.Now()
		}
	}
	return m, nil
}

func (m *monitorModel) View() string {
	if m.phase == phaseForm {
		return m.form.View()
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Monitoring %s%d:%d on node %d", m.fileType, m.file, m.element, dstNode)))
	b.WriteString("\n\n")
	if m.lastErr != nil {
		b.WriteString(errStyle.Render("error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	for i, v := range m.values {
		addr := addrStyle.Render(fmt.Sprintf("%s%d:%d", m.fileType, m.file, int(m.element)+i))
		b.WriteString(fmt.Sprintf("%s  %s\n", addr, valueStyle.Render(v)))
	}
	b.WriteString("\n")
	if !m.updated.IsZero() {
		b.WriteString(statusStyle.Render("updated " + m.updated.Format("15:04:05")))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("c copy · r refresh · q quit"))
	return b.String()
}

// applyForm validates the form fields and opens the session.
func (m *monitorModel) applyForm() error {
	ft, err := fileTypeFromLetter(m.typeLetter)
	if err != nil {
		return err
	}
	file, err := strconv.ParseUint(m.fileStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid file number %q", m.fileStr)
	}
	element, err := strconv.ParseUint(m.elementStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid element %q", m.elementStr)
	}
	count, err := strconv.Atoi(m.countStr)
	if err != nil || count < 1 {
		return fmt.Errorf("invalid element count %q", m.countStr)
	}
	s, err := connect()
	if err != nil {
		return err
	}
	m.session = s
	m.fileType = ft
	m.file = uint16(file)
	m.element = uint16(element)
	m.count = count
	return nil
}

// poll performs one blocking read of the monitored address.
func (m *monitorModel) poll() tea.Msg {
	value := newValueSlice(m.fileType, m.count)
	err := m.session.ProtectedTypedLogicalRead3AddressFields(nil, dstNode, value, m.fileType, m.file, m.element, 0)
	if err != nil {
		return pollMsg{err: err}
	}
	return pollMsg{values: valueStrings(m.fileType, value)}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
