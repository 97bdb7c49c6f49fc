//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/wordwrap"
	"github.com/tidwall/gjson"

	"trpc.group/trpc-go/trpc-cassette-go/render"
	"trpc.group/trpc-go/trpc-cassette-go/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	loadingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	alertStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	fieldStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	focusedStyle = fieldStyle.BorderForeground(lipgloss.Color("62"))
)

type updateMsg session.Update

type closedMsg struct{}

type submittedMsg struct {
	err error
}

// model is the Bubble Tea model of a rendering session.
type model struct {
	sess    *session.Session
	updates <-chan session.Update

	viewport viewport.Model
	ready    bool

	last   session.Update
	inputs []render.Fragment
	focus  int

	editing bool
	input   textinput.Model
	status  string
	closed  bool
}

func newModel(sess *session.Session, updates <-chan session.Update) *model {
	return &model{sess: sess, updates: updates, focus: -1}
}

func (m *model) Init() tea.Cmd {
	return m.waitUpdate()
}

// waitUpdate returns a command that waits for the next render pass.
func (m *model) waitUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// submit sends the edited value to the input's task handler.
func (m *model) submit(f render.Fragment, value string) tea.Cmd {
	return func() tea.Msg {
		raw, err := json.Marshal(value)
		if err == nil {
			err = m.sess.SetValue(context.Background(), f.Task, f.Input.Handler, raw)
		}
		return submittedMsg{err: err}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	if m.editing {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter":
				m.editing = false
				if m.focus < 0 || m.focus >= len(m.inputs) {
					m.status = "input is gone"
					return m, nil
				}
				m.status = "submitting..."
				return m, m.submit(m.inputs[m.focus], m.input.Value())
			case "esc":
				m.editing = false
				m.status = ""
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
		}
		if _, ok := msg.(tea.KeyMsg); ok {
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case updateMsg:
		m.apply(session.Update(msg))
		cmds = append(cmds, m.waitUpdate())

	case closedMsg:
		m.closed = true

	case submittedMsg:
		m.status = ""
		if msg.err != nil {
			m.status = msg.err.Error()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.cycle(1)
		case "shift+tab":
			m.cycle(-1)
		case "enter":
			if m.focus >= 0 && m.focus < len(m.inputs) {
				m.edit(m.inputs[m.focus])
				return m, textinput.Blink
			}
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		}

	case tea.WindowSizeMsg:
		headerHeight, footerHeight := 1, 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// apply takes a new render pass, keeping the focus on the same input when it
// is still shown.
func (m *model) apply(u session.Update) {
	var focused string
	if m.focus >= 0 && m.focus < len(m.inputs) {
		focused = m.inputs[m.focus].Task
	}
	m.last = u
	m.inputs = m.inputs[:0]
	m.focus = -1
	for _, f := range u.Fragments {
		if f.Kind != render.KindInput || f.Input == nil {
			continue
		}
		if f.Task == focused {
			m.focus = len(m.inputs)
		}
		m.inputs = append(m.inputs, f)
	}
	if m.focus < 0 && len(m.inputs) > 0 {
		m.focus = 0
	}
	m.refresh()
}

func (m *model) cycle(step int) {
	if len(m.inputs) == 0 {
		return
	}
	m.focus = ((m.focus+step)%len(m.inputs) + len(m.inputs)) % len(m.inputs)
	m.refresh()
}

func (m *model) edit(f render.Fragment) {
	m.editing = true
	m.input = textinput.New()
	m.input.Placeholder = f.Input.Placeholder
	m.input.SetValue(f.Input.Value)
	m.input.Focus()
	m.input.Width = max(20, m.viewport.Width-4)
	m.status = ""
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	focusedTask := ""
	if m.focus >= 0 && m.focus < len(m.inputs) {
		focusedTask = m.inputs[m.focus].Task
	}
	focus := -1
	for i, f := range m.last.Fragments {
		if f.Kind == render.KindInput && f.Task == focusedTask {
			focus = i
		}
	}
	m.viewport.SetContent(renderFragments(m.last.Fragments, m.viewport.Width, focus))
}

func (m *model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := titleStyle.Render(m.sess.Cassette().Title())
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, infoStyle.Render(line))

	var footer string
	switch {
	case m.editing:
		footer = labelStyle.Render("> ") + m.input.View() + "\n" +
			infoStyle.Render(" enter: submit │ esc: cancel ")
	default:
		state := "● LIVE"
		switch {
		case m.closed:
			state = "stopped"
		case m.last.Err != "":
			state = "error"
		case m.last.Halted:
			state = "waiting"
		case !m.last.Settled && m.last.Passes > 0:
			state = "unsettled"
		}
		info := fmt.Sprintf(" %s │ v%d ", state, m.last.Version)
		if m.status != "" {
			info += "│ " + m.status + " "
		}
		footer = infoStyle.Render(info) + "\n" +
			infoStyle.Render(" q: quit │ tab: next input │ enter: edit │ g/G: top/bottom ")
	}
	return header + "\n" + m.viewport.View() + "\n" + footer
}

// inProgress reports whether a fragment of u is still being produced.
func inProgress(u session.Update) bool {
	for _, f := range u.Fragments {
		if f.Progress || f.Kind == render.KindLoading {
			return true
		}
	}
	return false
}

// renderFragments lays out fragments top to bottom within width. The
// fragment at index focus, if an input, is highlighted.
func renderFragments(fragments []render.Fragment, width, focus int) string {
	if width <= 0 {
		width = 80
	}
	blocks := make([]string, 0, len(fragments))
	for i, f := range fragments {
		blocks = append(blocks, renderFragment(f, width, i == focus))
	}
	return strings.Join(blocks, "\n\n")
}

func renderFragment(f render.Fragment, width int, focused bool) string {
	switch f.Kind {
	case render.KindContent:
		text := wordwrap.String(f.Text, width)
		if f.Progress {
			text += progressStyle.Render(" ▍")
		}
		return text
	case render.KindLoading:
		return loadingStyle.Render(wordwrap.String(f.Text, width))
	case render.KindAlert:
		return alertStyle.Render(f.Title) + "\n" + wordwrap.String(f.Text, width)
	case render.KindInput:
		return renderInput(f, width, focused)
	case render.KindTable:
		return renderTable(f, width)
	default:
		return infoStyle.Render(fmt.Sprintf("[%s]", f.Kind))
	}
}

func renderInput(f render.Fragment, width int, focused bool) string {
	if f.Input == nil {
		return ""
	}
	value := f.Input.Value
	if value == "" {
		value = infoStyle.Render(f.Input.Placeholder)
	}
	style := fieldStyle
	if focused {
		style = focusedStyle
	}
	field := style.Width(max(10, width-lipgloss.Width(f.Input.Submit)-6)).Render(value)
	row := lipgloss.JoinHorizontal(lipgloss.Center, field, " ["+f.Input.Submit+"]")
	if f.Input.Label == "" {
		return row
	}
	return labelStyle.Render(f.Input.Label) + "\n" + row
}

// renderTable draws an array of objects as a table with the keys of the
// first element as columns. Other arrays are listed one element per line.
func renderTable(f render.Fragment, width int) string {
	data := gjson.ParseBytes(f.Data)
	items := data.Array()
	var b strings.Builder
	if f.Title != "" {
		b.WriteString(labelStyle.Render(f.Title))
		b.WriteByte('\n')
	}
	if len(items) == 0 || !items[0].IsObject() {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, wordwrap.String(item.String(), width))
		}
		b.WriteString(strings.Join(lines, "\n"))
		return b.String()
	}

	var headers []string
	items[0].ForEach(func(key, _ gjson.Result) bool {
		headers = append(headers, key.String())
		return true
	})
	t := table.New().Border(lipgloss.NormalBorder()).Headers(headers...).Width(width)
	for _, item := range items {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = item.Get(gjson.Escape(h)).String()
		}
		t.Row(row...)
	}
	b.WriteString(t.Render())
	return b.String()
}
