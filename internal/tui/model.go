package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"carbon-scribe/onboarding-tracker/internal/onboarding"
)

const (
	barWidth     = 30
	eventBacklog = 16
)

type changeMsg struct {
	event onboarding.ChangeEvent
}

// Model renders one tracker and forwards key presses to it
type Model struct {
	tracker     *onboarding.Tracker
	events      chan onboarding.ChangeEvent
	unsubscribe func()

	title     string
	state     onboarding.ProgressState
	cursor    int
	status    string
	statusErr bool
	width     int
	height    int
}

// New subscribes to tracker. Call Close when the program exits.
func New(tracker *onboarding.Tracker, title string) Model {
	events := make(chan onboarding.ChangeEvent, eventBacklog)
	unsubscribe := tracker.Subscribe(func(event onboarding.ChangeEvent) {
		select {
		case events <- event:
		default:
			// the view re-queries on the next event anyway
		}
	})

	state := tracker.State()
	return Model{
		tracker:     tracker,
		events:      events,
		unsubscribe: unsubscribe,
		title:       title,
		state:       state,
		cursor:      min(state.CurrentIndex, state.TotalSteps-1),
	}
}

// Close removes the tracker subscription
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.events)
}

func waitForChange(events <-chan onboarding.ChangeEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return changeMsg{event: event}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changeMsg:
		m.state = m.tracker.State()
		return m, waitForChange(m.events)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Steps)-1 {
			m.cursor++
		}
	case "enter", " ", "space":
		m = m.apply(m.tracker.Advance())
	case "c":
		m = m.apply(m.tracker.CompleteStep(m.cursorStepID()))
	case "s":
		m = m.apply(m.tracker.SkipStep(m.cursorStepID()))
	case "r":
		m = m.apply(m.tracker.Reset())
		m.cursor = 0
	}
	return m, nil
}

func (m Model) cursorStepID() string {
	if m.cursor < 0 || m.cursor >= len(m.state.Steps) {
		return ""
	}
	return m.state.Steps[m.cursor].ID
}

// apply shows the outcome of a mutation and follows the current step
func (m Model) apply(res onboarding.Result, err error) Model {
	m.state = res.State
	switch {
	case err != nil:
		m.status = err.Error()
		m.statusErr = true
	case res.Warning != nil:
		m.status = res.Warning.Error()
		m.statusErr = true
	default:
		m.status = ""
		m.statusErr = false
		if !m.state.Done {
			m.cursor = m.state.CurrentIndex
		}
	}
	return m
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.state.PercentComplete))
	b.WriteString(fmt.Sprintf(" %3d%%\n\n", m.state.PercentComplete))

	for i, step := range m.state.Steps {
		b.WriteString(m.renderStep(i, step))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.status != "" && m.statusErr:
		b.WriteString(errorStyle.Render(m.status))
	case m.state.Done:
		b.WriteString(doneStyle.Render("All steps finished"))
	default:
		b.WriteString(statusStyle.Render(fmt.Sprintf("Step %d of %d", m.state.CurrentIndex+1, m.state.TotalSteps)))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render(m.footer()))

	box := boxStyle.Render(b.String())
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// footer hides complete and skip when the step under the cursor is finished
func (m Model) footer() string {
	if m.cursor >= 0 && m.cursor < len(m.state.Steps) && m.state.Steps[m.cursor].IsTerminal() {
		return "enter advance · r reset · q quit"
	}
	return "enter advance · c complete · s skip · r reset · q quit"
}

func (m Model) renderStep(i int, step onboarding.Step) string {
	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("> ")
	}

	name := step.Label
	if name == "" {
		name = step.ID
	}

	var marker, label string
	switch step.Status {
	case onboarding.StatusCompleted:
		marker = completedStyle.Render("[x]")
		label = completedStyle.Render(name)
	case onboarding.StatusSkipped:
		marker = skippedStyle.Render("[-]")
		label = skippedStyle.Render(name)
	default:
		marker = pendingStyle.Render("[ ]")
		label = pendingStyle.Render(name)
		if !m.state.Done && i == m.state.CurrentIndex {
			label = currentStyle.Render(name)
		}
	}
	return pointer + marker + " " + label
}

func renderBar(percent int) string {
	filled := percent * barWidth / 100
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}
