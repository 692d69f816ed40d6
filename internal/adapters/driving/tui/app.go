// Package tui provides the interactive terminal interface. It follows
// the Elm architecture: the model is a pure function of the latest
// controller snapshot plus local view state (cursor, input, help).
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driving"
)

// App is the TUI application model. It implements tea.Model.
// All search state lives in the controller; the app renders the last
// published snapshot and translates key presses into controller calls.
type App struct {
	controller driving.SearchController

	styles *Styles
	keys   *KeyMap
	input  textinput.Model
	spin   spinner.Model
	help   help.Model

	snap   driving.Snapshot
	cursor int
	err    error

	width    int
	height   int
	ready    bool
	showHelp bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates the TUI application around a search controller.
func NewApp(controller driving.SearchController) *App {
	input := textinput.New()
	input.Placeholder = "image path or free-text description"
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &App{
		controller: controller,
		styles:     DefaultStyles(),
		keys:       DefaultKeyMap(),
		input:      input,
		spin:       spin,
		help:       help.New(),
		snap:       controller.Snapshot(),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.spin.Tick,
		tea.SetWindowTitle("microsearch"),
		a.loadBackground(),
	)
}

// loadBackground fetches the filter vocabulary and probes health once
// at startup. Both are best-effort.
func (a *App) loadBackground() tea.Cmd {
	ctrl := a.controller
	return func() tea.Msg {
		ctrl.LoadFilterOptions(context.Background())
		ctrl.CheckHealth(context.Background())
		return nil
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		return a, nil

	case SnapshotMsg:
		a.snap = driving.Snapshot(msg)
		a.clampCursor()
		return a, nil

	case errMsg:
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	return a, nil
}

func (a *App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.snap.State {
	case domain.StateIdle:
		return a.updateIdle(msg)
	case domain.StateSearching:
		return a.updateSearching(msg)
	case domain.StateResults:
		return a.updateResults(msg)
	case domain.StateDetail:
		return a.updateDetail(msg)
	}
	return a, nil
}

// updateIdle routes most keys into the text input; only submission and
// notice dismissal are intercepted.
func (a *App) updateIdle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Submit):
		return a, a.submitQuery()
	case msg.Type == tea.KeyEsc:
		if a.snap.Notice != "" {
			a.controller.DismissNotice()
			return a, nil
		}
		a.input.SetValue("")
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateSearching(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		// Abandon the in-flight query.
		a.controller.NewSearch()
	}
	return a, nil
}

func (a *App) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.showHelp = true
		return a, nil
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	case key.Matches(msg, a.keys.Down):
		if a.cursor < a.resultCount()-1 {
			a.cursor++
		}
		return a, nil
	case key.Matches(msg, a.keys.Submit):
		if err := a.controller.SelectResult(a.cursor); err != nil {
			a.err = err
		}
		return a, nil
	case key.Matches(msg, a.keys.VoteUp):
		return a, a.vote(a.cursor, domain.VoteUp)
	case key.Matches(msg, a.keys.VoteDown):
		return a, a.vote(a.cursor, domain.VoteDown)
	case key.Matches(msg, a.keys.Dismiss):
		a.controller.DismissNotice()
		return a, nil
	case key.Matches(msg, a.keys.Back):
		a.controller.NewSearch()
		a.input.SetValue("")
		a.input.Focus()
		a.cursor = 0
		a.err = nil
		return a, textinput.Blink
	}
	return a, nil
}

func (a *App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.showHelp = true
		return a, nil
	case key.Matches(msg, a.keys.Back):
		if err := a.controller.Back(); err != nil {
			a.err = err
		}
		return a, nil
	case key.Matches(msg, a.keys.VoteUp):
		return a, a.vote(a.cursor, domain.VoteUp)
	case key.Matches(msg, a.keys.VoteDown):
		return a, a.vote(a.cursor, domain.VoteDown)
	}
	return a, nil
}

// submitQuery decides the modality from the input: a readable file
// with an image extension is an image query, anything else is text.
func (a *App) submitQuery() tea.Cmd {
	raw := strings.TrimSpace(a.input.Value())
	if raw == "" {
		return nil
	}
	a.err = nil
	a.cursor = 0

	ctrl := a.controller
	return func() tea.Msg {
		if mime := queryMIME(raw); mime != "" {
			blob, err := os.ReadFile(raw)
			if err != nil {
				return errMsg{err}
			}
			if err := ctrl.SubmitImageQuery(context.Background(), blob, mime); err != nil {
				return errMsg{err}
			}
			return nil
		}
		if err := ctrl.SubmitTextQuery(context.Background(), raw); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) vote(index int, direction domain.VoteDirection) tea.Cmd {
	item := a.resultAt(index)
	if item == nil {
		return nil
	}
	ctrl := a.controller
	id := item.ImageID
	return func() tea.Msg {
		if _, err := ctrl.SubmitVote(context.Background(), id, direction); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) resultCount() int {
	if a.snap.Results == nil {
		return 0
	}
	return len(a.snap.Results.Results)
}

func (a *App) resultAt(index int) *domain.ResultItem {
	if a.snap.Results == nil || index < 0 || index >= len(a.snap.Results.Results) {
		return nil
	}
	return &a.snap.Results.Results[index]
}

func (a *App) clampCursor() {
	if n := a.resultCount(); a.cursor >= n {
		a.cursor = 0
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.showHelp {
		return a.viewHelp()
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("microsearch"))
	b.WriteString("  ")
	b.WriteString(a.viewHealth())
	b.WriteString("\n\n")

	switch a.snap.State {
	case domain.StateIdle:
		b.WriteString(a.viewIdle())
	case domain.StateSearching:
		b.WriteString(a.viewSearching())
	case domain.StateResults:
		b.WriteString(a.viewResults())
	case domain.StateDetail:
		b.WriteString(a.viewDetail())
	}

	if a.snap.Notice != "" {
		b.WriteString("\n")
		b.WriteString(a.styles.Error.Render(a.snap.Notice))
		b.WriteString(a.styles.Muted.Render("  (esc to dismiss)"))
	}
	if a.err != nil {
		b.WriteString("\n")
		b.WriteString(a.styles.Error.Render(a.err.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(a.help.ShortHelpView(a.keys.ShortHelp()))
	return b.String()
}

func (a *App) viewHealth() string {
	switch a.snap.Health.State {
	case domain.HealthHealthy:
		return a.styles.Success.Render("● backend healthy")
	case domain.HealthDegraded:
		return a.styles.Warning.Render("● backend degraded")
	case domain.HealthUnreachable:
		return a.styles.Error.Render("● backend unreachable")
	default:
		return a.styles.Muted.Render("● backend status unknown")
	}
}

func (a *App) viewIdle() string {
	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Find similar microscopy images"))
	b.WriteString("\n\n")
	b.WriteString(a.input.View())
	if !a.snap.Filters.IsZero() {
		b.WriteString("\n")
		b.WriteString(a.styles.Muted.Render("filters: " + describeFilters(a.snap.Filters)))
	}
	return b.String()
}

func (a *App) viewSearching() string {
	line := a.spin.View() + " Searching..."
	if a.snap.Progress != "" {
		line += "  " + a.styles.Muted.Render(a.snap.Progress)
	}
	partial := a.resultCount()
	if partial > 0 {
		line += a.styles.Muted.Render(fmt.Sprintf("  (%d so far)", partial))
	}
	return line + "\n\n" + a.styles.Muted.Render("esc to cancel")
}

func (a *App) viewResults() string {
	resp := a.snap.Results
	if resp == nil || len(resp.Results) == 0 {
		return a.styles.Muted.Render("No similar images found.") +
			"\n\n" + a.styles.Muted.Render("esc for a new search")
	}

	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render(
		fmt.Sprintf("%d results (%.0f ms)", resp.ResultCount, resp.TotalTimeMs)))
	b.WriteString("\n\n")

	for i, item := range resp.Results {
		line := fmt.Sprintf("%2d. %s  %s  %s",
			i+1,
			a.styles.Score.Render(fmt.Sprintf("%.3f", item.SimilarityScore)),
			item.ImageID,
			a.voteMarker(item.ImageID),
		)
		meta := resultMeta(item)
		if meta != "" {
			line += "  " + a.styles.Muted.Render(meta)
		}
		if i == a.cursor {
			line = a.styles.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewDetail() string {
	item := a.snap.Selected
	if item == nil {
		return a.styles.Muted.Render("Nothing selected.")
	}

	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Image " + item.ImageID))
	b.WriteString(" ")
	b.WriteString(a.voteMarker(item.ImageID))
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value != "" {
			b.WriteString(fmt.Sprintf("  %-12s %s\n", label, value))
		}
	}
	row("Score", fmt.Sprintf("%.3f", item.SimilarityScore))
	row("Diagnosis", item.Diagnosis)
	row("Tissue", item.TissueType)
	row("Class", item.BenignMalignant)
	if item.Age != nil {
		row("Age", fmt.Sprintf("%d", *item.Age))
	}
	row("Sex", item.Sex)
	row("Source", item.DatasetSource)
	row("URL", item.ImageURL)

	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render("+/- to vote, esc to go back"))
	return b.String()
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("microsearch help") + "\n\n" +
		a.help.FullHelpView(a.keys.FullHelp()) + "\n\n" +
		a.styles.Muted.Render("press any key to close")
}

// voteMarker renders the session's recorded vote for an image.
func (a *App) voteMarker(imageID string) string {
	switch a.snap.Votes[imageID] {
	case domain.VoteUp:
		return a.styles.Success.Render("▲")
	case domain.VoteDown:
		return a.styles.Error.Render("▼")
	default:
		return " "
	}
}

func resultMeta(item domain.ResultItem) string {
	var parts []string
	if item.Diagnosis != "" {
		parts = append(parts, item.Diagnosis)
	}
	if item.BenignMalignant != "" {
		parts = append(parts, item.BenignMalignant)
	}
	return strings.Join(parts, ", ")
}

func describeFilters(f domain.FilterSet) string {
	var parts []string
	for name, value := range f.Params() {
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, " ")
}

// queryMIME maps an image file extension to its media type; empty for
// anything that should be treated as a text query.
func queryMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return domain.MIMEJPEG
	case ".png":
		return domain.MIMEPNG
	case ".tif", ".tiff":
		return domain.MIMETIFF
	default:
		return ""
	}
}
