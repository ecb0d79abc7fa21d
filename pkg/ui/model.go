package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/kgview/pkg/engine"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
	"github.com/vanderheijden86/kgview/pkg/source"
)

const (
	toastTTL         = 4 * time.Second
	projectionPeriod = 100 * time.Millisecond
	// fitAlpha is the temperature below which the first layout is framed.
	fitAlpha = 0.35
)

// Options configures the terminal host.
type Options struct {
	Params engine.Params
	Render render.Options
	FPS    int
	// Worker loads data and runs mutations. Nil means the model only
	// shows what is delivered to it and refuses mutations.
	Worker *BackgroundWorker
	// Source names the data source in the status bar.
	Source string
	// Focus is applied once the first dataset arrives.
	Focus model.FocusRequest
	// Engine options such as WithRand, mostly for tests.
	EngineOptions []engine.Option
}

// frameMsg drives the animation loop.
type frameMsg time.Time

// FocusMsg asks the view to centre on a relation.
type FocusMsg struct {
	Request model.FocusRequest
}

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

type toast struct {
	text  string
	kind  toastKind
	until time.Time
}

// status receives throttled engine projections. It is shared by pointer
// because bubbletea copies the model on every update.
type status struct {
	proj engine.Projection
}

// Model is the bubbletea model hosting the engine.
type Model struct {
	eng    *engine.Engine
	rend   *render.Renderer
	worker *BackgroundWorker
	canvas *Canvas
	theme  Theme
	keys   keyMap
	help   help.Model
	search textinput.Model
	status *status

	fps        int
	source     string
	fallback   bool
	loaded     bool
	needFit    bool
	focus      model.FocusRequest
	searching  bool
	confirming []string
	picker     *TypePickerModel
	toasts     []toast
	lastFrame  time.Time
	frame      string
	closed     bool

	width, height int
	now           func() time.Time
}

// NewModel creates the host. The engine starts empty until a
// DatasetReadyMsg arrives.
func NewModel(opts Options) (Model, error) {
	ro := opts.Render
	ro.RasterLabels = false
	rend, err := render.New(ro)
	if err != nil {
		return Model{}, err
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	st := &status{}
	eopts := append([]engine.Option{
		engine.WithListener(func(p engine.Projection) { st.proj = p }, projectionPeriod),
	}, opts.EngineOptions...)

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search names"
	ti.CharLimit = 64

	src := opts.Source
	if src == "" && opts.Worker != nil {
		src = opts.Worker.Describe()
	}

	return Model{
		eng:    engine.New(opts.Params, eopts...),
		rend:   rend,
		worker: opts.Worker,
		canvas: NewCanvas(0, 0),
		theme:  DefaultTheme(lipgloss.DefaultRenderer()),
		keys:   defaultKeyMap(),
		help:   help.New(),
		search: ti,
		status: st,
		fps:    opts.FPS,
		source: src,
		focus:  opts.Focus,
		now:    time.Now,
	}, nil
}

// Engine exposes the hosted engine.
func (m Model) Engine() *engine.Engine {
	return m.eng
}

func (m Model) frameTick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.frameTick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.closed {
		return m, nil
	}
	switch msg := msg.(type) {
	case frameMsg:
		return m.onFrame(time.Time(msg))

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		if m.picker != nil {
			m.picker.SetSize(m.width, m.height)
		}
		return m, nil

	case DatasetReadyMsg:
		return m.onDataset(msg), nil

	case LoadErrorMsg:
		m.addToast(fmt.Sprintf("Reload failed: %v", msg.Err), toastError)
		return m, nil

	case MutationDoneMsg:
		return m.onMutation(msg), nil

	case FocusMsg:
		if !m.eng.Focus(msg.Request) {
			m.addToast(fmt.Sprintf("Nothing to focus: %s → %s", msg.Request.SourceName, msg.Request.TargetName), toastError)
		}
		return m, nil

	case tea.MouseMsg:
		m.onMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m Model) onFrame(t time.Time) (tea.Model, tea.Cmd) {
	dt := time.Second / time.Duration(m.fps)
	if !m.lastFrame.IsZero() {
		dt = t.Sub(m.lastFrame)
	}
	m.lastFrame = t
	m.eng.Step(dt)

	if m.needFit && m.eng.State().Alpha < fitAlpha {
		m.eng.FitToBounds()
		m.needFit = false
	}

	kept := m.toasts[:0]
	for _, ts := range m.toasts {
		if t.Before(ts.until) {
			kept = append(kept, ts)
		}
	}
	m.toasts = kept

	m.draw()
	return m, m.frameTick()
}

// draw renders the current view into the cached frame string.
func (m *Model) draw() {
	cols, rows := m.canvas.Size()
	if cols == 0 || rows == 0 {
		m.frame = ""
		return
	}
	f := m.rend.Draw(m.eng.View())
	m.canvas.Paint(f, m.rend.Palette())
	m.frame = m.canvas.String()
}

// chromeLines is the number of rows below the canvas.
func (m Model) chromeLines() int {
	if !m.help.ShowAll {
		return 2
	}
	n := 0
	for _, col := range m.keys.FullHelp() {
		n = max(n, len(col))
	}
	return 1 + n
}

func isIdle(mode engine.Mode) bool {
	_, ok := mode.(engine.Idle)
	return ok
}

func (m *Model) layout() {
	rows := max(0, m.height-m.chromeLines())
	m.canvas.Resize(m.width, rows)
	w, h := m.canvas.Viewport()
	m.eng.Resize(w, h, 1)
	m.help.Width = m.width
	m.search.Width = max(10, m.width/2)
}

func (m Model) onDataset(msg DatasetReadyMsg) Model {
	report := m.eng.Rebuild(msg.Dataset)
	first := !m.loaded
	m.loaded = true
	m.fallback = msg.Fallback

	switch {
	case msg.Fallback:
		m.addToast(fmt.Sprintf("Data source unavailable (%v), showing built-in dataset", msg.Err), toastError)
	case report.Dropped > 0:
		m.addToast(fmt.Sprintf("Loaded %d entities, %d relations (%d dropped)", report.Entities, report.Relations, report.Dropped), toastInfo)
	case !first:
		m.addToast(fmt.Sprintf("Reloaded: %d entities, %d relations", report.Entities, report.Relations), toastInfo)
	}

	if first {
		m.needFit = true
		if !m.focus.IsZero() {
			if m.eng.Focus(m.focus) {
				m.needFit = false
			}
		}
	}
	return m
}

func (m Model) onMutation(msg MutationDoneMsg) Model {
	if msg.Err != nil {
		m.addToast(fmt.Sprintf("%s failed: %v", msg.Op, msg.Err), toastError)
		return m
	}
	switch msg.Op {
	case opDelete:
		m.addToast(fmt.Sprintf("Deleted %d %s", msg.Count, plural(msg.Count, "entity", "entities")), toastSuccess)
		m.eng.ClearBatch()
	default:
		m.addToast(fmt.Sprintf("%s done", msg.Op), toastSuccess)
	}
	return m
}

// onMouse maps cells to logical pixels and feeds the pointer state machine.
func (m *Model) onMouse(msg tea.MouseMsg) {
	_, rows := m.canvas.Size()
	x, y := CellToLogical(msg.X, msg.Y)
	inside := msg.Y >= 0 && msg.Y < rows

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if inside {
				m.eng.PointerDown(x, y)
			}
		case tea.MouseButtonWheelUp:
			if inside {
				m.eng.Wheel(x, y, -1)
			}
		case tea.MouseButtonWheelDown:
			if inside {
				m.eng.Wheel(x, y, 1)
			}
		}
	case tea.MouseActionMotion:
		m.eng.PointerMove(x, y)
	case tea.MouseActionRelease:
		m.eng.PointerUp(x, y)
	}
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.onSearchKey(msg)
	}
	if m.picker != nil {
		m.onPickerKey(msg)
		return m, nil
	}
	if m.confirming != nil {
		ids := m.confirming
		m.confirming = nil
		if key.Matches(msg, m.keys.Confirm) {
			m.deleteEntities(ids)
		} else {
			m.addToast("Delete cancelled", toastInfo)
		}
		return m, nil
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.teardown()
		return m, tea.Quit

	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()

	case key.Matches(msg, k.Search):
		m.searching = true
		m.layout()
		return m, m.search.Focus()

	case key.Matches(msg, k.Cancel):
		switch {
		case !isIdle(m.eng.Mode()):
			m.eng.Cancel()
		case len(m.eng.SearchHits()) > 0:
			m.search.SetValue("")
			m.eng.SetSearch("")
		default:
			m.eng.ClearFocus()
			m.eng.Select("")
		}

	case key.Matches(msg, k.Batch):
		if m.eng.ToggleBatchMode() {
			m.addToast("Batch mode: click entities to collect them, x to delete", toastInfo)
		}

	case key.Matches(msg, k.Delete):
		m.confirmDelete()

	case key.Matches(msg, k.Unpin):
		if !m.eng.UnpinSelected() {
			m.addToast("Nothing pinned is selected", toastInfo)
		}

	case key.Matches(msg, k.Fit):
		m.eng.FitToBounds()

	case key.Matches(msg, k.ZoomIn):
		m.eng.ZoomByFactor(1.25)

	case key.Matches(msg, k.ZoomOut):
		m.eng.ZoomByFactor(1 / 1.25)

	case key.Matches(msg, k.PanLeft):
		m.eng.Pan(cellW*8, 0)
	case key.Matches(msg, k.PanRight):
		m.eng.Pan(-cellW*8, 0)
	case key.Matches(msg, k.PanUp):
		m.eng.Pan(0, cellH*4)
	case key.Matches(msg, k.PanDown):
		m.eng.Pan(0, -cellH*4)

	case key.Matches(msg, k.Copy):
		m.copySelected()

	case key.Matches(msg, k.Type):
		m.openTypePicker()

	case key.Matches(msg, k.WeightUp):
		m.adjustWeight(1)
	case key.Matches(msg, k.WeightDown):
		m.adjustWeight(-1)

	case key.Matches(msg, k.Reload):
		if m.worker != nil {
			m.worker.ForceRefresh()
			m.addToast("Reloading…", toastInfo)
		}
	}
	return m, nil
}

func (m Model) onSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.eng.SetSearch("")
		m.layout()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.layout()
		if hits := m.eng.SearchHits(); len(hits) > 0 {
			m.eng.FocusOnEntities(hits...)
		} else if m.search.Value() != "" {
			m.addToast(fmt.Sprintf("No entity matches %q", m.search.Value()), toastInfo)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.eng.SetSearch(m.search.Value())
	return m, cmd
}

func (m *Model) openTypePicker() {
	sel, ok := m.eng.Selected()
	if !ok {
		m.addToast("Select an entity first", toastInfo)
		return
	}
	var types []string
	for _, ent := range m.eng.State().Entities {
		types = append(types, ent.Type)
	}
	p := NewTypePickerModel(types, sel.Type, m.theme)
	p.SetSize(m.width, m.height)
	m.picker = &p
}

func (m *Model) onPickerKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "j", "down":
		m.picker.MoveDown()
	case "k", "up":
		m.picker.MoveUp()
	case "enter":
		if m.picker.Changed() {
			m.setType(m.picker.SelectedType())
		}
		m.picker = nil
	case "esc", "q":
		m.picker = nil
	}
}

// confirmDelete asks before deleting the batch, or the selection when the
// batch is empty.
func (m *Model) confirmDelete() {
	ids := m.eng.BatchSelection()
	if len(ids) == 0 {
		if sel, ok := m.eng.Selected(); ok {
			ids = []string{sel.ID}
		}
	}
	if len(ids) == 0 {
		m.addToast("Select an entity or collect a batch first", toastInfo)
		return
	}
	m.confirming = ids
}

const (
	opDelete = "Delete"
	opWeight = "Weight update"
	opType   = "Type change"
)

func (m *Model) deleteEntities(ids []string) {
	if m.worker == nil {
		m.addToast("Data source is read-only", toastError)
		return
	}
	m.worker.Mutate(opDelete, func(ctx context.Context, src source.Source) (int, error) {
		if len(ids) == 1 {
			if err := src.DeleteEntity(ctx, ids[0]); err != nil {
				return 0, err
			}
			return 1, nil
		}
		return src.DeleteEntities(ctx, ids)
	})
}

func (m *Model) adjustWeight(delta float64) {
	sel, ok := m.eng.Selected()
	if !ok {
		return
	}
	if m.worker == nil {
		m.addToast("Data source is read-only", toastError)
		return
	}
	w := max(0, sel.Weight+delta)
	id := sel.ID
	m.worker.Mutate(opWeight, func(ctx context.Context, src source.Source) (int, error) {
		_, err := src.UpdateEntity(ctx, id, model.EntityPatch{Weight: &w})
		return 1, err
	})
}

func (m *Model) setType(typ string) {
	sel, ok := m.eng.Selected()
	if !ok {
		return
	}
	if m.worker == nil {
		m.addToast("Data source is read-only", toastError)
		return
	}
	id := sel.ID
	m.worker.Mutate(opType, func(ctx context.Context, src source.Source) (int, error) {
		_, err := src.UpdateEntity(ctx, id, model.EntityPatch{Type: &typ})
		return 1, err
	})
}

func (m *Model) copySelected() {
	sel, ok := m.eng.Selected()
	if !ok {
		return
	}
	if err := clipboard.WriteAll(sel.Name); err != nil {
		log.Printf("ui: clipboard: %v", err)
		m.addToast("Clipboard unavailable", toastError)
		return
	}
	m.addToast(fmt.Sprintf("Copied %q", sel.Name), toastSuccess)
}

func (m *Model) addToast(text string, kind toastKind) {
	m.toasts = append(m.toasts, toast{text: text, kind: kind, until: m.now().Add(toastTTL)})
}

// teardown stops the frame loop, the engine and the worker.
func (m *Model) teardown() {
	m.closed = true
	m.eng.Close()
	if m.worker != nil {
		m.worker.Stop()
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	if m.picker != nil {
		return m.picker.View()
	}
	var sb strings.Builder
	if m.frame != "" {
		sb.WriteString(m.frame)
		sb.WriteByte('\n')
	}
	sb.WriteString(m.renderStatusBar())
	sb.WriteByte('\n')
	sb.WriteString(m.renderBottom())
	return sb.String()
}

func (m Model) renderBottom() string {
	switch {
	case m.searching:
		return m.search.View()
	case m.confirming != nil:
		return m.theme.Renderer.NewStyle().Foreground(m.theme.Warning).Bold(true).
			Render(fmt.Sprintf("Delete %d %s? y to confirm, any other key cancels",
				len(m.confirming), plural(len(m.confirming), "entity", "entities")))
	case len(m.toasts) > 0 && !m.help.ShowAll:
		ts := m.toasts[len(m.toasts)-1]
		fg := m.theme.Secondary
		switch ts.kind {
		case toastSuccess:
			fg = m.theme.Success
		case toastError:
			fg = m.theme.Error
		}
		return m.theme.Renderer.NewStyle().Foreground(fg).
			Render(runewidth.Truncate(ts.text, m.width, "…"))
	}
	return m.help.View(m.keys)
}

func (m Model) renderStatusBar() string {
	t := m.theme
	proj := m.status.proj

	var left []string
	switch {
	case proj.Mode == "dragging":
		left = append(left, t.chip("DRAG", t.Warning))
	case proj.Mode == "panning":
		left = append(left, t.chip("PAN", t.Secondary))
	case proj.BatchMode:
		left = append(left, t.chip(fmt.Sprintf("BATCH %d", len(proj.Batch)), t.Primary))
	default:
		left = append(left, t.chip("VIEW", t.Muted))
	}
	if m.fallback {
		left = append(left, t.chip("FALLBACK", t.Error))
	}

	info := t.Renderer.NewStyle().Foreground(t.Subtext).Padding(0, 1)
	var mid []string
	if proj.SelectedName != "" {
		sel := proj.SelectedName
		if proj.Pinned {
			sel += " (pinned)"
		}
		mid = append(mid, fmt.Sprintf("● %s · %d linked", sel, len(proj.Neighbors)))
	}
	if len(proj.SearchHits) > 0 {
		mid = append(mid, fmt.Sprintf("%d %s", len(proj.SearchHits), plural(len(proj.SearchHits), "match", "matches")))
	}
	if proj.Focused != "" {
		mid = append(mid, "focus "+proj.Focused)
	}
	left = append(left, info.Render(strings.Join(mid, "  ")))

	cam := m.eng.Camera()
	right := info.Render(fmt.Sprintf("%s · %d entities · %d relations · %.0f%%",
		m.source, proj.Entities, proj.Relations, cam.K*100))

	leftStr := lipgloss.JoinHorizontal(lipgloss.Top, left...)
	gap := m.width - lipgloss.Width(leftStr) - lipgloss.Width(right)
	if gap < 0 {
		right = ""
		gap = max(0, m.width-lipgloss.Width(leftStr))
	}
	filler := t.Renderer.NewStyle().Width(gap).Render("")
	bar := lipgloss.JoinHorizontal(lipgloss.Top, leftStr, filler, right)
	return t.Renderer.NewStyle().Background(t.BarBg).MaxWidth(m.width).Render(bar)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
