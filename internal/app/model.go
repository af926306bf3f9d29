package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/voxnote/voxnote/internal/enhance"
	"github.com/voxnote/voxnote/internal/flomo"
	"github.com/voxnote/voxnote/internal/notify"
	"github.com/voxnote/voxnote/internal/pipeline"
	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the root bubbletea model for the voxnote TUI.
type Model struct {
	svc       *pipeline.Service
	store     *store.Store
	forwarder *flomo.Client
	events    <-chan pipeline.Event

	// Pipeline state mirror
	snap     pipeline.Snapshot
	duration string

	// Recording list
	recordings []store.Recording
	selected   int

	// Rename input mode
	renaming  bool
	renameBuf string

	// UI state
	width  int
	height int

	errorMessage string
	notice       string

	// quiet suppresses desktop notifications (tests).
	quiet bool
}

// New creates the model. forwarder may be nil when no webhook is
// configured.
func New(svc *pipeline.Service, st *store.Store, forwarder *flomo.Client) Model {
	m := Model{
		svc:       svc,
		store:     st,
		forwarder: forwarder,
		duration:  pipeline.FormatDuration(0),
	}
	if svc != nil {
		m.events = svc.Subscribe()
		m.snap = svc.State()
	}
	return m
}

// Init starts the event pump and loads the recording list.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.events != nil {
		cmds = append(cmds, readEventCmd(m.events))
	}
	if m.store != nil {
		cmds = append(cmds, loadRecordingsCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// readEventCmd reads the next pipeline event.
func readEventCmd(ch <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		return PipelineEventMsg{Event: <-ch}
	}
}

// loadRecordingsCmd reads the recording list from the store.
func loadRecordingsCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		recs, err := st.List()
		if err != nil {
			return ActionErrorMsg{Err: err}
		}
		return RecordingsLoadedMsg{Recordings: recs}
	}
}

// toggleCaptureCmd starts or stops the capture.
func toggleCaptureCmd(svc *pipeline.Service, recording bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if recording {
			err = svc.StopCapture()
		} else {
			err = svc.StartCapture()
		}
		if err != nil {
			return ActionErrorMsg{Err: err}
		}
		return nil
	}
}

// playCmd starts playback of the selected recording.
func playCmd(svc *pipeline.Service, path string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Play(path); err != nil {
			return ActionErrorMsg{Err: err}
		}
		return nil
	}
}

// deleteCmd removes a recording and reloads the list.
func deleteCmd(svc *pipeline.Service, st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Delete(id); err != nil {
			return ActionErrorMsg{Err: err}
		}
		return loadRecordingsCmd(st)()
	}
}

// renameCmd commits a rename and reloads the list.
func renameCmd(svc *pipeline.Service, st *store.Store, id, name string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Rename(id, name); err != nil {
			return ActionErrorMsg{Err: err}
		}
		return loadRecordingsCmd(st)()
	}
}

// forwardCmd sends a recording's outputs to flomo.
func forwardCmd(fw *flomo.Client, rec store.Recording) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var err error
		if rec.EnhancedText != "" {
			err = fw.SendNote(ctx, rec.Transcription, rec.EnhancedText, rec.Tags)
		} else {
			err = fw.SendOriginal(ctx, rec.Transcription)
		}
		return ForwardResultMsg{Err: err}
	}
}

// copyCmd puts text on the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return ActionErrorMsg{Err: err}
		}
		return CopiedMsg{}
	}
}

// clearNoticeCmd fires after a delay to clear the notice line.
func clearNoticeCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case PipelineEventMsg:
		cmd := m.handleEvent(msg.Event)
		// Keep draining the event channel.
		var next tea.Cmd
		if m.events != nil {
			next = readEventCmd(m.events)
		}
		return m, tea.Batch(cmd, next)

	case RecordingsLoadedMsg:
		m.recordings = msg.Recordings
		if m.selected >= len(m.recordings) {
			m.selected = max(0, len(m.recordings)-1)
		}
		return m, nil

	case ActionErrorMsg:
		m.errorMessage = msg.Err.Error()
		return m, nil

	case ForwardResultMsg:
		if msg.Err != nil {
			m.notice = "发送失败：" + msg.Err.Error()
		} else {
			m.notice = "已发送到 flomo"
		}
		return m, clearNoticeCmd()

	case CopiedMsg:
		m.notice = "已复制到剪贴板"
		return m, clearNoticeCmd()

	case ClearNoticeMsg:
		m.notice = ""
		return m, nil
	}

	return m, nil
}

// handleEvent folds a pipeline event into the model and returns any
// follow-up command.
func (m *Model) handleEvent(ev pipeline.Event) tea.Cmd {
	if m.svc != nil {
		m.snap = m.svc.State()
	}

	switch ev.Type {
	case pipeline.EventDuration:
		m.duration = ev.Duration

	case pipeline.EventRecordingSaved:
		m.errorMessage = ""
		if m.store != nil {
			return loadRecordingsCmd(m.store)
		}

	case pipeline.EventTranscription:
		m.snap.Transcription = ev.Text
		if m.store != nil {
			return loadRecordingsCmd(m.store)
		}

	case pipeline.EventEnhancement:
		m.snap.EnhancedText = ev.Text
		m.snap.Tags = ev.Tags
		if !m.quiet {
			notify.Ready(m.currentName())
		}
		if m.store != nil {
			return loadRecordingsCmd(m.store)
		}

	case pipeline.EventError:
		m.errorMessage = ev.Message
		if !m.quiet {
			notify.Failed(ev.Message)
		}
	}

	return nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		return m.handleRenameKey(msg)
	}

	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit

	case KeySpace:
		if m.svc == nil {
			return m, nil
		}
		return m, toggleCaptureCmd(m.svc, m.snap.Recording)

	case KeyJ, KeyDown:
		if m.selected < len(m.recordings)-1 {
			m.selected++
		}
		return m, nil

	case KeyK, KeyUp:
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case KeyPlay, KeyEnter:
		if rec, ok := m.selectedRecording(); ok && m.svc != nil {
			return m, playCmd(m.svc, rec.AudioPath)
		}
		return m, nil

	case KeyPauseResume:
		if m.svc == nil {
			return m, nil
		}
		if m.snap.Paused {
			m.svc.ResumePlayback()
		} else {
			m.svc.PausePlayback()
		}
		m.snap = m.svc.State()
		return m, nil

	case KeyStopPlay:
		if m.svc != nil {
			m.svc.StopPlayback()
			m.snap = m.svc.State()
		}
		return m, nil

	case KeyDelete:
		if rec, ok := m.selectedRecording(); ok && m.svc != nil {
			return m, deleteCmd(m.svc, m.store, rec.ID)
		}
		return m, nil

	case KeyRename:
		if rec, ok := m.selectedRecording(); ok {
			m.renaming = true
			m.renameBuf = rec.Name
		}
		return m, nil

	case KeyForward:
		if m.forwarder == nil {
			m.notice = "未配置 flomo webhook"
			return m, clearNoticeCmd()
		}
		if rec, ok := m.selectedRecording(); ok && rec.Transcription != "" {
			return m, forwardCmd(m.forwarder, rec)
		}
		return m, nil

	case KeyRetry:
		if m.svc != nil {
			m.errorMessage = ""
			m.svc.RetryEnhancement("")
		}
		return m, nil

	case KeyCycleModel:
		if m.svc != nil {
			m.svc.SetModel(nextModel(m.snap.Model))
			m.snap = m.svc.State()
		}
		return m, nil

	case KeyCopy:
		text := m.snap.EnhancedText
		if text == "" {
			text = m.snap.Transcription
		}
		if text != "" {
			return m, copyCmd(text)
		}
		return m, nil
	}

	return m, nil
}

// handleRenameKey edits the rename buffer.
func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEnter:
		m.renaming = false
		name := strings.TrimSpace(m.renameBuf)
		if rec, ok := m.selectedRecording(); ok && name != "" && m.svc != nil {
			return m, renameCmd(m.svc, m.store, rec.ID, name)
		}
		return m, nil

	case KeyEsc:
		m.renaming = false
		m.renameBuf = ""
		return m, nil

	case KeyBackspace:
		if len(m.renameBuf) > 0 {
			runes := []rune(m.renameBuf)
			m.renameBuf = string(runes[:len(runes)-1])
		}
		return m, nil

	default:
		if msg.Type == tea.KeyRunes {
			m.renameBuf += string(msg.Runes)
		} else if msg.String() == KeySpace {
			m.renameBuf += " "
		}
		return m, nil
	}
}

func (m Model) selectedRecording() (store.Recording, bool) {
	if m.selected < 0 || m.selected >= len(m.recordings) {
		return store.Recording{}, false
	}
	return m.recordings[m.selected], true
}

// currentName resolves the label of the recording the pipeline state
// belongs to.
func (m Model) currentName() string {
	for _, rec := range m.recordings {
		if rec.ID == m.snap.CurrentID {
			return rec.Name
		}
	}
	return "录音"
}

func nextModel(current enhance.Model) enhance.Model {
	models := enhance.Models()
	for i, mdl := range models {
		if mdl == current {
			return models[(i+1)%len(models)]
		}
	}
	return models[0]
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderPipelinePanel())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderRecordingList())

	if m.errorMessage != "" {
		sections = append(sections, ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(m.errorMessage))
	}
	if m.notice != "" {
		sections = append(sections, ui.StatusOKStyle.Render(m.notice))
	}
	if m.renaming {
		sections = append(sections, ui.InputStyle.Render("重命名: "+m.renameBuf+"▌"))
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("VOXNOTE")
	model := ui.DimStyle.Render(" — " + m.snap.Model.DisplayName())
	return title + model
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.snap.Recording:
		dot = ui.RecordingDotStyle.Render("● REC " + m.duration)
	case m.snap.Playing && m.snap.Paused:
		dot = ui.DimStyle.Render("❚❚ PAUSED")
	case m.snap.Playing:
		dot = ui.StatusOKStyle.Render("▶ PLAYING")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}

	var stages string
	if m.snap.Transcribing {
		stages += "  " + ui.SpinnerStyle.Render("⟳ 转写中")
	}
	if m.snap.Enhancing {
		stages += "  " + ui.SpinnerStyle.Render("⟳ 润色中")
	}

	return dot + stages
}

func (m Model) renderPipelinePanel() string {
	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render("当前结果"))

	if m.snap.Transcription == "" && !m.snap.Transcribing {
		lines = append(lines, ui.DimStyle.Render("  按空格开始录音"))
		return strings.Join(lines, "\n")
	}

	if m.snap.Transcription != "" {
		lines = append(lines, ui.DimStyle.Render("  原文: ")+ui.TranscriptStyle.Render(truncate(m.snap.Transcription, m.width-10)))
	}
	if m.snap.EnhancedText != "" {
		lines = append(lines, ui.DimStyle.Render("  润色: ")+ui.EnhancedStyle.Render(truncate(m.snap.EnhancedText, m.width-10)))
	}
	if len(m.snap.Tags) > 0 {
		lines = append(lines, ui.DimStyle.Render("  标签: ")+ui.TagStyle.Render(strings.Join(m.snap.Tags, " ")))
	}
	if m.snap.TranscriptionErr != "" {
		lines = append(lines, ui.ErrorTextStyle.Render("  转写失败: "+m.snap.TranscriptionErr))
	}
	if m.snap.EnhancementErr != "" {
		lines = append(lines, ui.ErrorTextStyle.Render("  润色失败: "+m.snap.EnhancementErr+"（按 e 重试）"))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderRecordingList() string {
	var lines []string
	lines = append(lines, ui.PanelTitleActiveStyle.Render(fmt.Sprintf("录音 (%d)", len(m.recordings))))

	if len(m.recordings) == 0 {
		lines = append(lines, ui.DimStyle.Render("  还没有录音"))
		return strings.Join(lines, "\n")
	}

	visible := m.listVisibleLines()
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}

	for i := start; i < len(m.recordings) && i < start+visible; i++ {
		rec := m.recordings[i]
		ts := ui.TimestampStyle.Render(rec.CreatedAt.Format("[01-02 15:04]"))

		var status string
		switch {
		case rec.EnhancedText != "":
			status = ui.StatusOKStyle.Render(" ✓")
		case rec.Transcription != "":
			status = ui.DimStyle.Render(" …")
		}

		line := ts + " " + rec.Name + status
		if len(rec.Tags) > 0 {
			line += " " + ui.TagStyle.Render(strings.Join(rec.Tags, " "))
		}

		if i == m.selected {
			line = ui.SelectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, truncate(line, m.width))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	bindings := []struct{ key, desc string }{
		{"Space", "录音"},
		{"p", "播放"},
		{"o", "暂停"},
		{"s", "停播"},
		{"f", "发送"},
		{"e", "重试"},
		{"m", "模型"},
		{"y", "复制"},
		{"r", "改名"},
		{"d", "删除"},
		{"q", "退出"},
	}
	if m.snap.Recording {
		bindings[0].desc = "停止"
	}

	var parts []string
	for _, b := range bindings {
		parts = append(parts, ui.FooterKeyStyle.Render(b.key)+ui.FooterDescStyle.Render(" "+b.desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) listVisibleLines() int {
	if m.height == 0 {
		return 10
	}
	// Reserve header, status, dividers, pipeline panel, footer.
	return max(3, m.height-12)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}
