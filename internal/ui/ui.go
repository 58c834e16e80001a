package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/formatter"
	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/player"
	"github.com/desertthunder/spotctl/internal/repositories"
	"github.com/desertthunder/spotctl/internal/services"
	"github.com/desertthunder/spotctl/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
)

const (
	tickInterval = 250 * time.Millisecond
	noticeTTL    = 5 * time.Second
	seekStepMS   = 10_000
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	gateway    services.Gateway
	library    *repositories.LibraryRepository
	sync       *player.Synchronizer
	dispatcher *player.Dispatcher
	width      int
	height     int

	playlistList     list.Model
	playlists        []models.Playlist
	trackList        list.Model
	selectedPlaylist *models.Playlist
	tracks           []models.Track

	playback  player.View
	bar       progress.Model
	notice    string
	noticeAt  time.Time
	loading   bool
	err       error
	help      help.Model
	keys      keyMap
	logger    *log.Logger
}

// NewModel creates a new TUI model with the provided dependencies. The
// library repository is optional; without it the browser skips the cache.
func NewModel(ctx context.Context, gateway services.Gateway, library *repositories.LibraryRepository, sync *player.Synchronizer, dispatcher *player.Dispatcher, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	bar := progress.New(progress.WithDefaultGradient())
	bar.ShowPercentage = false

	// Both lists exist from the start so size and key messages that arrive
	// before the first load have something to land on.
	playlistList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlistList.Title = "Playlists"
	trackList := list.New(nil, list.NewDefaultDelegate(), 0, 0)

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		gateway:      gateway,
		library:      library,
		sync:         sync,
		dispatcher:   dispatcher,
		playlistList: playlistList,
		trackList:    trackList,
		bar:          bar,
		loading:      true,
		help:         help.New(),
		keys:         newKeyMap(),
		logger:       logger,
	}
}

// Init seeds the browser from the cache, refreshes from the API, and starts
// the playback bar tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCachedPlaylists(), m.fetchPlaylists(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 20
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
		m.playlistList.SetSize(msg.Width-4, m.listHeight())
		m.trackList.SetSize(msg.Width-4, m.listHeight())
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleTransportKeys(msg); handled {
			return m, cmd
		}

		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case tickMsg:
		m.playback = m.sync.View()
		m.drainEvents()
		return m, m.tick()

	case playlistsLoadedMsg:
		if msg.err != nil {
			if len(m.playlists) == 0 {
				m.err = msg.err
				return m, tea.Quit
			}
			m.setNotice(noticeText(msg.err))
			return m, nil
		}
		if msg.cached && (len(m.playlists) > 0 || len(msg.playlists) == 0) {
			return m, nil
		}
		m.loading = false
		m.playlists = msg.playlists
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		cmd := m.playlistList.SetItems(items)
		m.playlistList.SetSize(m.width-4, m.listHeight())
		return m, cmd

	case tracksLoadedMsg:
		if msg.err != nil {
			m.setNotice(noticeText(msg.err))
			return m, nil
		}
		selected := msg.playlist
		m.selectedPlaylist = &selected
		m.tracks = msg.tracks
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		cmd := m.trackList.SetItems(items)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Name)
		m.trackList.SetSize(m.width-4, m.listHeight())
		m.view = TrackListView
		return m, cmd
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case PlaylistListView:
		if m.loading {
			body = styles.help.Render("Loading playlists...")
		} else {
			body = m.playlistList.View()
		}
	case TrackListView:
		body = m.trackList.View()
	}

	return fmt.Sprintf("%s\n%s\n%s", body, m.renderPlaybackBar(), m.renderFooter())
}

// handleTransportKeys routes playback keys that work from every view.
func (m *Model) handleTransportKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.toggle):
		m.dispatcher.Dispatch(m.ctx, player.Intent{Kind: player.CommandToggle})
		return nil, true
	case key.Matches(msg, m.keys.next):
		m.dispatcher.Dispatch(m.ctx, player.Intent{Kind: player.CommandNext})
		return nil, true
	case key.Matches(msg, m.keys.previous):
		m.dispatcher.Dispatch(m.ctx, player.Intent{Kind: player.CommandPrevious})
		return nil, true
	case key.Matches(msg, m.keys.seekBack):
		m.dispatchSeek(-seekStepMS)
		return nil, true
	case key.Matches(msg, m.keys.seekFwd):
		m.dispatchSeek(seekStepMS)
		return nil, true
	}

	return nil, false
}

func (m *Model) dispatchSeek(deltaMS int) {
	if m.playback.Empty() {
		return
	}

	target := m.sync.View().EstimatedProgressMS + deltaMS
	if target < 0 {
		target = 0
	}
	if m.playback.DurationMS > 0 && target > m.playback.DurationMS {
		target = m.playback.DurationMS
	}

	m.dispatcher.Dispatch(m.ctx, player.Intent{Kind: player.CommandSeek, SeekMS: target})
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.fetchTracks(selected.playlist)
		}
	case key.Matches(msg, m.keys.refresh):
		m.loading = len(m.playlists) == 0
		return m, m.fetchPlaylists()
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if _, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.dispatcher.Dispatch(m.ctx, player.Intent{
				Kind: player.CommandPlay,
				URIs: trackURIsFrom(m.tracks, m.trackList.Index()),
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// drainEvents pulls any queued synchronizer events into the notice line.
func (m *Model) drainEvents() {
	for {
		select {
		case ev := <-m.sync.Events():
			m.setNotice(noticeText(ev.Err))
		default:
			if m.notice != "" && time.Since(m.noticeAt) > noticeTTL {
				m.notice = ""
			}
			return
		}
	}
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.noticeAt = time.Now()
}

func (m *Model) loadCachedPlaylists() tea.Cmd {
	if m.library == nil {
		return nil
	}

	return func() tea.Msg {
		playlists, err := m.library.Playlists()
		if err != nil {
			return playlistsLoadedMsg{cached: true}
		}
		return playlistsLoadedMsg{playlists: playlists, cached: true}
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.gateway.UserPlaylists(m.ctx)
		if err != nil {
			return playlistsLoadedMsg{err: err}
		}
		if m.library != nil {
			if err := m.library.SavePlaylists(playlists); err != nil {
				m.logger.Warn("failed to cache playlists", "error", err)
			}
		}
		return playlistsLoadedMsg{playlists: playlists}
	}
}

func (m *Model) fetchTracks(playlist models.Playlist) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.gateway.PlaylistTracks(m.ctx, playlist.ID)
		if err != nil {
			if m.library != nil {
				if cached, cacheErr := m.library.Tracks(playlist.ID); cacheErr == nil && len(cached) > 0 {
					return tracksLoadedMsg{playlist: playlist, tracks: cached, cached: true}
				}
			}
			return tracksLoadedMsg{err: err}
		}
		if m.library != nil {
			if err := m.library.SaveTracks(playlist.ID, tracks); err != nil {
				m.logger.Warn("failed to cache tracks", "playlist", playlist.ID, "error", err)
			}
		}
		return tracksLoadedMsg{playlist: playlist, tracks: tracks}
	}
}

func (m *Model) listHeight() int {
	height := m.height - 6
	if height < 4 {
		height = 4
	}
	return height
}

func (m *Model) renderPlaybackBar() string {
	line := formatter.NowPlayingLine(m.playback.TrackTitle, m.playback.Artist, m.playback.IsPlaying)
	if m.playback.Empty() {
		return styles.help.Render(line)
	}

	ratio := 0.0
	if m.playback.DurationMS > 0 {
		ratio = float64(m.playback.EstimatedProgressMS) / float64(m.playback.DurationMS)
	}

	timing := formatter.FormatProgress(m.playback.EstimatedProgressMS, m.playback.DurationMS)
	return fmt.Sprintf("%s\n%s %s", styles.ok.Render(line), m.bar.ViewAs(ratio), styles.help.Render(timing))
}

func (m *Model) renderFooter() string {
	if m.notice != "" {
		return styles.warn.Render(m.notice)
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// trackURIsFrom collects playable URIs starting at the selected index so
// playback continues through the rest of the playlist.
func trackURIsFrom(tracks []models.Track, index int) []string {
	if index < 0 || index >= len(tracks) {
		return nil
	}

	uris := make([]string, 0, len(tracks)-index)
	for _, track := range tracks[index:] {
		if track.URI != "" {
			uris = append(uris, track.URI)
		}
	}
	return uris
}

func noticeText(err error) string {
	switch {
	case errors.Is(err, shared.ErrNoActiveDevice):
		return "Ensure Spotify is open on a device!"
	case errors.Is(err, shared.ErrRateLimited):
		return "Rate limited, retrying shortly..."
	case errors.Is(err, shared.ErrUnreachable):
		return "Spotify is unreachable, showing last known state"
	case errors.Is(err, shared.ErrAuthExpired):
		return "Session expired, run 'spotctl auth login'"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
