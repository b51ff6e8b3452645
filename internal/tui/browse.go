package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lunchbox/lunchbox-cli/internal/collection"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// Collection is the part of a restaurant controller the browser drives.
type Collection interface {
	Submit(in restaurant.Input)
	State() restaurant.State
}

// FavouriteToggler flips favourites optimistically.
type FavouriteToggler interface {
	Favourites
	Pending(id string) bool
	Toggle(id string) (favourite bool, commit func(context.Context) error)
}

type browseKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	More      key.Binding
	Refresh   key.Binding
	Sort      key.Binding
	OpenNow   key.Binding
	FavOnly   key.Binding
	Favourite key.Binding
	Quit      key.Binding
}

func defaultBrowseKeyMap() browseKeyMap {
	return browseKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		More: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "more"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh/retry"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort"),
		),
		OpenNow: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open now"),
		),
		FavOnly: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "favourites only"),
		),
		Favourite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "favourite"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k browseKeyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.More, k.Refresh, k.Sort, k.OpenNow, k.FavOnly, k.Favourite, k.Quit}
}

type (
	stateMsg           restaurant.State
	statesClosedMsg    struct{}
	favouriteResultMsg struct {
		id  string
		err error
	}
)

// BrowseModel is the bubbletea model for the interactive restaurant list.
// It owns no collection state: every frame is a projection of the latest
// state received from the controller.
type BrowseModel struct {
	ctx        context.Context
	coll       Collection
	states     <-chan restaurant.State
	favourites FavouriteToggler
	initial    restaurant.Query

	styles  *Styles
	keys    browseKeyMap
	spinner spinner.Model

	state    restaurant.State
	view     ListView
	spinning bool
	notice   string

	favRevision uint64 // last FavouritesRevision submitted

	cursor     int
	scroll     int
	maxVisible int
	width      int
	quitting   bool
}

// BrowseOption configures a BrowseModel.
type BrowseOption func(*BrowseModel)

// WithBrowseStyles overrides the resolved styles.
func WithBrowseStyles(s *Styles) BrowseOption {
	return func(m *BrowseModel) { m.styles = s }
}

// WithMaxVisible sets how many rows fit on screen before scrolling.
func WithMaxVisible(n int) BrowseOption {
	return func(m *BrowseModel) {
		if n > 0 {
			m.maxVisible = n
		}
	}
}

// NewBrowseModel creates a browser that submits initial as its first query
// and renders every state read from states.
func NewBrowseModel(ctx context.Context, coll Collection, states <-chan restaurant.State, favourites FavouriteToggler, initial restaurant.Query, opts ...BrowseOption) BrowseModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := BrowseModel{
		ctx:        ctx,
		coll:       coll,
		states:     states,
		favourites: favourites,
		initial:    initial,
		keys:       defaultBrowseKeyMap(),
		spinner:    s,
		state:      coll.State(),
		maxVisible: 15,
		width:      80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.styles == nil {
		m.styles = NewStyles()
	}
	m.spinner.Style = m.styles.Cursor
	m.view = Project(m.state, favourites)
	return m
}

func (m BrowseModel) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return statesClosedMsg{}
		}
		return stateMsg(st)
	}
}

// Init starts listening for states and submits the initial query.
func (m BrowseModel) Init() tea.Cmd {
	coll, q := m.coll, m.initial
	return tea.Batch(
		m.waitForState(),
		func() tea.Msg {
			coll.Submit(collection.ChangeQueryInput(q))
			return nil
		},
	)
}

// Update handles states from the controller, favourite commits and keys.
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		return m.applyState(restaurant.State(msg))

	case statesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case favouriteResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Couldn't save favourite: %v", msg.err)
		}
		m.view = m.project(m.state)
		m.refilterFavourites()
		return m, nil

	case spinner.TickMsg:
		if !m.view.Banner.Spinning() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.maxVisible = max(3, msg.Height-6)
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m BrowseModel) applyState(st restaurant.State) (tea.Model, tea.Cmd) {
	m.state = st
	m.view = m.project(st)

	cmds := []tea.Cmd{m.waitForState()}
	if m.view.Banner.Spinning() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	if m.cursor >= len(m.view.Rows) {
		m.cursor = max(0, len(m.view.Rows)-1)
	}
	m.clampScroll()
	return m, tea.Batch(cmds...)
}

// project keeps the previous rows on screen while a filter runs, since a
// Filtering state carries no filtered rows yet.
func (m BrowseModel) project(st restaurant.State) ListView {
	v := Project(st, m.favourites)
	if st.Kind == collection.KindFiltering && len(v.Rows) == 0 {
		v.Rows = m.view.Rows
		v.Count = len(v.Rows)
	}
	return v
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.clampScroll()
			m.coll.Submit(collection.PreloadInput[restaurant.Query](m.cursor))
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Rows)-1 {
			m.cursor++
			m.clampScroll()
			m.coll.Submit(collection.PreloadInput[restaurant.Query](m.cursor))
		}

	case key.Matches(msg, m.keys.More):
		m.coll.Submit(collection.LoadNextPageInput[restaurant.Query]())

	case key.Matches(msg, m.keys.Refresh):
		m.notice = ""
		if m.state.Kind == collection.KindErrorLoadingNextPage {
			m.coll.Submit(collection.RetryNextPageInput[restaurant.Query]())
		} else {
			m.coll.Submit(collection.RefreshInput[restaurant.Query]())
		}

	case key.Matches(msg, m.keys.Sort):
		q := m.query()
		q.Sort = q.Sort.Next()
		m.coll.Submit(collection.ChangeQueryInput(q))

	case key.Matches(msg, m.keys.OpenNow):
		q := m.query()
		q.OpenNow = !q.OpenNow
		m.coll.Submit(collection.ChangeQueryInput(q))

	case key.Matches(msg, m.keys.FavOnly):
		q := m.query()
		q.FavouritesOnly = !q.FavouritesOnly
		m.coll.Submit(collection.ChangeQueryInput(q))

	case key.Matches(msg, m.keys.Favourite):
		return m.toggleFavourite()
	}
	return m, nil
}

// query is the query the next ChangeQuery should start from.
func (m BrowseModel) query() restaurant.Query {
	if m.state.HasQuery {
		return m.state.Query
	}
	return m.initial
}

func (m BrowseModel) toggleFavourite() (tea.Model, tea.Cmd) {
	if m.favourites == nil || m.cursor >= len(m.view.Rows) {
		return m, nil
	}
	id := m.view.Rows[m.cursor].ID
	_, commit := m.favourites.Toggle(id)
	m.notice = ""
	m.view = m.project(m.state)
	m.refilterFavourites()

	ctx := m.ctx
	return m, func() tea.Msg {
		return favouriteResultMsg{id: id, err: commit(ctx)}
	}
}

// refilterFavourites re-runs a favourites-only filter after a favourite
// changes. Inputs that arrive while the collection is busy are dropped, so
// the commit result submits again.
func (m *BrowseModel) refilterFavourites() {
	q := m.query()
	if !q.FavouritesOnly {
		return
	}
	m.favRevision++
	q.FavouritesRevision = m.favRevision
	m.coll.Submit(collection.ChangeQueryInput(q))
}

func (m *BrowseModel) clampScroll() {
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+m.maxVisible {
		m.scroll = m.cursor - m.maxVisible + 1
	}
	m.scroll = max(0, min(m.scroll, len(m.view.Rows)-1))
}

// View renders the list.
func (m BrowseModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.RenderTitle("lunchbox", m.describeQuery()))
	b.WriteString("\n\n")

	banner := m.view.Banner
	switch {
	case banner.Empty != nil:
		style := m.styles.Muted
		if banner.Kind == BannerLoadFailed {
			style = m.styles.Error
		}
		b.WriteString(style.Render(banner.Empty.String()) + "\n")
	case banner.Spinning():
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render(banner.Text) + "\n")
	case banner.Kind == BannerLoadMoreFailed:
		b.WriteString(m.styles.Error.Render(banner.Text) + "\n")
	}

	if banner.Kind != BannerEmpty && banner.Kind != BannerLoadFailed {
		end := min(m.scroll+m.maxVisible, len(m.view.Rows))
		for i := m.scroll; i < end; i++ {
			b.WriteString(m.renderRow(i) + "\n")
		}
	}

	status := m.view.Summary()
	if m.view.CanLoadMore {
		status += " · n for more"
	}
	b.WriteString("\n" + m.styles.Muted.Render(status))
	if m.notice != "" {
		b.WriteString("\n" + m.styles.Warning.Render(m.notice))
	}

	b.WriteString("\n" + m.styles.Help.Render(m.helpLine()))
	return b.String()
}

func (m BrowseModel) renderRow(i int) string {
	row := m.view.Rows[i]

	cursor := "  "
	name := m.styles.Body.Render(Truncate(row.Name, 32))
	if i == m.cursor {
		cursor = m.styles.Cursor.Render("> ")
		name = m.styles.Selected.Render(Truncate(row.Name, 32))
	}

	star := " "
	if row.Favourite {
		star = m.styles.Favourite.Render("★")
	}

	details := []string{fmt.Sprintf("%.1f★", row.Rating)}
	if p := row.Price(); p != "" {
		details = append(details, p)
	}
	if d := FormatDistance(row.DistanceMeters); d != "" {
		details = append(details, d)
	}
	if len(row.Cuisines) > 0 {
		details = append(details, Truncate(strings.Join(row.Cuisines, ", "), 24))
	}
	detail := m.styles.Muted.Render(strings.Join(details, " · "))
	if !row.IsOpen {
		detail += " " + m.styles.Closed.Render("closed")
	}
	if row.Pending {
		detail += " " + m.styles.Pending.Render("saving")
	}

	return cursor + star + " " + name + "  " + detail
}

func (m BrowseModel) describeQuery() string {
	q := m.query()
	parts := []string{}
	if q.Term != "" {
		parts = append(parts, fmt.Sprintf("%q", q.Term))
	}
	parts = append(parts, "sort: "+string(q.Sort))
	if q.OpenNow {
		parts = append(parts, "open now")
	}
	if q.FavouritesOnly {
		parts = append(parts, "favourites")
	}
	if q.MinRating > 0 {
		parts = append(parts, fmt.Sprintf("≥%.1f★", q.MinRating))
	}
	if q.MaxPrice > 0 {
		parts = append(parts, "≤"+strings.Repeat("$", q.MaxPrice))
	}
	if q.Cuisine != "" {
		parts = append(parts, q.Cuisine)
	}
	return strings.Join(parts, " · ")
}

func (m BrowseModel) helpLine() string {
	bindings := m.keys.help()
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Browse runs the interactive list until the user quits or ctx ends.
func Browse(ctx context.Context, ctrl *restaurant.Controller, favourites FavouriteToggler, initial restaurant.Query, opts ...BrowseOption) error {
	sub := ctrl.Subscribe()
	defer sub.Close()

	m := NewBrowseModel(ctx, ctrl, sub.C(), favourites, initial, opts...)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
