// Package theme keeps the process-wide light/dark theme. It is never
// persisted and starts as light.
package theme

import (
	"sync"

	"todoList/internal/pubsub"

	"github.com/charmbracelet/lipgloss"
)

type Name string

const (
	Light Name = "light"
	Dark  Name = "dark"
)

// Palette is the fixed color table of a theme.
type Palette struct {
	Primary        lipgloss.Color `json:"primary"`
	Background     lipgloss.Color `json:"background"`
	Text           lipgloss.Color `json:"text"`
	Card           lipgloss.Color `json:"card"`
	Border         lipgloss.Color `json:"border"`
	Success        lipgloss.Color `json:"success"`
	Danger         lipgloss.Color `json:"danger"`
	PriorityHigh   lipgloss.Color `json:"priority_high"`
	PriorityMedium lipgloss.Color `json:"priority_medium"`
	PriorityLow    lipgloss.Color `json:"priority_low"`
}

type Theme struct {
	Name   Name    `json:"name"`
	Colors Palette `json:"colors"`
}

var LightTheme = Theme{
	Name: Light,
	Colors: Palette{
		Primary:        lipgloss.Color("#007AFF"),
		Background:     lipgloss.Color("#F5F5F5"),
		Text:           lipgloss.Color("#1C1C1E"),
		Card:           lipgloss.Color("#FFFFFF"),
		Border:         lipgloss.Color("#C7C7CC"),
		Success:        lipgloss.Color("#34C759"),
		Danger:         lipgloss.Color("#FF3B30"),
		PriorityHigh:   lipgloss.Color("#FF453A"),
		PriorityMedium: lipgloss.Color("#FF9F0A"),
		PriorityLow:    lipgloss.Color("#30D158"),
	},
}

var DarkTheme = Theme{
	Name: Dark,
	Colors: Palette{
		Primary:        lipgloss.Color("#0A84FF"),
		Background:     lipgloss.Color("#000000"),
		Text:           lipgloss.Color("#E5E5E5"),
		Card:           lipgloss.Color("#1C1C1E"),
		Border:         lipgloss.Color("#3A3A3C"),
		Success:        lipgloss.Color("#30D158"),
		Danger:         lipgloss.Color("#FF453A"),
		PriorityHigh:   lipgloss.Color("#FF453A"),
		PriorityMedium: lipgloss.Color("#FF9F0A"),
		PriorityLow:    lipgloss.Color("#30D158"),
	},
}

// Lookup returns the palette for name, falling back to light.
func Lookup(name Name) Theme {
	if name == Dark {
		return DarkTheme
	}
	return LightTheme
}

// Preview рисует название темы и полосу образцов её цветов. Профиль цветов
// берётся из renderer, без цветного терминала остаётся обычный текст.
func (t Theme) Preview(r *lipgloss.Renderer) string {
	title := r.NewStyle().
		Bold(true).
		Foreground(t.Colors.Text).
		Background(t.Colors.Background).
		Padding(0, 1).
		Render(string(t.Name))

	cells := make([]string, 0, 10)
	for _, c := range t.Colors.list() {
		cells = append(cells, r.NewStyle().Background(c).Render("  "))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

func (p Palette) list() []lipgloss.Color {
	return []lipgloss.Color{
		p.Primary, p.Background, p.Text, p.Card, p.Border,
		p.Success, p.Danger, p.PriorityHigh, p.PriorityMedium, p.PriorityLow,
	}
}

type Store struct {
	// pubMtx держит порядок публикаций, mtx защищает только current
	pubMtx  sync.Mutex
	mtx     sync.RWMutex
	current Name
	broker  *pubsub.Broker[Theme]
}

func NewStore() *Store {
	return &Store{
		current: Light,
		broker:  pubsub.NewBroker[Theme](),
	}
}

func (s *Store) Current() Theme {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return Lookup(s.current)
}

// Toggle switches light<->dark and notifies subscribers with the new theme.
func (s *Store) Toggle() Theme {
	s.pubMtx.Lock()
	defer s.pubMtx.Unlock()

	s.mtx.Lock()
	if s.current == Light {
		s.current = Dark
	} else {
		s.current = Light
	}
	th := Lookup(s.current)
	s.mtx.Unlock()

	s.broker.Publish(th)
	return th
}

// Subscribe registers fn for every toggle. fn may read Current but must not
// call Toggle.
func (s *Store) Subscribe(fn func(Theme)) func() {
	return s.broker.Subscribe(fn)
}
