package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"molgenx/models"
)

// ViewState ist der Zustand der Ergebnisansicht einer Session.
type ViewState string

const (
	StateEmpty            ViewState = "empty"
	StateLoading          ViewState = "loading"
	StateShowingOriginal  ViewState = "showing_original"
	StateShowingOptimized ViewState = "showing_optimized"
)

// Selector wählt die aktive Ergebnisliste.
type Selector string

const (
	SelectorOriginal  Selector = "original"
	SelectorOptimized Selector = "optimized"
)

// Panel ist ein auf- und zuklappbarer Bereich der Ansicht.
type Panel string

const (
	PanelFilter       Panel = "filter"
	PanelSort         Panel = "sort"
	PanelOptimization Panel = "optimization"
)

// ValidPanel meldet, ob p ein bekanntes Panel ist.
func ValidPanel(p Panel) bool {
	return p == PanelFilter || p == PanelSort || p == PanelOptimization
}

// RequestKind unterscheidet Suche und Optimierung.
type RequestKind string

const (
	RequestSearch       RequestKind = "search"
	RequestOptimization RequestKind = "optimization"
)

// NotificationKind klassifiziert Meldungen an den Nutzer.
type NotificationKind string

const (
	NotifySearchComplete       NotificationKind = "SearchComplete"
	NotifyOptimizationComplete NotificationKind = "OptimizationComplete"
	NotifyInvalidInput         NotificationKind = "InvalidInput"
	NotifyRequestFailed        NotificationKind = "RequestFailed"
	NotifyNetworkError         NotificationKind = "NetworkError"
	NotifyMalformedResponse    NotificationKind = "MalformedResponse"
)

const maxNotifications = 20

// Notification entspricht einem Toast der Oberfläche.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Destructive bool             `json:"destructive"`
	At          time.Time        `json:"at"`
}

// OptimizationResult ist die aufbereitete Antwort des Optimierungs-Backends.
// Malformed unterscheidet "keine Treffer" von "Antwort nicht lesbar".
type OptimizationResult struct {
	Compounds           []models.OptimizedCompound `json:"compounds"`
	Explanation         string                     `json:"explanation"`
	Variants            []models.OptimizedCompound `json:"variants,omitempty"`
	VariantsExplanation string                     `json:"variants_explanation,omitempty"`
	Malformed           bool                       `json:"malformed"`
	Issues              []string                   `json:"issues,omitempty"`
}

// Summary sind Überschrift und Zähltext über der Ergebnisliste.
type Summary struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	Shown   int    `json:"shown"`
	Total   int    `json:"total"`
}

// Session hält den gesamten sichtbaren Zustand einer Nutzersitzung.
// Überlappende Requests werden über Tickets geordnet: nur das zuletzt ausgegebene Ticket darf abschließen.
type Session struct {
	ID string

	mu                  sync.Mutex
	logger              *zap.Logger
	now                 func() time.Time
	original            []models.Compound
	optimized           []models.OptimizedCompound
	variants            []models.OptimizedCompound
	active              Selector
	filters             models.FilterState
	weights             models.OptimizationWeights
	explanation         string
	variantsExplanation string
	proteinKey          string
	state               ViewState
	stateBefore         ViewState
	loadingKind         RequestKind
	seq                 uint64
	panels              map[Panel]bool
	notifications       []Notification
	lastActive          time.Time
}

// NewSession erstellt eine Session mit Default-Filtern und -Gewichten.
func NewSession(id string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		ID:      id,
		logger:  logger.With(zap.String("session", id)),
		now:     time.Now,
		active:  SelectorOriginal,
		filters: models.DefaultFilters(),
		weights: models.DefaultWeights(),
		state:   StateEmpty,
		panels:  map[Panel]bool{},
	}
	s.lastActive = s.now()
	return s
}

// State liefert den aktuellen Zustand.
func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Weights liefert die aktuellen Optimierungsgewichte.
func (s *Session) Weights() models.OptimizationWeights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weights
}

// Filters liefert Schwellwerte und Sortierung.
func (s *Session) Filters() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// ProteinKey liefert den zuletzt gesuchten Schlüssel.
func (s *Session) ProteinKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proteinKey
}

// LastActive liefert den Zeitpunkt der letzten Interaktion.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Begin startet einen Request und gibt dessen Ticket zurück. Ein laufender Request
// wird dabei nicht abgebrochen, seine Antwort wird aber verworfen.
func (s *Session) Begin(kind RequestKind, proteinKey string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(kind, proteinKey)
}

// BeginExclusive ist der Guard für die Eingabegrenze: während Loading wird abgelehnt.
func (s *Session) BeginExclusive(kind RequestKind, proteinKey string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading {
		return 0, ErrAlreadyLoading
	}
	return s.beginLocked(kind, proteinKey), nil
}

func (s *Session) beginLocked(kind RequestKind, proteinKey string) uint64 {
	if s.state != StateLoading {
		s.stateBefore = s.state
	}
	s.seq++
	s.state = StateLoading
	s.loadingKind = kind
	if proteinKey != "" {
		s.proteinKey = proteinKey
	}
	s.touchLocked()
	s.logger.Debug("Request gestartet", zap.String("kind", string(kind)), zap.Uint64("ticket", s.seq))
	return s.seq
}

// staleLocked meldet, ob ein neueres Ticket ausgegeben wurde.
func (s *Session) staleLocked(ticket uint64) bool {
	if ticket != s.seq || s.state != StateLoading {
		s.logger.Debug("Veraltete Antwort verworfen", zap.Uint64("ticket", ticket), zap.Uint64("current", s.seq))
		return true
	}
	return false
}

// CompleteSearch übernimmt das Ergebnis einer normalen Suche. false bei veraltetem Ticket.
func (s *Session) CompleteSearch(ticket uint64, compounds []models.Compound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(ticket) {
		return false
	}
	s.original = append([]models.Compound(nil), compounds...)
	// neue Suche: alte Optimierung gehört zu einem anderen Ziel
	s.optimized = nil
	s.variants = nil
	s.explanation = ""
	s.variantsExplanation = ""
	s.active = SelectorOriginal
	s.state = StateShowingOriginal
	s.notifyLocked(Notification{
		Kind:        NotifySearchComplete,
		Title:       "Search Complete",
		Description: fmt.Sprintf("Found %d compatible compounds.", len(compounds)),
	})
	s.touchLocked()
	return true
}

// CompleteOptimization übernimmt das Optimierungsergebnis und schaltet auf die optimierte Liste.
func (s *Session) CompleteOptimization(ticket uint64, res *OptimizationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(ticket) {
		return false
	}
	if res == nil {
		res = &OptimizationResult{Malformed: true, Issues: []string{"leere Antwort"}}
	}
	s.optimized = append([]models.OptimizedCompound(nil), res.Compounds...)
	s.variants = append([]models.OptimizedCompound(nil), res.Variants...)
	s.explanation = res.Explanation
	s.variantsExplanation = res.VariantsExplanation
	s.active = SelectorOptimized
	s.state = StateShowingOptimized
	s.panels[PanelOptimization] = false

	if res.Malformed {
		s.notifyLocked(Notification{
			Kind:        NotifyMalformedResponse,
			Title:       "Malformed Response",
			Description: "The optimization service returned results that could not be read.",
			Destructive: true,
		})
	} else {
		s.notifyLocked(Notification{
			Kind:        NotifyOptimizationComplete,
			Title:       "Optimization Complete",
			Description: fmt.Sprintf("Found %d optimized compounds for your target.", len(res.Compounds)),
		})
	}
	s.touchLocked()
	return true
}

// Fail setzt nach einem Fehler auf den Zustand vor dem Request zurück und erzeugt eine Meldung.
func (s *Session) Fail(ticket uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(ticket) {
		return false
	}
	s.state = s.stateBefore
	if s.loadingKind == RequestOptimization {
		s.panels[PanelOptimization] = false
	}
	s.notifyLocked(notificationFor(s.loadingKind, err))
	s.touchLocked()
	return true
}

// RejectInput meldet eine ungültige Eingabe ohne Zustandswechsel.
func (s *Session) RejectInput(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(Notification{
		Kind:        NotifyInvalidInput,
		Title:       "Missing Protein Data",
		Description: err.Error(),
		Destructive: true,
	})
	s.touchLocked()
}

func notificationFor(kind RequestKind, err error) Notification {
	title := "Search Failed"
	if kind == RequestOptimization {
		title = "Optimization Failed"
	}
	n := Notification{Title: title, Description: err.Error(), Destructive: true}
	var rf *RequestFailedError
	switch {
	case errors.Is(err, ErrInvalidInput):
		n.Kind = NotifyInvalidInput
	case errors.As(err, &rf):
		n.Kind = NotifyRequestFailed
		n.Description = fmt.Sprintf("Error: %d %s", rf.StatusCode, rf.Body)
	case errors.Is(err, ErrNetwork):
		n.Kind = NotifyNetworkError
	default:
		n.Kind = NotifyRequestFailed
	}
	return n
}

// SetActive wechselt zwischen Original- und optimierter Liste. Kein Netzwerkeffekt.
func (s *Session) SetActive(sel Selector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sel {
	case SelectorOriginal:
	case SelectorOptimized:
		if len(s.optimized) == 0 {
			return ErrNoOptimized
		}
	default:
		return InvalidInputf("unbekannte Ansicht %q", sel)
	}
	s.active = sel
	if s.state != StateLoading && s.state != StateEmpty {
		if sel == SelectorOptimized {
			s.state = StateShowingOptimized
		} else {
			s.state = StateShowingOriginal
		}
	}
	s.touchLocked()
	return nil
}

// SetFilters ersetzt Schwellwerte und Sortierung.
func (s *Session) SetFilters(f models.FilterState) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
	s.touchLocked()
	return nil
}

// SetWeights ersetzt alle Gewichte.
func (s *Session) SetWeights(w models.OptimizationWeights) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights = w
	s.touchLocked()
	return nil
}

// SetWeight ändert ein einzelnes Gewicht (Schieberegler).
func (s *Session) SetWeight(name string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.weights
	if err := w.Set(name, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.weights = w
	s.touchLocked()
	return nil
}

// TogglePanel klappt ein Panel auf oder zu und liefert den neuen Zustand.
func (s *Session) TogglePanel(p Panel) (bool, error) {
	if !ValidPanel(p) {
		return false, InvalidInputf("unbekanntes Panel %q", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[p] = !s.panels[p]
	s.touchLocked()
	return s.panels[p], nil
}

// DisplayedList leitet die angezeigte Liste aus aktiver Quelle und Filtern ab.
func (s *Session) DisplayedList() []models.Compoundish {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayedLocked()
}

func (s *Session) displayedLocked() []models.Compoundish {
	var out []models.Compoundish
	if s.active == SelectorOptimized {
		view := DeriveView(s.optimized, s.filters)
		out = make([]models.Compoundish, 0, len(view))
		for _, c := range view {
			out = append(out, c)
		}
		return out
	}
	view := DeriveView(s.original, s.filters)
	out = make([]models.Compoundish, 0, len(view))
	for _, c := range view {
		out = append(out, c)
	}
	return out
}

func (s *Session) summaryLocked(shown int) Summary {
	switch s.state {
	case StateEmpty:
		return Summary{Text: "Enter a protein sequence or identifier and click search to find compatible compounds."}
	case StateLoading:
		if s.loadingKind == RequestOptimization {
			return Summary{Text: "Optimizing compounds for your target..."}
		}
		return Summary{Text: "Searching for compatible compounds..."}
	}
	heading := "Compatible Compounds"
	total := len(s.original)
	if s.active == SelectorOptimized {
		heading = "Optimized Compounds"
		total = len(s.optimized)
	}
	text := fmt.Sprintf("We found %d compounds with potential binding affinity.", total)
	if shown != total {
		text = fmt.Sprintf("Showing %d of %d compounds.", shown, total)
	}
	return Summary{Heading: heading, Text: text, Shown: shown, Total: total}
}

// SessionView ist die serialisierbare Momentaufnahme einer Session.
type SessionView struct {
	ID                  string                     `json:"id"`
	State               ViewState                  `json:"state"`
	Active              Selector                   `json:"active"`
	ProteinKey          string                     `json:"protein"`
	Filters             models.FilterState         `json:"filters"`
	Weights             models.OptimizationWeights `json:"weights"`
	Panels              map[Panel]bool             `json:"panels"`
	Summary             Summary                    `json:"summary"`
	Compounds           []models.Compoundish       `json:"compounds"`
	HasOptimized        bool                       `json:"has_optimized"`
	Explanation         string                     `json:"explanation,omitempty"`
	Variants            []models.OptimizedCompound `json:"variants,omitempty"`
	VariantsExplanation string                     `json:"variants_explanation,omitempty"`
	Notifications       []Notification             `json:"notifications"`
}

// Snapshot liefert den sichtbaren Zustand; drain leert die Meldungen danach.
func (s *Session) Snapshot(drain bool) SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	displayed := s.displayedLocked()
	panels := make(map[Panel]bool, len(s.panels))
	for k, v := range s.panels {
		panels[k] = v
	}
	view := SessionView{
		ID:            s.ID,
		State:         s.state,
		Active:        s.active,
		ProteinKey:    s.proteinKey,
		Filters:       s.filters,
		Weights:       s.weights,
		Panels:        panels,
		Summary:       s.summaryLocked(len(displayed)),
		Compounds:     displayed,
		HasOptimized:  len(s.optimized) > 0,
		Notifications: append([]Notification{}, s.notifications...),
	}
	// Erklärung nur zur optimierten Ansicht
	if s.active == SelectorOptimized {
		view.Explanation = s.explanation
		view.Variants = append([]models.OptimizedCompound(nil), s.variants...)
		view.VariantsExplanation = s.variantsExplanation
	}
	if drain {
		s.notifications = nil
	}
	return view
}

func (s *Session) notifyLocked(n Notification) {
	n.At = s.now()
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}
