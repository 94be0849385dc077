package listsync

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// PollState is the lifecycle of a detail poll session.
type PollState int

const (
	PollIdle PollState = iota
	PollLoading
	PollLoaded
	PollNotFound
	PollFailed
)

func (s PollState) String() string {
	switch s {
	case PollLoading:
		return "loading"
	case PollLoaded:
		return "loaded"
	case PollNotFound:
		return "not found"
	case PollFailed:
		return "failed"
	default:
		return "idle"
	}
}

// PollTickMsg asks a poller to fetch again. It is only honoured when its
// slot, id and generation match the current session.
type PollTickMsg struct {
	Slot string
	ID   string
	Gen  uint64
}

// PollResultMsg carries one fetch result back to the poller that asked.
type PollResultMsg[P any] struct {
	Slot    string
	ID      string
	Gen     uint64
	Payload P
	Err     error
}

// FetchFunc loads the secondary resource for id.
type FetchFunc[P any] func(id string) (P, error)

// Poller fetches a secondary resource for the active record, repeating on
// a fixed interval while the record is live. Repeats are a chain of
// one-shot ticks; each tick and result carries the session generation so
// anything from an earlier session is dropped on arrival.
type Poller[P any] struct {
	slot       string
	interval   time.Duration
	fetch      FetchFunc[P]
	isNotFound func(error) bool

	id       string
	gen      uint64
	live     bool
	state    PollState
	payload  P
	err      error
	ticking  bool
	inflight bool
}

// NewPoller creates an idle poller. slot must be unique among pollers that
// share one bubbletea program. isNotFound classifies errors meaning the
// resource does not exist; nil treats every error as a failure.
func NewPoller[P any](slot string, interval time.Duration, fetch FetchFunc[P], isNotFound func(error) bool) *Poller[P] {
	if isNotFound == nil {
		isNotFound = func(error) bool { return false }
	}
	return &Poller[P]{slot: slot, interval: interval, fetch: fetch, isNotFound: isNotFound}
}

// Start ends any previous session and begins a new one for id with an
// immediate fetch.
func (p *Poller[P]) Start(id string, live bool) tea.Cmd {
	p.Stop()
	if id == "" {
		return nil
	}
	p.id = id
	p.live = live
	p.state = PollLoading
	p.inflight = true
	return p.fetchCmd()
}

// Stop ends the current session. Pending ticks and results become stale.
func (p *Poller[P]) Stop() {
	p.gen++
	p.id = ""
	p.live = false
	p.state = PollIdle
	var zero P
	p.payload = zero
	p.err = nil
	p.ticking = false
	p.inflight = false
}

// SetLive updates the liveness of the active record. Becoming live resumes
// the tick chain; leaving the live set lets the pending tick lapse.
func (p *Poller[P]) SetLive(live bool) tea.Cmd {
	if p.id == "" || p.live == live {
		return nil
	}
	p.live = live
	if live && !p.ticking && !p.inflight {
		return p.tickCmd()
	}
	return nil
}

// Refresh fetches immediately unless a fetch is already in flight.
func (p *Poller[P]) Refresh() tea.Cmd {
	if p.id == "" || p.inflight {
		return nil
	}
	p.inflight = true
	return p.fetchCmd()
}

// Update consumes this poller's ticks and results. handled is false for
// messages addressed elsewhere.
func (p *Poller[P]) Update(msg tea.Msg) (handled bool, cmd tea.Cmd) {
	switch msg := msg.(type) {
	case PollTickMsg:
		if msg.Slot != p.slot {
			return false, nil
		}
		if !p.current(msg.ID, msg.Gen) {
			return true, nil
		}
		p.ticking = false
		if !p.live || p.inflight {
			return true, nil
		}
		p.inflight = true
		return true, p.fetchCmd()

	case PollResultMsg[P]:
		if msg.Slot != p.slot {
			return false, nil
		}
		if !p.current(msg.ID, msg.Gen) {
			return true, nil
		}
		p.inflight = false
		p.apply(msg.Payload, msg.Err)
		if p.live && !p.ticking {
			return true, p.tickCmd()
		}
		return true, nil
	}
	return false, nil
}

func (p *Poller[P]) apply(payload P, err error) {
	switch {
	case err == nil:
		p.state = PollLoaded
		p.payload = payload
		p.err = nil
	case p.isNotFound(err):
		var zero P
		p.state = PollNotFound
		p.payload = zero
		p.err = nil
	case p.state == PollLoading:
		p.state = PollFailed
		p.err = err
	default:
		// Later failures keep the last content on screen.
		p.err = err
	}
}

func (p *Poller[P]) current(id string, gen uint64) bool {
	return p.id != "" && id == p.id && gen == p.gen
}

func (p *Poller[P]) fetchCmd() tea.Cmd {
	slot, id, gen, fetch := p.slot, p.id, p.gen, p.fetch
	return func() tea.Msg {
		payload, err := fetch(id)
		return PollResultMsg[P]{Slot: slot, ID: id, Gen: gen, Payload: payload, Err: err}
	}
}

func (p *Poller[P]) tickCmd() tea.Cmd {
	p.ticking = true
	slot, id, gen := p.slot, p.id, p.gen
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return PollTickMsg{Slot: slot, ID: id, Gen: gen}
	})
}

// --- Accessors ---

// ID returns the id of the current session, or "".
func (p *Poller[P]) ID() string { return p.id }

// Generation returns the current session generation.
func (p *Poller[P]) Generation() uint64 { return p.gen }

// State returns the session state.
func (p *Poller[P]) State() PollState { return p.state }

// Payload returns the last successfully fetched payload.
func (p *Poller[P]) Payload() P { return p.payload }

// Err returns the most recent fetch error, if any.
func (p *Poller[P]) Err() error { return p.err }

// Live reports whether the session is repeating.
func (p *Poller[P]) Live() bool { return p.live }

// Ticking reports whether a tick is scheduled.
func (p *Poller[P]) Ticking() bool { return p.ticking }
