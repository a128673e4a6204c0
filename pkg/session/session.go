// Package session holds the client-side history of completions for one
// interactive session. Nothing in it outlives the process.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/integrail/poetry-assistant/pkg/dto"
	"github.com/integrail/poetry-assistant/pkg/prompt"
)

// ErrorPrefix starts the text of every failed Interaction.
const ErrorPrefix = "Error: "

// ProbeInput is the synthetic input sent by Probe.
const ProbeInput = "test"

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrBusy       = errors.New("a submission is already in progress")
)

type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

type Connectivity int

const (
	Checking Connectivity = iota
	Connected
	Disconnected
)

func (c Connectivity) String() string {
	switch c {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "checking"
	}
}

// Interaction is one recorded submission. It is never mutated after creation.
type Interaction struct {
	Category  prompt.Category
	Input     string
	Text      string
	Failed    bool
	CreatedAt time.Time
}

// Proxy is the subset of the proxy client used by a Session.
type Proxy interface {
	Complete(ctx context.Context, request dto.CompletionRequest) (*dto.CompletionResponse, error)
}

type Option func(s *Session)

// WithClock replaces time.Now for Interaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithUnreachableText sets the text recorded when the proxy cannot be reached at all.
func WithUnreachableText(text string) Option {
	return func(s *Session) {
		s.unreachableText = text
	}
}

type Session struct {
	proxy           Proxy
	now             func() time.Time
	unreachableText string

	mu           sync.Mutex
	state        State
	connectivity Connectivity
	probed       bool
	interactions []Interaction // most recent first
}

func New(proxy Proxy, opts ...Option) *Session {
	s := &Session{
		proxy:           proxy,
		now:             time.Now,
		unreachableText: "Failed to connect to the poetry proxy. Please make sure it's running locally.",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Probe checks connectivity once per session. Later calls return the first result without a request.
func (s *Session) Probe(ctx context.Context) Connectivity {
	s.mu.Lock()
	if s.probed {
		defer s.mu.Unlock()
		return s.connectivity
	}
	s.probed = true
	s.mu.Unlock()

	res, err := s.proxy.Complete(ctx, dto.CompletionRequest{Prompt: ProbeInput, Type: prompt.Rhyme.String()})
	connectivity := Disconnected
	if err == nil && res != nil && res.Success {
		connectivity = Connected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectivity = connectivity
	return connectivity
}

// Ready reports whether Submit would accept input right now.
func (s *Session) Ready(input string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Idle && strings.TrimSpace(input) != ""
}

// Submit sends the trimmed input to the proxy and records exactly one
// Interaction, failed or not. Empty input and concurrent submissions are
// rejected without calling the proxy.
func (s *Session) Submit(ctx context.Context, category prompt.Category, input string) (Interaction, error) {
	pending, err := s.Start(category, input)
	if err != nil {
		return Interaction{}, err
	}
	return pending.Resolve(ctx), nil
}

// Pending is an accepted submission whose proxy call has not been made yet.
type Pending struct {
	session  *Session
	category prompt.Category
	input    string
	once     sync.Once
	result   Interaction
}

// Start moves the session to Submitting without blocking. The caller must
// Resolve the returned Pending to return the session to Idle.
func (s *Session) Start(category prompt.Category, input string) (*Pending, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Submitting {
		return nil, ErrBusy
	}
	s.state = Submitting
	return &Pending{session: s, category: category, input: input}, nil
}

// Resolve calls the proxy and records the Interaction. Repeated calls return the first result.
func (p *Pending) Resolve(ctx context.Context) Interaction {
	p.once.Do(func() {
		p.result = p.session.complete(ctx, p.category, p.input)
	})
	return p.result
}

func (s *Session) complete(ctx context.Context, category prompt.Category, input string) Interaction {
	res, err := s.proxy.Complete(ctx, dto.CompletionRequest{Prompt: input, Type: category.String()})

	interaction := Interaction{
		Category: category,
		Input:    input,
	}
	switch {
	case err != nil || res == nil:
		interaction.Failed = true
		interaction.Text = ErrorPrefix + s.unreachableText
	case !res.Success:
		interaction.Failed = true
		interaction.Text = ErrorPrefix + res.Error
	default:
		interaction.Text = res.Response
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	interaction.CreatedAt = s.now()
	s.interactions = append([]Interaction{interaction}, s.interactions...)
	s.state = Idle
	return interaction
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Connectivity() Connectivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectivity
}

// Interactions returns a copy of the history, most recent first.
func (s *Session) Interactions() []Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out
}
