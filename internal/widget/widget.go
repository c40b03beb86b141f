// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget implements the embeddable chat widget core.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ParisNeo/tinyLollms/internal/model"
	"github.com/ParisNeo/tinyLollms/internal/render"
	"github.com/ParisNeo/tinyLollms/internal/transport"
)

// FallbackMessage is the fixed line shown in place of an assistant
// reply when a send fails. It is display-only: failure turns are never
// written into the conversation, so later requests stay free of
// placeholder text.
const FallbackMessage = "Sorry, I could not reach the server. Please try again."

// Error variables for widget operations. None of these are fatal; the
// host treats them as signals, not exceptions.
var (
	// ErrEmptySubmission marks a whitespace-only submit. Not a failure:
	// the host ignores it silently and nothing changes.
	ErrEmptySubmission = errors.New("empty submission")

	// ErrBusy marks a submit while a request is outstanding. The send
	// affordance is supposed to be disabled; submissions are ignored to
	// preserve append ordering.
	ErrBusy = errors.New("request already in flight")

	// ErrNotMounted marks use before Mount.
	ErrNotMounted = errors.New("widget not mounted")

	// ErrAlreadyMounted marks a second Mount on the same instance.
	ErrAlreadyMounted = errors.New("widget already mounted")

	// ErrTornDown marks work arriving after Teardown; results are
	// discarded rather than applied to a destroyed instance.
	ErrTornDown = errors.New("widget torn down")

	// ErrModelNotAllowed marks a selection outside the allowed list.
	ErrModelNotAllowed = errors.New("model not in allowed list")
)

// =============================================================================
// WIDGET STATE
// =============================================================================

// State represents the conversation state machine.
type State int

const (
	StateIdle             State = iota // Ready for input
	StateAwaitingResponse              // A chat request is outstanding
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// =============================================================================
// DISPLAY ENTRIES
// =============================================================================

// EntryKind distinguishes what produced a display entry.
type EntryKind int

const (
	EntryUser     EntryKind = iota // user-authored, shown literally
	EntryAssistant                 // assistant reply, rendered as markup
	EntryWelcome                   // welcome text, display-only
	EntryFallback                  // failure line, display-only
)

// Entry is one rendered line of the conversation view. Raw holds the
// original text; Markup holds what the display layer shows. Welcome
// and fallback entries exist only here, never in the conversation log.
type Entry struct {
	Kind   EntryKind
	Raw    string
	Markup string
}

// ResponseEvent is the payload handed to completion listeners after a
// successful exchange.
type ResponseEvent struct {
	Text  string // assistant reply, unrendered
	Model string // model the request was sent with
}

// =============================================================================
// WIDGET
// =============================================================================

// Widget is one mounted chat widget instance: its configuration
// snapshot, its conversation log, its display entries, and its state
// machine. Instances are independent; nothing is shared between two
// Widgets, so a page embedding several tags runs several Widgets.
//
// The zero-value states: created, not yet mounted, Idle, closed.
// Lifecycle is Mount once, any number of HandleSubmit calls, Teardown
// once. A response arriving after Teardown is discarded via the
// generation check rather than cancelled; there is no cancellation
// machinery.
type Widget struct {
	mu         sync.Mutex
	cfg        Config
	conv       *model.Conversation
	entries    []Entry
	state      State
	open       bool
	mounted    bool
	alive      bool
	generation uint64

	client   *transport.Client
	pipeline *render.Pipeline

	listeners []func(ResponseEvent)
}

// New creates an unmounted widget talking to the given gateway client.
func New(client *transport.Client) *Widget {
	return &Widget{
		client:   client,
		pipeline: render.NewPipeline(),
		conv:     model.NewConversation(),
	}
}

// WithPipeline replaces the render pipeline (tests, custom policies).
func (w *Widget) WithPipeline(p *render.Pipeline) *Widget {
	if p != nil {
		w.pipeline = p
	}
	return w
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Mount reads the host attributes into the configuration snapshot and
// issues exactly one bootstrap fetch for the configured app key. The
// fetch is best-effort: on failure the widget keeps its locally
// configured model, title, and welcome text, and Mount still succeeds.
// Server-provided welcome text and allowed models, when present,
// override the local attribute values.
func (w *Widget) Mount(ctx context.Context, attrs Attrs) error {
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return ErrAlreadyMounted
	}
	w.mounted = true
	w.alive = true
	w.cfg = ConfigFromAttrs(attrs)
	appKey := w.cfg.AppKey
	gen := w.generation
	w.mu.Unlock()

	info, err := w.client.FetchBootstrapInfo(ctx, appKey)

	w.mu.Lock()
	if !w.alive || gen != w.generation {
		w.mu.Unlock()
		return ErrTornDown
	}
	if err == nil && info != nil {
		if len(info.AllowedModels) > 0 {
			w.cfg.AllowedModels = append([]string(nil), info.AllowedModels...)
		}
		if info.WelcomeMessage != "" {
			w.cfg.WelcomeMessage = info.WelcomeMessage
		}
		w.cfg.normalize()
	}
	if w.cfg.WelcomeMessage != "" {
		w.entries = append(w.entries, Entry{
			Kind:   EntryWelcome,
			Raw:    w.cfg.WelcomeMessage,
			Markup: w.pipeline.Render(w.cfg.WelcomeMessage),
		})
	}
	w.state = StateIdle
	w.mu.Unlock()
	return nil
}

// Teardown destroys the instance. Idempotent. Any in-flight response
// observes the generation bump and is discarded on arrival.
func (w *Widget) Teardown() {
	w.mu.Lock()
	w.alive = false
	w.generation++
	w.mu.Unlock()
}

// Alive reports whether the instance is mounted and not torn down.
func (w *Widget) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive
}

// =============================================================================
// SUBMIT PATH
// =============================================================================

// HandleSubmit runs one user turn through the state machine: append
// the user message, send the full history, append the reply.
//
// Whitespace-only text is a no-op (ErrEmptySubmission; no network call
// is made). A submit while a request is outstanding is ignored
// (ErrBusy). On transport failure the fallback line is displayed, the
// conversation keeps only the user half, and the state returns to
// Idle; the error is returned for the host's own logging but nothing
// is required of it. The selected model is read here, at send time.
func (w *Widget) HandleSubmit(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptySubmission
	}

	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return "", ErrNotMounted
	}
	if !w.alive {
		w.mu.Unlock()
		return "", ErrTornDown
	}
	if w.state == StateAwaitingResponse {
		w.mu.Unlock()
		return "", ErrBusy
	}

	w.state = StateAwaitingResponse
	w.conv.AppendUser(trimmed)
	w.entries = append(w.entries, Entry{
		Kind:   EntryUser,
		Raw:    trimmed,
		Markup: render.EscapeText(trimmed),
	})

	snapshot := w.conv.Snapshot()
	appKey := w.cfg.AppKey
	modelID := w.cfg.SelectedModel
	gen := w.generation
	w.mu.Unlock()

	// Suspension point: the only place this turn waits.
	reply, err := w.client.SendChat(ctx, appKey, modelID, snapshot)

	w.mu.Lock()
	if !w.alive || gen != w.generation {
		w.mu.Unlock()
		return "", ErrTornDown
	}

	// Whatever happened, the loading state is cleared. No path leaves
	// the widget stuck in AwaitingResponse.
	w.state = StateIdle

	if err != nil {
		w.entries = append(w.entries, Entry{
			Kind:   EntryFallback,
			Raw:    FallbackMessage,
			Markup: render.EscapeText(FallbackMessage),
		})
		w.mu.Unlock()
		return "", err
	}

	w.conv.AppendAssistant(reply)
	w.entries = append(w.entries, Entry{
		Kind:   EntryAssistant,
		Raw:    reply,
		Markup: w.pipeline.Render(reply),
	})
	listeners := make([]func(ResponseEvent), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	event := ResponseEvent{Text: reply, Model: modelID}
	for _, fn := range listeners {
		fn(event)
	}
	return reply, nil
}

// =============================================================================
// PANEL & SELECTOR
// =============================================================================

// ToggleOpen flips the panel open/closed. Orthogonal to the
// conversation state machine: it works regardless of in-flight sends.
func (w *Widget) ToggleOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = !w.open
	return w.open
}

// IsOpen reports the panel state.
func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// SelectorVisible reports whether the model selector should be shown.
func (w *Widget) SelectorVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.SelectorVisible()
}

// SelectModel updates the selected model. With a non-empty allowed
// list the selection must be a member; an empty list is unrestricted
// from the widget's perspective.
func (w *Widget) SelectModel(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.cfg.AllowedModels) > 0 && !w.cfg.modelAllowed(id) {
		return ErrModelNotAllowed
	}
	w.cfg.SelectedModel = id
	return nil
}

// =============================================================================
// SNAPSHOT ACCESS
// =============================================================================

// Config returns a copy of the current configuration snapshot.
func (w *Widget) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.clone()
}

// Reconfigure recomputes the snapshot from new host attributes without
// remounting. Deterministic and explicit: the new attributes win over
// any earlier dropdown selection, while bootstrap-derived allowed
// models and welcome text survive. Called by host adapters whenever
// host-level configuration changes.
func (w *Widget) Reconfigure(attrs Attrs) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := ConfigFromAttrs(attrs)
	next.AllowedModels = append([]string(nil), w.cfg.AllowedModels...)
	if next.WelcomeMessage == "" {
		next.WelcomeMessage = w.cfg.WelcomeMessage
	}
	next.normalize()
	w.cfg = next
}

// State returns the current conversation state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// History returns a copy of the conversation log.
func (w *Widget) History() []model.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conv.Snapshot()
}

// Entries returns a copy of the display entries in order.
func (w *Widget) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// OnResponse registers a completion listener. Listeners observe every
// successful exchange; they are informational and never required for
// the widget's own correctness.
func (w *Widget) OnResponse(fn func(ResponseEvent)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}
