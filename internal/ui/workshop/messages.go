// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workshop

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luoli0706/Ning-Prompt/internal/processor"
)

// =============================================================================
// MESSAGES
// =============================================================================

// Every generation message carries the id of the run that produced it so a
// late message from a cancelled run is dropped.

// fragmentMsg is one streamed fragment.
type fragmentMsg struct {
	id   int
	text string
}

// streamDoneMsg ends a streamed run; err is nil on a clean end.
type streamDoneMsg struct {
	id  int
	err error
}

// resultMsg ends a one-shot run.
type resultMsg struct {
	id     int
	result *processor.Result
	err    error
}

// templatesChangedMsg reports an edit in the template directory.
type templatesChangedMsg struct{}

// =============================================================================
// COMMANDS
// =============================================================================

// streamHandle pulls fragments from a processor stream one command at a
// time. next and stop are only ever called from one goroutine at a time:
// wait is re-issued after its message has been handled, and stop is called
// from Update after the final message.
type streamHandle struct {
	id   int
	next func() (string, error, bool)
	stop func()
}

func (h *streamHandle) wait() tea.Cmd {
	return func() tea.Msg {
		fragment, err, ok := h.next()
		switch {
		case !ok:
			return streamDoneMsg{id: h.id}
		case err != nil:
			return streamDoneMsg{id: h.id, err: err}
		default:
			return fragmentMsg{id: h.id, text: fragment}
		}
	}
}

func processOnce(ctx context.Context, gen Generator, id int, params processor.Params) tea.Cmd {
	return func() tea.Msg {
		res, err := gen.ProcessOnce(ctx, params)
		return resultMsg{id: id, result: res, err: err}
	}
}

// waitForChange delivers one templatesChangedMsg per signal on ch.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return templatesChangedMsg{}
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// cancelManager guards the cancel function of the running generation. It is
// held by pointer so Update's value copies share it.
type cancelManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
	}
	cm.cancel = fn
}

// clear cancels the context, if any, and forgets it. Safe to call repeatedly.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
		cm.cancel = nil
	}
}
