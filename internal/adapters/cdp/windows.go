package cdp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/taka-sakai/dehistory/pkg/log"
)

type targetInfo struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

// Windows implements ports.WindowEnumerator and surfaces window-close
// events. Page targets stand in for normal windows; devtools and extension
// pages are not counted.
type Windows struct {
	client *Client
	logger log.Logger

	mu      sync.Mutex
	pages   map[string]struct{}
	onClose func()
}

// NewWindows creates the enumerator and installs the client's event
// handler. Call Watch to start receiving close events.
func NewWindows(client *Client, logger log.Logger) *Windows {
	w := &Windows{
		client: client,
		logger: logger,
		pages:  make(map[string]struct{}),
	}
	client.SetEventHandler(w.handleEvent)
	return w
}

// CountNormalWindows returns the number of open page targets.
func (w *Windows) CountNormalWindows(ctx context.Context) (int, error) {
	var result struct {
		TargetInfos []targetInfo `json:"targetInfos"`
	}
	if err := w.client.Call(ctx, "Target.getTargets", nil, &result); err != nil {
		return 0, err
	}

	count := 0
	for _, t := range result.TargetInfos {
		if isNormalPage(t) {
			count++
		}
	}
	return count, nil
}

// Watch enables target discovery and invokes onClose every time a page
// target goes away. The notification fires after the host has dropped the
// target, so a CountNormalWindows call from the callback no longer sees the
// closed page.
func (w *Windows) Watch(ctx context.Context, onClose func()) error {
	w.mu.Lock()
	w.onClose = onClose
	w.mu.Unlock()

	return w.client.Call(ctx, "Target.setDiscoverTargets", map[string]bool{"discover": true}, nil)
}

func (w *Windows) handleEvent(method string, params json.RawMessage) {
	switch method {
	case "Target.targetCreated", "Target.targetInfoChanged":
		var ev struct {
			TargetInfo targetInfo `json:"targetInfo"`
		}
		if err := json.Unmarshal(params, &ev); err != nil {
			w.logger.Warn("devtools: bad target event", log.Err(err))
			return
		}
		w.mu.Lock()
		if isNormalPage(ev.TargetInfo) {
			w.pages[ev.TargetInfo.TargetID] = struct{}{}
		} else {
			delete(w.pages, ev.TargetInfo.TargetID)
		}
		w.mu.Unlock()

	case "Target.targetDestroyed":
		var ev struct {
			TargetID string `json:"targetId"`
		}
		if err := json.Unmarshal(params, &ev); err != nil {
			w.logger.Warn("devtools: bad target event", log.Err(err))
			return
		}

		w.mu.Lock()
		_, wasPage := w.pages[ev.TargetID]
		delete(w.pages, ev.TargetID)
		onClose := w.onClose
		w.mu.Unlock()

		if wasPage && onClose != nil {
			onClose()
		}
	}
}

func isNormalPage(t targetInfo) bool {
	if t.Type != "page" {
		return false
	}
	return !strings.HasPrefix(t.URL, "devtools://")
}
