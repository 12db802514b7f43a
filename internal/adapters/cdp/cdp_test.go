package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// fakeBrowser is a scripted DevTools endpoint: /json/version plus a
// websocket speaking the id/method/params protocol.
type fakeBrowser struct {
	t       *testing.T
	server  *httptest.Server
	handler func(method string, params json.RawMessage) (any, *rpcError)

	mu     sync.Mutex
	calls  []string
	events [][]byte
}

func newFakeBrowser(t *testing.T, handler func(method string, params json.RawMessage) (any, *rpcError)) *fakeBrowser {
	t.Helper()

	f := &fakeBrowser{t: t, handler: handler}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/devtools/browser"
		_ = json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": wsURL})
	})
	mux.HandleFunc("/devtools/browser", f.serve)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBrowser) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var req rpcRequest
		var raw struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			f.t.Errorf("fake browser: undecodable request: %v", err)
			return
		}
		req.ID, req.Method = raw.ID, raw.Method

		f.mu.Lock()
		f.calls = append(f.calls, req.Method)
		pending := f.events
		f.events = nil
		f.mu.Unlock()

		result, rpcErr := f.handler(req.Method, raw.Params)
		resp := map[string]any{"id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		payload, _ := json.Marshal(resp)
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return
		}

		for _, ev := range pending {
			if err := conn.Write(ctx, websocket.MessageText, ev); err != nil {
				return
			}
		}
	}
}

// queueEvent schedules an event to be emitted after the next response.
func (f *fakeBrowser) queueEvent(method string, params any) {
	payload, err := json.Marshal(map[string]any{"method": method, "params": params})
	if err != nil {
		f.t.Fatalf("encode event: %v", err)
	}
	f.mu.Lock()
	f.events = append(f.events, payload)
	f.mu.Unlock()
}

func (f *fakeBrowser) recordedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func dialFake(t *testing.T, f *fakeBrowser) *Client {
	t.Helper()

	client, err := Dial(context.Background(), f.server.URL, log.NewNoopLogger())
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func okHandler(method string, params json.RawMessage) (any, *rpcError) {
	return map[string]any{}, nil
}

func TestClientCall(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFakeBrowser(t, okHandler)
		client := dialFake(t, f)

		if err := client.Call(context.Background(), "Network.clearBrowserCache", nil, nil); err != nil {
			t.Fatalf("Call returned error: %v", err)
		}
	})

	t.Run("protocol error surfaces", func(t *testing.T) {
		t.Parallel()

		f := newFakeBrowser(t, func(method string, params json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32601, Message: "method not found"}
		})
		client := dialFake(t, f)

		err := client.Call(context.Background(), "No.Such", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "method not found") {
			t.Fatalf("Call error = %v, want protocol error", err)
		}
	})

	t.Run("closed connection fails calls", func(t *testing.T) {
		t.Parallel()

		f := newFakeBrowser(t, okHandler)
		client := dialFake(t, f)
		_ = client.Close()

		// The read loop needs a moment to observe the closure.
		deadline := time.Now().Add(2 * time.Second)
		for {
			err := client.Call(context.Background(), "Network.clearBrowserCache", nil, nil)
			if err != nil {
				return
			}
			if time.Now().After(deadline) {
				t.Fatal("Call kept succeeding on a closed connection")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

func TestRemover_CachePass(t *testing.T) {
	t.Parallel()

	f := newFakeBrowser(t, okHandler)
	remover := NewRemover(dialFake(t, f), log.NewNoopLogger())

	req := ports.RemovalRequest{Types: domain.DataTypeSet{Cache: true, Appcache: true}}
	if err := remover.Remove(context.Background(), req); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	calls := f.recordedCalls()
	want := []string{"Network.clearBrowserCache", "Storage.clearDataForOrigin"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestRemover_CookiesWithExclusions(t *testing.T) {
	t.Parallel()

	var deleteParams []string
	var mu sync.Mutex

	f := newFakeBrowser(t, func(method string, params json.RawMessage) (any, *rpcError) {
		switch method {
		case "Storage.getCookies":
			return map[string]any{"cookies": []cookie{
				{Name: "sid", Domain: ".a.com", Path: "/"},
				{Name: "tracker", Domain: "b.com", Path: "/"},
			}}, nil
		case "Network.deleteCookies":
			mu.Lock()
			deleteParams = append(deleteParams, string(params))
			mu.Unlock()
			return map[string]any{}, nil
		default:
			return map[string]any{}, nil
		}
	})
	remover := NewRemover(dialFake(t, f), log.NewNoopLogger())

	req := ports.RemovalRequest{
		Types:          domain.CookieTypes(),
		ExcludeOrigins: []string{"https://a.com", "http://a.com"},
	}
	if err := remover.Remove(context.Background(), req); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(deleteParams) != 1 {
		t.Fatalf("deleted %d cookies, want 1 (only b.com)", len(deleteParams))
	}
	if !strings.Contains(deleteParams[0], "b.com") {
		t.Fatalf("deleted wrong cookie: %s", deleteParams[0])
	}

	for _, call := range f.recordedCalls() {
		if call == "Network.clearBrowserCookies" {
			t.Fatal("bulk cookie clear used despite exclusions")
		}
	}
}

func TestRemover_CookiesWithoutExclusionsUsesBulkClear(t *testing.T) {
	t.Parallel()

	f := newFakeBrowser(t, okHandler)
	remover := NewRemover(dialFake(t, f), log.NewNoopLogger())

	if err := remover.Remove(context.Background(), ports.RemovalRequest{Types: domain.CookieTypes()}); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if calls := f.recordedCalls(); len(calls) != 1 || calls[0] != "Network.clearBrowserCookies" {
		t.Fatalf("calls = %v, want [Network.clearBrowserCookies]", calls)
	}
}

func TestRemover_StorageWithExclusionsClearsPerOrigin(t *testing.T) {
	t.Parallel()

	var cleared []string
	var mu sync.Mutex

	f := newFakeBrowser(t, func(method string, params json.RawMessage) (any, *rpcError) {
		switch method {
		case "Target.getTargets":
			return map[string]any{"targetInfos": []targetInfo{
				{TargetID: "t1", Type: "page", URL: "https://keep.example/app"},
				{TargetID: "t2", Type: "page", URL: "https://wipe.example/home"},
				{TargetID: "t3", Type: "service_worker", URL: "https://ignored.example/sw.js"},
			}}, nil
		case "Storage.clearDataForOrigin":
			var p struct {
				Origin string `json:"origin"`
			}
			_ = json.Unmarshal(params, &p)
			mu.Lock()
			cleared = append(cleared, p.Origin)
			mu.Unlock()
			return map[string]any{}, nil
		default:
			return map[string]any{}, nil
		}
	})
	remover := NewRemover(dialFake(t, f), log.NewNoopLogger())

	req := ports.RemovalRequest{
		Types:          domain.StorageTypes(),
		ExcludeOrigins: []string{"https://keep.example", "http://keep.example"},
	}
	if err := remover.Remove(context.Background(), req); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(cleared) != 1 || cleared[0] != "https://wipe.example" {
		t.Fatalf("cleared origins = %v, want [https://wipe.example]", cleared)
	}
}

func TestWindows_CountNormalWindows(t *testing.T) {
	t.Parallel()

	f := newFakeBrowser(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"targetInfos": []targetInfo{
			{TargetID: "t1", Type: "page", URL: "https://a.com/"},
			{TargetID: "t2", Type: "page", URL: "devtools://devtools/bundled/inspector.html"},
			{TargetID: "t3", Type: "background_page", URL: "https://b.com/"},
		}}, nil
	})
	windows := NewWindows(dialFake(t, f), log.NewNoopLogger())

	n, err := windows.CountNormalWindows(context.Background())
	if err != nil {
		t.Fatalf("CountNormalWindows returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("counted %d normal windows, want 1", n)
	}
}

func TestWindows_WatchFiresOnPageClose(t *testing.T) {
	t.Parallel()

	f := newFakeBrowser(t, okHandler)
	client := dialFake(t, f)
	windows := NewWindows(client, log.NewNoopLogger())

	closed := make(chan struct{}, 1)
	if err := windows.Watch(context.Background(), func() {
		select {
		case closed <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}

	// A page appears, then goes away.
	f.queueEvent("Target.targetCreated", map[string]any{
		"targetInfo": targetInfo{TargetID: "t1", Type: "page", URL: "https://a.com/"},
	})
	f.queueEvent("Target.targetDestroyed", map[string]any{"targetId": "t1"})

	// Events are flushed after the next response.
	if err := client.Call(context.Background(), "Network.clearBrowserCache", nil, nil); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close callback never fired after page target destruction")
	}
}
