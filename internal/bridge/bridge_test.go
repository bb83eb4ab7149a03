package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/config"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
	"github.com/PerkLab/SlicerMatlabBridge/internal/supervisor"
	"github.com/PerkLab/SlicerMatlabBridge/internal/testutil/fakeserver"
	"github.com/PerkLab/SlicerMatlabBridge/internal/testutil/testlog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type refusingLauncher struct{}

func (refusingLauncher) Launch(context.Context, supervisor.LaunchSpec) supervisor.Result {
	return supervisor.Result{Outcome: supervisor.OutcomeLaunchError, Err: supervisor.ErrExecutablePathRequired}
}

func newBridge(t *testing.T, ep session.Endpoint, mutate func(*config.BridgeConfig)) *Server {
	t.Helper()
	cfg := config.DefaultBridgeConfig()
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}
	cc := commander.DefaultConfig()
	cc.Endpoint = ep
	cc.Session.ReceiveTimeout = 2 * time.Second
	exec := commander.NewExecutor(cc, commander.WithLauncher(refusingLauncher{}))
	return New(cfg, exec)
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func decodeCommand(t *testing.T, rr *httptest.ResponseRecorder) CommandResponse {
	t.Helper()
	var out CommandResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %s: %v", rr.Body.String(), err)
	}
	return out
}

func TestCommandRoundTrip(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, fakeserver.Static("4"))
	s := newBridge(t, srv.Endpoint(), nil)

	rr := post(t, s, "/v1/commands", `{"command":"2+2"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	out := decodeCommand(t, rr)
	if out.Status != "success" || out.Reply != "4" || out.CallID == "" {
		t.Fatalf("unexpected response %+v", out)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
}

func TestCommandErrorReplyAndOverride(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, fakeserver.Static("ERROR: boom"))
	s := newBridge(t, fakeserver.ReservePort(t), nil)

	ep := srv.Endpoint()
	body, _ := json.Marshal(CommandRequest{Command: "boom()", Host: ep.Host, Port: ep.Port, ReceiveTimeoutMS: 1000})
	out := decodeCommand(t, post(t, s, "/v1/commands", string(body)))
	if out.Status != "failed" || out.Reply != "ERROR: boom" || out.Error != "" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestCommandCannotConnect(t *testing.T) {
	testlog.Start(t)
	s := newBridge(t, fakeserver.ReservePort(t), nil)

	out := decodeCommand(t, post(t, s, "/v1/commands", `{"command":"x"}`))
	if out.Status != "failed" || out.Reply != commander.ReplyCannotConnect || out.Error == "" {
		t.Fatalf("unexpected response %+v", out)
	}
	if out.State != string(commander.StateConnectFailed) {
		t.Fatalf("state=%q", out.State)
	}
}

func TestCommandBadRequest(t *testing.T) {
	testlog.Start(t)
	s := newBridge(t, fakeserver.ReservePort(t), nil)
	for _, body := range []string{`{`, `{}`, `{"command":"x","receive_timeout_ms":-1}`} {
		if rr := post(t, s, "/v1/commands", body); rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d", body, rr.Code)
		}
	}
}

func TestExitEndpoint(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, nil)
	s := newBridge(t, srv.Endpoint(), nil)

	if rr := post(t, s, "/v1/exit", ""); rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	deadline := time.Now().Add(time.Second)
	for len(srv.Commands()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if cmds := srv.Commands(); len(cmds) != 1 || cmds[0] != commander.ExitCommand {
		t.Fatalf("server saw %q", cmds)
	}

	idle := newBridge(t, fakeserver.ReservePort(t), nil)
	if rr := post(t, idle, "/v1/exit", `{}`); rr.Code != http.StatusOK {
		t.Fatalf("exit without server: status=%d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, fakeserver.Static("ok"))
	s := newBridge(t, srv.Endpoint(), func(cfg *config.BridgeConfig) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	if rr := post(t, s, "/v1/commands", `{"command":"a"}`); rr.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rr.Code)
	}
	if rr := post(t, s, "/v1/commands", `{"command":"b"}`); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, fakeserver.Static("ok"))
	s := newBridge(t, srv.Endpoint(), nil)
	post(t, s, "/v1/commands", `{"command":"a"}`)

	for _, path := range []string{"/health", "/metrics"} {
		rr := httptest.NewRecorder()
		s.HTTPRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if path == "/metrics" && !bytes.Contains(rr.Body.Bytes(), []byte("matlab_bridge_commander_commands_total")) {
			t.Fatalf("metrics missing commander counters:\n%s", rr.Body.String())
		}
	}
}
