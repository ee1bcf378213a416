package gameserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/guessword/internal/config"
	"github.com/cory-johannsen/guessword/internal/game/engine"
	"github.com/cory-johannsen/guessword/internal/game/session"
	"github.com/cory-johannsen/guessword/internal/history"
	"github.com/cory-johannsen/guessword/internal/protocol"
	"github.com/cory-johannsen/guessword/internal/puzzle"
	"github.com/cory-johannsen/guessword/internal/testutil"
)

var gameString = strings.Repeat("XCATQDOGZW", 8)

type statusRecorder struct {
	mu      sync.Mutex
	serving []bool
}

func (r *statusRecorder) SetServing(serving bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serving = append(r.serving, serving)
}

func (r *statusRecorder) last() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.serving) == 0 {
		return false, false
	}
	return r.serving[len(r.serving)-1], true
}

type panicOnceLoader struct {
	next     engine.PuzzleLoader
	panicked atomic.Bool
}

func (l *panicOnceLoader) Load() (*puzzle.Puzzle, error) {
	if l.panicked.CompareAndSwap(false, true) {
		panic("loader exploded")
	}
	return l.next.Load()
}

type harness struct {
	server   *Server
	registry *session.Registry
	status   *statusRecorder
	addr     string
	done     chan error
}

func writePuzzles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := gameString + "\n2\nCAT\nDOG\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat-dog.txt"), []byte(content), 0o644))
	return dir
}

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		MaxMessageBytes: 128,
		ShutdownGrace:   2 * time.Second,
	}
}

func newHarness(t *testing.T, wrap func(engine.PuzzleLoader) engine.PuzzleLoader) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	var loader engine.PuzzleLoader = puzzle.NewLoader(writePuzzles(t), puzzle.NewCryptoSource())
	if wrap != nil {
		loader = wrap(loader)
	}
	registry := session.NewRegistry()
	eng := engine.New(registry, loader, engine.UUIDGenerator{}, history.Nop{}, logger)

	h := &harness{
		registry: registry,
		status:   &statusRecorder{},
		done:     make(chan error, 1),
	}
	h.server = NewServer(testConfig(), eng, h.status, logger)
	go func() {
		h.done <- h.server.Start()
	}()

	select {
	case <-h.server.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start in time")
	}
	h.addr = h.server.Addr()
	require.Eventually(t, func() bool { return h.server.State() == StateListening }, 2*time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		h.server.Stop()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop in time")
		}
	})
	return h
}

func decode(t *testing.T, wire string) protocol.Message {
	t.Helper()
	msg, err := protocol.Decode([]byte(wire))
	require.NoError(t, err)
	return msg
}

func newGame(t *testing.T, addr string) string {
	t.Helper()
	reply := decode(t, testutil.Exchange(t, addr, "SessionID="))
	id, ok := reply.Get(protocol.KeySessionID)
	require.True(t, ok)
	gs, _ := reply.Get(protocol.KeyGameString)
	assert.Equal(t, gameString, gs)
	remaining, _ := reply.Get(protocol.KeyRemainingWords)
	assert.Equal(t, "2", remaining)
	return id
}

// registerListener opens a listener connection and returns it with its id.
func registerListener(t *testing.T, addr string) (*testutil.GameClient, string) {
	t.Helper()
	client := testutil.NewGameClient(t, addr)
	client.Send("SessionID=ClientListener")
	reply := client.ReadUntil("ListenerID=", 2*time.Second)
	id, ok := decode(t, reply).Get(protocol.KeyListenerID)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return client, id
}

func TestServer_PlayToWin(t *testing.T) {
	h := newHarness(t, nil)
	id := newGame(t, h.addr)

	assert.Equal(t, "GameMessage=Wrong guess!;RemainingWords=2",
		testutil.Exchange(t, h.addr, fmt.Sprintf("SessionID=%s;Guess=BIRD", id)))
	assert.Equal(t, "GameMessage=Correct!;RemainingWords=1",
		testutil.Exchange(t, h.addr, fmt.Sprintf("SessionID=%s;Guess=CAT", id)))
	assert.Equal(t, "GameMessage=Wrong guess!;RemainingWords=1",
		testutil.Exchange(t, h.addr, fmt.Sprintf("SessionID=%s;Guess=CAT", id)))
	assert.Equal(t, "GameMessage="+engine.MsgWin+";GameEnd=yes",
		testutil.Exchange(t, h.addr, fmt.Sprintf("SessionID=%s;Guess=DOG;", id)))

	assert.Equal(t, 0, h.registry.Len())
}

func TestServer_TimeUpClosesListener(t *testing.T) {
	h := newHarness(t, nil)
	listener, listenerID := registerListener(t, h.addr)
	id := newGame(t, h.addr)
	assert.Equal(t, 2, h.registry.Len())

	reply := testutil.Exchange(t, h.addr, fmt.Sprintf("SessionID=%s;ListenerID=%s;TimeUp=Yes", id, listenerID))
	assert.Equal(t, "GameMessage="+engine.MsgTimeUp+";GameEnd=yes", reply)

	assert.Empty(t, listener.ReadAll(2*time.Second), "listener is closed without a message")
	assert.Equal(t, 0, h.registry.Len())
}

func TestServer_ShutdownBroadcastsToListeners(t *testing.T) {
	h := newHarness(t, nil)
	first, _ := registerListener(t, h.addr)
	second, _ := registerListener(t, h.addr)
	newGame(t, h.addr)
	games, listeners := h.registry.Counts()
	require.Equal(t, 1, games)
	require.Equal(t, 2, listeners)

	h.server.Shutdown()
	h.server.Shutdown()

	for _, c := range []*testutil.GameClient{first, second} {
		assert.Equal(t, "GameMessage=Server is shutting down;GameEnd=ServerShutDown", c.ReadAll(2*time.Second))
	}

	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
	assert.Equal(t, StateStopped, h.server.State())
	serving, ok := h.status.last()
	require.True(t, ok)
	assert.False(t, serving)

	games, listeners = h.registry.Counts()
	assert.Equal(t, 1, games, "game sessions are not notified")
	assert.Equal(t, 0, listeners)
}

func TestServer_ListenerDisconnectReleasesRegistration(t *testing.T) {
	h := newHarness(t, nil)
	listener, _ := registerListener(t, h.addr)
	require.Equal(t, 1, h.registry.Len())

	listener.Close()
	require.Eventually(t, func() bool { return h.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_MalformedRequest(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, "GameMessage="+engine.MsgFormatIssue, testutil.Exchange(t, h.addr, "hello"))
	assert.Equal(t, 0, h.registry.Len())

	id := newGame(t, h.addr)
	reply := testutil.Exchange(t, h.addr, fmt.Sprintf("SessionID=%s;junk;Guess=DOG", id))
	decoded, err := protocol.Decode([]byte(reply))
	require.NoError(t, err)
	msg, _ := decoded.Get(protocol.KeyGameMessage)
	assert.Equal(t, engine.MsgCorrect, msg)
	remaining, ok := decoded.Get(protocol.KeyRemainingWords)
	require.True(t, ok)
	assert.Equal(t, "1", remaining)
}

func TestServer_OversizedRequest(t *testing.T) {
	h := newHarness(t, nil)

	reply := testutil.Exchange(t, h.addr, "SessionID=;Guess="+strings.Repeat("A", 200))
	assert.Equal(t, "GameMessage=Message exceeds 128 bytes", reply)
	assert.Equal(t, 0, h.registry.Len())
}

func TestServer_RequestAtSizeLimitIsDispatched(t *testing.T) {
	h := newHarness(t, nil)

	prefix := "SessionID=;Guess="
	req := prefix + strings.Repeat("A", 128-len(prefix))
	require.Len(t, req, 128)

	decoded, err := protocol.Decode([]byte(testutil.Exchange(t, h.addr, req)))
	require.NoError(t, err)
	_, ok := decoded.Get(protocol.KeySessionID)
	assert.True(t, ok)
	assert.Equal(t, 1, h.registry.Len())
}

func TestServer_EmptyConnection(t *testing.T) {
	h := newHarness(t, nil)
	client := testutil.NewGameClient(t, h.addr)
	client.Close()

	newGame(t, h.addr)
}

func TestServer_HandlerPanicIsIsolated(t *testing.T) {
	h := newHarness(t, func(next engine.PuzzleLoader) engine.PuzzleLoader {
		return &panicOnceLoader{next: next}
	})

	assert.Empty(t, testutil.Exchange(t, h.addr, "SessionID="))
	newGame(t, h.addr)
	assert.Equal(t, StateListening, h.server.State())
}

func TestServer_ConcurrentGames(t *testing.T) {
	h := newHarness(t, nil)

	const players = 10
	ids := make([]string, players)
	for i := range ids {
		ids[i] = newGame(t, h.addr)
	}

	var wg sync.WaitGroup
	replies := make([]string, players)
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := testutil.NewGameClient(t, h.addr)
			c.Send(fmt.Sprintf("SessionID=%s;Guess=CAT", id))
			replies[i] = c.ReadUntil("RemainingWords", 5*time.Second)
		}()
	}
	wg.Wait()

	for _, r := range replies {
		assert.Equal(t, "GameMessage=Correct!;RemainingWords=1", r)
	}
	games, _ := h.registry.Counts()
	assert.Equal(t, players, games)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	logger := zaptest.NewLogger(t)
	eng := engine.New(session.NewRegistry(), puzzle.NewLoader(t.TempDir(), puzzle.NewCryptoSource()),
		engine.UUIDGenerator{}, history.Nop{}, logger)
	srv := NewServer(testConfig(), eng, nil, logger)

	srv.Shutdown()
	srv.Shutdown()
	assert.Error(t, srv.Start())
	assert.Equal(t, StateStopped, srv.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "shutting_down", StateShuttingDown.String())
	assert.Equal(t, "State(9)", State(9).String())
}
