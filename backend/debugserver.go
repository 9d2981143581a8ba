package backend

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"codegen/ir"
)

// DebugEvent is one pipeline observation streamed to connected clients: a
// function's instruction count and stack bytes before or after
// post-processing, as produced by HooksFor.
type DebugEvent struct {
	Function         string `json:"function"`
	Pass             string `json:"pass,omitempty"`
	InstructionCount int    `json:"instructionCount"`
	StackBytes       uint64 `json:"stackBytes"`
}

// DebugServer streams DebugEvents to every connected websocket client,
// opt-in infrastructure for interactively watching a build's optimization
// passes land. Off by default; wire it into Backend.Hooks to use it.
type DebugServer struct {
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

// NewDebugServer constructs a DebugServer listening on addr once Start is
// called.
func NewDebugServer(addr string) *DebugServer {
	ds := &DebugServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/debug", ds.handleConn)
	ds.server = &http.Server{Addr: addr, Handler: mux}
	return ds
}

// Start begins listening in the background.
func (ds *DebugServer) Start() {
	go ds.server.ListenAndServe()
}

// Stop closes every client connection and the listener.
func (ds *DebugServer) Stop() error {
	ds.mu.Lock()
	for c := range ds.clients {
		c.Close()
	}
	ds.clients = make(map[*websocket.Conn]struct{})
	ds.mu.Unlock()
	return ds.server.Close()
}

func (ds *DebugServer) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := ds.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ds.mu.Lock()
	ds.clients[conn] = struct{}{}
	ds.mu.Unlock()
}

// Broadcast sends ev as JSON to every connected client, dropping (and
// disconnecting) any client whose write fails.
func (ds *DebugServer) Broadcast(ev DebugEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	for c := range ds.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.Close()
			delete(ds.clients, c)
		}
	}
}

// HooksFor builds Backend Hooks that broadcast a before/after DebugEvent
// pair for fnName through ds.
func (ds *DebugServer) HooksFor(fnName string) Hooks {
	return Hooks{
		BeforePostProcessing: func(ch *ir.CodeHolder) {
			ds.Broadcast(DebugEvent{Function: fnName, Pass: "before", InstructionCount: len(ch.Code), StackBytes: ch.StackBytes()})
		},
		AfterPostProcessing: func(ch *ir.CodeHolder) {
			ds.Broadcast(DebugEvent{Function: fnName, Pass: "after", InstructionCount: len(ch.Code), StackBytes: ch.StackBytes()})
		},
	}
}
