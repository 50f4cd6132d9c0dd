package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/engine"
	"github.com/FocuswithJustin/Bolder/core/highlight"
	"github.com/FocuswithJustin/Bolder/core/mutation"
	"github.com/FocuswithJustin/Bolder/core/script"
	"github.com/FocuswithJustin/Bolder/internal/logging"
	"github.com/FocuswithJustin/Bolder/internal/settings"
)

// Client message types.
const (
	MsgLoad   = "load"   // replace the session document
	MsgScript = "script" // apply a mutation script to the document
	MsgSweep  = "sweep"  // run a stale-region sweep now
	MsgRender = "render" // return the annotated document
	MsgStats  = "stats"  // return engine counters
)

// Server message types.
const (
	MsgReady    = "ready"
	MsgCommands = "commands"
	MsgDocument = "document"
	MsgError    = "error"
)

// clientMessage is a message from a session client.
type clientMessage struct {
	Type   string `json:"type"`
	HTML   string `json:"html,omitempty"`
	XHTML  bool   `json:"xhtml,omitempty"`
	Host   string `json:"host,omitempty"`
	Script string `json:"script,omitempty"`

	decodeErr error
}

func decodeClientMessage(data []byte) clientMessage {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return clientMessage{decodeErr: err}
	}
	return msg
}

// serverMessage is a message to a session client. Commands carry node IDs
// and UTF-16 offsets.
type serverMessage struct {
	Type     string                  `json:"type"`
	Session  string                  `json:"session,omitempty"`
	Trigger  string                  `json:"trigger,omitempty"`
	Enabled  *bool                   `json:"enabled,omitempty"`
	Commands []highlight.WireCommand `json:"commands,omitempty"`
	Batches  []mutation.Stats        `json:"batches,omitempty"`
	Regions  int                     `json:"regions"`
	Stats    *engine.Stats           `json:"stats,omitempty"`
	HTML     string                  `json:"html,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID        string `json:"id"`
	Remote    string `json:"remote"`
	CreatedAt string `json:"created_at"`
	Regions   int64  `json:"regions"`
	Messages  int64  `json:"messages"`
}

// sessionConfig is what a session needs from the server.
type sessionConfig struct {
	engine       engine.Config
	messageRate  int
	loadSettings func(context.Context) (settings.Settings, error)
}

// Session is one live document. Its engine, document and synchronizer are
// owned by the loop goroutine; the pumps only move bytes.
type Session struct {
	id      string
	remote  string
	created time.Time
	conn    *websocket.Conn
	send    chan []byte
	limiter *tokenBucket
	cfg     sessionConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closeCode int
	closeText string

	regions  atomic.Int64
	messages atomic.Int64

	// Loop-owned state.
	recorder *highlight.Recorder
	engine   *engine.Engine
	doc      *dom.Document
	sync     *mutation.Synchronizer
}

func newSession(parent context.Context, conn *websocket.Conn, cfg sessionConfig, remote string) *Session {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(logging.WithSessionID(parent, id))
	rate := cfg.messageRate
	if rate <= 0 {
		rate = DefaultWebSocketSecurityConfig().MaxMessageRate
	}
	return &Session{
		id:        id,
		remote:    remote,
		created:   time.Now().UTC(),
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		limiter:   newTokenBucket(float64(rate)*2, float64(rate)),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		closeCode: websocket.CloseNormalClosure,
		recorder:  &highlight.Recorder{},
	}
}

// ID returns the session's UUID.
func (sess *Session) ID() string { return sess.id }

// Info snapshots the session for listings. Safe from any goroutine.
func (sess *Session) Info() SessionInfo {
	return SessionInfo{
		ID:        sess.id,
		Remote:    sess.remote,
		CreatedAt: sess.created.Format(time.RFC3339Nano),
		Regions:   sess.regions.Load(),
		Messages:  sess.messages.Load(),
	}
}

// closeWith records why the session ends and cancels it. The write pump
// sends the close frame.
func (sess *Session) closeWith(code int, text string) {
	sess.mu.Lock()
	sess.closeCode, sess.closeText = code, text
	sess.mu.Unlock()
	sess.cancel()
}

func (sess *Session) closeReason() (int, string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closeCode, sess.closeText
}

// loop runs every engine operation for the session on one goroutine,
// including the periodic safety-net sweep.
func (sess *Session) loop(inbox <-chan clientMessage) {
	interval := sess.cfg.engine.SweepInterval
	if interval <= 0 {
		interval = engine.DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sess.emit(serverMessage{Type: MsgReady, Session: sess.id})
	for {
		select {
		case <-sess.ctx.Done():
			return
		case msg := <-inbox:
			sess.messages.Add(1)
			sess.handle(msg)
		case <-ticker.C:
			if sess.sync != nil {
				sess.sync.Sweep("interval")
				if sess.recorder.Len() > 0 {
					sess.flush("interval", nil)
				}
			}
		}
	}
}

// handle dispatches one client message.
func (sess *Session) handle(msg clientMessage) {
	if msg.decodeErr != nil {
		sess.fail(fmt.Errorf("invalid message: %w", msg.decodeErr))
		return
	}
	switch msg.Type {
	case MsgLoad:
		sess.load(msg)
	case MsgScript:
		sess.runScript(msg.Script)
	case MsgSweep:
		if sess.requireDocument() {
			sess.sync.Sweep("client")
			sess.flush(MsgSweep, nil)
		}
	case MsgRender:
		if sess.requireDocument() {
			sess.emit(serverMessage{
				Type:    MsgDocument,
				Regions: sess.engine.Registry().Len(),
				HTML:    dom.RenderString(sess.doc.Root, sess.engine.Marks("")),
			})
		}
	case MsgStats:
		if sess.requireDocument() {
			stats := sess.engine.Stats()
			sess.emit(serverMessage{Type: MsgStats, Regions: sess.engine.Registry().Len(), Stats: &stats})
		}
	default:
		sess.fail(fmt.Errorf("unknown message type %q", msg.Type))
	}
}

// load replaces the session document. Regions of the previous document are
// withdrawn first so the client can drop them.
func (sess *Session) load(msg clientMessage) {
	if sess.engine != nil {
		sess.engine.Registry().Clear()
		sess.engine, sess.doc, sess.sync = nil, nil, nil
	}

	cfg := sess.cfg.engine
	enabled := true
	if msg.Host != "" && sess.cfg.loadSettings != nil {
		st, err := sess.cfg.loadSettings(sess.ctx)
		if err != nil {
			sess.fail(err)
			return
		}
		enabled = st.EnabledFor(msg.Host)
		cfg.MinWordsInBlock = st.MinWordsInBlock
	}
	if !enabled {
		sess.flush(MsgLoad, &enabled)
		return
	}

	var (
		doc *dom.Document
		err error
	)
	if msg.XHTML {
		doc, err = dom.ParseXHTMLBytes([]byte(msg.HTML))
	} else {
		doc, err = dom.ParseHTMLString(msg.HTML)
	}
	if err != nil {
		sess.flush(MsgLoad, nil)
		sess.fail(err)
		return
	}

	e, err := engine.New(cfg, sess.recorder)
	if err == nil {
		err = e.Start(doc)
	}
	if err != nil {
		sess.flush(MsgLoad, nil)
		sess.fail(err)
		return
	}
	doc.Observe(true)
	sess.engine, sess.doc, sess.sync = e, doc, mutation.New(e)
	sess.flush(MsgLoad, &enabled)
}

// runScript parses and applies a mutation script, forwarding commands after
// every batch.
func (sess *Session) runScript(src string) {
	if !sess.requireDocument() {
		return
	}
	s, err := script.ParseString("session", src)
	if err != nil {
		sess.fail(err)
		return
	}
	runner := &script.Runner{
		Doc:  sess.doc,
		Sync: sess.sync,
		OnBatch: func(st mutation.Stats) {
			sess.flush(MsgScript, []mutation.Stats{st})
		},
	}
	if _, err := runner.Run(sess.ctx, s); err != nil {
		sess.fail(err)
	}
}

func (sess *Session) requireDocument() bool {
	if sess.engine == nil {
		sess.fail(fmt.Errorf("no document loaded"))
		return false
	}
	return true
}

// flush sends the pending rendering commands. extra is either the enabled
// flag for load replies or the batches for script replies.
func (sess *Session) flush(trigger string, extra any) {
	msg := serverMessage{
		Type:     MsgCommands,
		Trigger:  trigger,
		Commands: highlight.CommandsToWire(sess.recorder.Take()),
	}
	switch v := extra.(type) {
	case *bool:
		msg.Enabled = v
	case []mutation.Stats:
		msg.Batches = v
	}
	if sess.engine != nil {
		msg.Regions = sess.engine.Registry().Len()
	}
	sess.regions.Store(int64(msg.Regions))
	sess.emit(msg)
}

func (sess *Session) fail(err error) {
	logging.WarnContext(sess.ctx, "session_error", "error", err.Error())
	sess.emit(serverMessage{Type: MsgError, Error: err.Error()})
}

// emit queues msg for the write pump. A client that cannot keep up is
// disconnected rather than allowed to stall the engine.
func (sess *Session) emit(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.ErrorContext(sess.ctx, "session_encode_failed", "error", err.Error())
		return
	}
	select {
	case sess.send <- data:
	case <-sess.ctx.Done():
	default:
		logging.WarnContext(sess.ctx, "session_send_buffer_full")
		sess.closeWith(websocket.CloseTryAgainLater, "Client too slow")
	}
}
