package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blackbox/pkg/devices"
	"blackbox/pkg/emulator"
	"blackbox/pkg/peripherals"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/vfs"
)

// Session is one browser tab. Its loop goroutine owns the emulator; only
// writePump writes to the socket.
type Session struct {
	ID string

	srv  *Server
	conn *websocket.Conn
	loop *scheduler.Loop
	recv *peripherals.MessageReceiver
	out  *peripherals.MessageSender
	emu  *emulator.Emulator

	send chan []byte
	done chan struct{}
}

func newSession(srv *Server, conn *websocket.Conn) *Session {
	s := &Session{
		ID:   uuid.New().String(),
		srv:  srv,
		conn: conn,
		loop: scheduler.NewLoop(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	s.out = peripherals.NewMessageSender(s.enqueue)
	s.recv = peripherals.NewMessageReceiver(peripherals.DefaultQueueSize, s.handle)
	return s
}

// enqueue encodes msg for the writer. A client that cannot keep up loses
// messages rather than stalling the run.
func (s *Session) enqueue(msg peripherals.Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	case <-s.done:
	default:
		s.srv.logger.Printf("session %s: send buffer full, dropped %s", s.ID, msg.Message)
	}
}

func (s *Session) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		s.loop.Run(ctx)
		close(loopDone)
	}()
	go s.writePump()

	s.out.Send(peripherals.Outbound{Message: peripherals.MsgHello, Session: s.ID})
	s.readPump()

	// Stop the run on its own goroutine so parked tasks unwind.
	stopped := make(chan struct{})
	s.loop.Post(func() {
		if s.emu != nil {
			s.emu.Stop()
		}
		close(stopped)
	})
	<-stopped
	cancel()
	<-loopDone
	close(s.done)
}

func (s *Session) readPump() {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.srv.logger.Printf("session %s: read: %v", s.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := s.recv.PushMessage(s.ID, data); err != nil {
			s.out.Error(err.Error(), 0)
			continue
		}
		s.loop.Post(func() { s.recv.Step() })
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handle runs on the loop goroutine.
func (s *Session) handle(_ string, in peripherals.Inbound) {
	switch in.Message {
	case peripherals.MsgRun:
		s.run(in.Code)
	case peripherals.MsgButton:
		b, err := devices.ParseButton(in.Button)
		if err != nil {
			s.out.Error(err.Error(), 0)
			return
		}
		if s.emu != nil {
			s.emu.Button(b, in.State)
		}
	case peripherals.MsgStop:
		if s.emu != nil {
			s.emu.Stop()
		}
	case peripherals.MsgSave:
		if err := s.srv.book.Write(vfs.SketchName(in.Name), in.Code); err != nil {
			s.out.Error(err.Error(), 0)
			return
		}
		if err := s.srv.persist(); err != nil {
			s.out.Error(err.Error(), 0)
		}
		s.list()
	case peripherals.MsgLoad:
		code, err := s.srv.book.Read(vfs.SketchName(in.Name))
		if err != nil {
			s.out.Error(err.Error(), 0)
			return
		}
		s.out.Send(peripherals.Outbound{Message: peripherals.MsgSketch, Name: in.Name, Code: code})
	case peripherals.MsgLs:
		s.list()
	}
}

func (s *Session) list() {
	s.out.Send(peripherals.Outbound{Message: peripherals.MsgList, Names: s.srv.book.Sketches()})
}

// run replaces the current run with a new one of code.
func (s *Session) run(code string) {
	if s.emu != nil {
		s.emu.Stop()
		s.emu = nil
	}
	prog, err := emulator.CompileWith(code, s.srv.book.Loader())
	if err != nil {
		s.out.Error(errorText(err), errorLine(err))
		return
	}
	emu, err := emulator.New(prog, s.loop, s.out,
		emulator.WithConsole(s.out),
		emulator.WithIterationDelay(s.srv.cfg.IterationDelay),
		emulator.WithStepBudget(s.srv.cfg.StepBudget),
		emulator.WithStopHandler(func(err error) {
			if err != nil {
				s.out.Panic(err.Error())
			}
			s.out.Status(scheduler.Stopped.String())
		}))
	if err != nil {
		s.out.Error(errorText(err), errorLine(err))
		return
	}
	s.emu = emu
	emu.Start()
	s.out.Status(emu.State().String())
}
