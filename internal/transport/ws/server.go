package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/session"
)

// Host is the session surface the server talks to.
type Host interface {
	Join() chan<- session.JoinRequest
	Leave() chan<- string
	Inbox() chan<- session.ActionEnvelope
}

type Server struct {
	host Host
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(h Host, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		host: h,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(r.Context(), conn)
		if playerID == "" {
			return
		}
		s.log.Printf("connected %s from %s", playerID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			act, reason := decodeAct(msg)
			if reason != "" {
				reject(out, protocol.ErrProtoBadRequest, reason)
				continue
			}
			act.PlayerID = playerID
			select {
			case s.host.Inbox() <- session.ActionEnvelope{PlayerID: playerID, Act: act}:
			case <-ctx.Done():
			default:
				reject(out, protocol.ErrSessionBusy, "session inbox full")
			}
		}

		// Cleanup.
		s.host.Leave() <- playerID
		s.log.Printf("disconnected %s", playerID)
	}
}

// decodeAct parses an ACT frame. A non-empty reason means the frame was
// rejected.
func decodeAct(msg []byte) (protocol.ActMsg, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ActMsg{}, "malformed json"
	}
	if base.Type != protocol.TypeAct {
		return protocol.ActMsg{}, "expected ACT, got " + base.Type
	}
	var act protocol.ActMsg
	if err := json.Unmarshal(msg, &act); err != nil {
		return protocol.ActMsg{}, "malformed ACT"
	}
	if act.ProtocolVersion != protocol.Version {
		return protocol.ActMsg{}, "bad protocol_version"
	}
	return act, ""
}

// reject queues an ERROR frame for the writer goroutine. It is dropped when
// the client queue is full.
func reject(out chan []byte, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, protocol.ErrProtoBadRequest)
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan session.JoinResponse, 1)
	select {
	case s.host.Join() <- session.JoinRequest{Name: hello.PlayerName, Out: out, Resp: respCh}:
	case <-ctx.Done():
		return "", nil
	}
	var resp session.JoinResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.host.Leave() <- resp.Welcome.PlayerID
		return "", nil
	}
	return resp.Welcome.PlayerID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
