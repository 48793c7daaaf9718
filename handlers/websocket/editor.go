// Package websocket carries pointer streams from editor clients into live
// sessions and pushes rendered frames back over socket.io. Every session is
// a socket.io room named by the session id.
package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"sync"

	"canvas-editor/editor/interaction"
	"canvas-editor/editor/viewport"
	"canvas-editor/sessions"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type ackInvoker func(err error, payload map[string]any)

var (
	activeSessions = make(map[string]int)
	sessionsMutex  sync.RWMutex
)

// GetActiveSessions returns the number of connected sockets per session.
func GetActiveSessions() map[string]int {
	sessionsMutex.RLock()
	defer sessionsMutex.RUnlock()

	out := make(map[string]int, len(activeSessions))
	for k, v := range activeSessions {
		out[k] = v
	}
	return out
}

func setConnected(sessionID string, n int) {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()
	if n <= 0 {
		delete(activeSessions, sessionID)
		return
	}
	activeSessions[sessionID] = n
}

// SetupSocketIO builds the socket.io server and routes every frame the
// registry publishes to the room of its session.
func SetupSocketIO(reg *sessions.Registry) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin: []any{
			"tauri://localhost",
			localhostOrigin,
		},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	reg.OnFrame(func(sessionID string, frame viewport.Frame) {
		if err := srv.To(socketio.Room(sessionID)).Emit("frame", frame); err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to push frame")
		}
	})
	reg.OnClose(func(sessionID string) {
		setConnected(sessionID, 0)
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		me := socket.Id()
		logrus.WithField("socket_id", me).Debug("Socket connected")

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("join-session", func(datas ...any) {
			ack, args := extractAck(datas)
			s, err := sessionArg(reg, args)
			if err != nil {
				respondWithAck(socket, ack, "join-session-ack", errorPayload(err), err)
				return
			}

			room := socketio.Room(s.ID)
			socket.Join(room)
			logrus.WithFields(logrus.Fields{
				"socket_id":  me,
				"session_id": s.ID,
			}).Info("Socket joined session")

			srv.In(room).FetchSockets()(func(users []*socketio.RemoteSocket, fetchErr error) {
				if fetchErr != nil {
					respondWithAck(socket, ack, "join-session-ack", errorPayload(fetchErr), fetchErr)
					return
				}
				setConnected(s.ID, len(users))

				respondWithAck(socket, ack, "join-session-ack", map[string]any{
					"status":     "ok",
					"session_id": s.ID,
					"user_count": len(users),
					"frame":      s.Frame(),
				}, nil)
			})
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("leave-session", func(datas ...any) {
			_, args := extractAck(datas)
			if len(args) == 0 {
				return
			}
			if id, ok := args[0].(string); ok && id != "" {
				room := socketio.Room(id)
				socket.Leave(room)
				refreshCount(srv, room)
			}
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("pointer", func(datas ...any) {
			ack, args := extractAck(datas)
			s, err := sessionArg(reg, args)
			if err == nil && len(args) < 2 {
				err = errors.New("pointer event is required")
			}
			var events []sessions.Pointer
			if err == nil {
				events, err = decodePointers(args[1])
			}
			if err != nil {
				respondWithAck(socket, ack, "", errorPayload(err), err)
				return
			}

			s.Dispatch(events...)
			respondWithAck(socket, ack, "", map[string]any{"status": "ok"}, nil)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("wheel", func(datas ...any) {
			ack, args := extractAck(datas)
			s, err := sessionArg(reg, args)
			if err == nil && len(args) < 2 {
				err = errors.New("wheel event is required")
			}
			var ev interaction.WheelEvent
			if err == nil {
				err = decodeArg(args[1], &ev)
			}
			if err != nil {
				respondWithAck(socket, ack, "", errorPayload(err), err)
				return
			}

			s.Wheel(ev)
			respondWithAck(socket, ack, "", map[string]any{"status": "ok"}, nil)
		})

		socket.On("disconnecting", func(datas ...any) {
			for _, room := range socket.Rooms().Keys() {
				if string(room) == string(me) {
					continue
				}
				srv.In(room).FetchSockets()(func(users []*socketio.RemoteSocket, _ error) {
					others := 0
					for _, u := range users {
						if u.Id() != me {
							others++
						}
					}
					setConnected(string(room), others)
				})
			}
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

func refreshCount(srv *socketio.Server, room socketio.Room) {
	srv.In(room).FetchSockets()(func(users []*socketio.RemoteSocket, err error) {
		if err == nil {
			setConnected(string(room), len(users))
		}
	})
}

// sessionArg resolves the session id sent as the first event argument.
func sessionArg(reg *sessions.Registry, args []any) (*sessions.Session, error) {
	if len(args) == 0 {
		return nil, errors.New("session id is required")
	}
	id, ok := args[0].(string)
	if !ok || id == "" {
		return nil, errors.New("invalid session id")
	}
	return reg.Get(id)
}

// decodeArg converts a decoded socket.io argument into v by way of JSON.
func decodeArg(arg any, v any) error {
	raw, err := json.Marshal(arg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// decodePointers accepts a single pointer event or a batch.
func decodePointers(arg any) ([]sessions.Pointer, error) {
	raw, err := json.Marshal(arg)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		var batch []sessions.Pointer
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("invalid pointer batch: %w", err)
		}
		return batch, nil
	}

	var p sessions.Pointer
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid pointer event: %w", err)
	}
	if p.Kind == "" {
		return nil, errors.New("pointer kind is required")
	}
	return []sessions.Pointer{p}, nil
}

func errorPayload(err error) map[string]any {
	return map[string]any{
		"status": "error",
		"error":  err.Error(),
	}
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}

	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload map[string]any) {
		value.Call(buildAckArgs(typ, err, payload))
	}
}

// buildAckArgs fits (err, payload) to whatever signature the client's ack
// callback was registered with. A one-argument ack receives the error when
// there is one, else the payload.
func buildAckArgs(typ reflect.Type, err error, payload map[string]any) []reflect.Value {
	numIn := typ.NumIn()
	args := make([]reflect.Value, numIn)

	for i := 0; i < numIn; i++ {
		var v any
		switch {
		case numIn == 1 && err != nil:
			v = err
		case numIn == 1:
			v = payload
		case i == 0:
			v = err
		case i == 1:
			v = payload
		}
		args[i] = coerceValue(v, typ.In(i))
	}
	return args
}

func coerceValue(value any, target reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(target)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(target):
		return rv
	case rv.Type().ConvertibleTo(target):
		return rv.Convert(target)
	case target.Kind() == reflect.Interface && target.NumMethod() == 0:
		return rv
	case target.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(target)
	}
	return reflect.Zero(target)
}

func respondWithAck(socket *socketio.Socket, ack ackInvoker, event string, payload map[string]any, ackErr error) {
	if ack != nil {
		ack(ackErr, payload)
	}
	if event != "" && payload != nil {
		_ = socket.Emit(event, payload)
	}
}

// ActiveSession is a live session as listed by HandleActiveSessions.
type ActiveSession struct {
	ID         string `json:"id"`
	DesignID   string `json:"designId,omitempty"`
	Users      int    `json:"users"`
	Layers     int    `json:"layers"`
	LastActive int64  `json:"lastActive"`
}

// HandleActiveSessions lists the open sessions with their connected
// sockets, busiest first.
func HandleActiveSessions(reg *sessions.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := GetActiveSessions()

		list := make([]ActiveSession, 0, len(connected))
		for _, info := range reg.List() {
			list = append(list, ActiveSession{
				ID:         info.ID,
				DesignID:   info.DesignID,
				Users:      connected[info.ID],
				Layers:     info.Layers,
				LastActive: info.LastActive,
			})
		}

		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Users > list[j].Users
		})
		render.JSON(w, r, list)
	}
}
