package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Team-Zemo/omninet-core-sub000/internal/app/registry"
	"github.com/Team-Zemo/omninet-core-sub000/internal/app/server/ws"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/services"
	"github.com/Team-Zemo/omninet-core-sub000/internal/platform/logger"
	"github.com/Team-Zemo/omninet-core-sub000/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	hub      *registry.Registry
	messages services.IMessageService
	calls    services.ICallService
}

func NewWSHandler(hub *registry.Registry, messages services.IMessageService, calls services.ICallService) *WSHandler {
	return &WSHandler{
		hub:      hub,
		messages: messages,
		calls:    calls,
	}
}

// frame is the envelope for every inbound client message; the relevant
// fields depend on Type.
type frame struct {
	Type       string          `json:"type"`
	ReceiverID string          `json:"receiver_id,omitempty"`
	Content    string          `json:"content,omitempty"`
	Other      string          `json:"other,omitempty"`
	CalleeID   string          `json:"callee_id,omitempty"`
	CallType   domain.CallType `json:"call_type,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	Action     string          `json:"action,omitempty"`
	SDP        string          `json:"sdp,omitempty"`
	Candidate  string          `json:"candidate,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	var upgrader = websocket.Upgrader{
		ReadBufferSize:  32,
		WriteBufferSize: 32,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", "err", err)
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", "user_id", userID)
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, socket, userID)

	// Everything queued while the user was offline goes out on the handle
	// before it becomes addressable for live pushes, then the drain runs
	// once more to catch anything enqueued in between. That is what orders
	// queued messages ahead of messages sent after this connect event.
	if err := s.messages.DeliverPendingOnConnect(ctx, userID, client); err != nil {
		log.ErrorContext(ctx, "ws handler - connect - pending delivery failed", "user_id", userID, "err", err)
	}
	s.hub.Connect(userID, client)
	defer s.hub.Disconnect(client)
	if err := s.messages.DeliverPendingOnConnect(ctx, userID, client); err != nil {
		log.ErrorContext(ctx, "ws handler - connect - pending redelivery failed", "user_id", userID, "err", err)
	}
	log.InfoContext(ctx, "ws handler - ws connection established", "user_id", userID)

	socket.ReadLoop(func(data []byte) {
		go func(raw []byte) {
			s.dispatch(ctx, log, client, userID, raw)
		}(data)
	})
}

func (s *WSHandler) dispatch(ctx context.Context, log *slog.Logger, client *ws.RuntimeClient, userID string, raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Error("ws handler - dispatch - wrong format", "user_id", userID)
		s.pushError(ctx, client, "BAD_FRAME", "malformed frame")
		return
	}
	var err error
	switch f.Type {
	case domain.FrameSendMessage:
		_, err = s.messages.Send(ctx, userID, services.SendMessageDTO{
			ReceiverID: f.ReceiverID,
			Content:    f.Content,
		})
	case domain.FrameMarkRead:
		_, err = s.messages.MarkRead(ctx, userID, f.Other)
	case domain.FrameCallInitiate:
		_, err = s.calls.Initiate(ctx, userID, f.CalleeID, f.CallType, f.SDP)
	case domain.FrameCallRespond:
		var callID uuid.UUID
		if callID, err = uuid.Parse(f.CallID); err == nil {
			err = s.calls.Respond(ctx, userID, callID, f.Action, f.SDP)
		}
	case domain.FrameCallConfirm:
		var callID uuid.UUID
		if callID, err = uuid.Parse(f.CallID); err == nil {
			err = s.calls.ConfirmConnection(ctx, userID, callID)
		}
	case domain.FrameCallEnd:
		var callID uuid.UUID
		if callID, err = uuid.Parse(f.CallID); err == nil {
			err = s.calls.End(ctx, userID, callID, f.Reason)
		}
	case domain.FrameIceCandidate:
		if callID, perr := uuid.Parse(f.CallID); perr == nil {
			s.calls.RelayICECandidate(ctx, userID, callID, f.Candidate)
		}
	default:
		s.pushError(ctx, client, "UNKNOWN_FRAME", "unknown frame type: "+f.Type)
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "ws handler - dispatch - operation failed", "user_id", userID, "frame", f.Type, "err", err)
		s.pushError(ctx, client, errorCode(err), err.Error())
	}
}

func (s *WSHandler) pushError(ctx context.Context, client *ws.RuntimeClient, code, msg string) {
	data, _ := json.Marshal(domain.ErrorEvent{
		Type:    domain.TypeError,
		Code:    code,
		Message: msg,
	})
	_ = client.Send(ctx, data)
}
