package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-relay/internal/infrastructure/realtime"
	"chat-relay/internal/infrastructure/telemetry"
	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// Authenticator re-verifies the credential a connection holds.
type Authenticator interface {
	Authenticate(ctx context.Context, src auth.CredentialSource) (auth.Identity, error)
}

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
type ChatSocketController struct {
	router          *realtime.Router
	authenticator   Authenticator
	joinRoomUC      *usecase.JoinConversationUseCase
	sendMessageUC   *usecase.SendMessageUseCase
	log             *zap.Logger
	metrics         *telemetry.Metrics
	inflightTimeout time.Duration
}

func NewChatSocketController(
	router *realtime.Router,
	authenticator Authenticator,
	joinRoomUC *usecase.JoinConversationUseCase,
	sendMessageUC *usecase.SendMessageUseCase,
	log *zap.Logger,
	metrics *telemetry.Metrics,
) *ChatSocketController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatSocketController{
		router:          router,
		authenticator:   authenticator,
		joinRoomUC:      joinRoomUC,
		sendMessageUC:   sendMessageUC,
		log:             log,
		metrics:         metrics,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// echoed to clients that send the token as "bearer, <token>"
	Subprotocols: []string{"bearer"},
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
}

type errorFrame struct {
	Type           string `json:"type"`
	Code           string `json:"code"`
	Error          string `json:"error"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

type sentFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Message        gin.H  `json:"message"`
}

const (
	defaultReadTimeout = 60 * time.Second
	maxFrameSize       = 64 << 10
)

// Handle upgrades an authenticated handshake to a websocket and processes
// frames until the client disconnects. The guard has already verified the
// handshake credential, so a rejected caller never reaches the upgrade.
func (ctl *ChatSocketController) Handle() auth.HandlerFunc {
	return func(c *gin.Context, id auth.Identity) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response
			ctl.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		conn := realtime.NewConnection(id.UserID, ws)
		if !ctl.router.Attach(conn) {
			conn.Close(websocket.CloseGoingAway, "server shutting down")
			return
		}
		ctl.metrics.ConnectionOpened()
		log := ctl.log.With(zap.String("user_id", id.UserID), zap.String("connection_id", conn.ID))
		log.Debug("websocket connected")

		cred := id.Connection()
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
			ctl.metrics.ConnectionClosed()
			log.Debug("websocket disconnected")
		}()

		ws.SetReadLimit(maxFrameSize)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, ackFrame{Type: "connected", UserID: id.UserID})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					log.Debug("websocket read failed", zap.Error(err))
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload", "")
				continue
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c, conn, cred, frame)
			case "leave":
				ctl.handleLeave(conn, frame)
			case "message":
				ctl.handleMessage(c, conn, cred, frame)
			case "ping":
				ctl.reply(conn, ackFrame{Type: "pong"})
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type", frame.ConversationID)
			}
		}
	}
}

// reauthenticate verifies the token kept from the handshake; an expired token
// fails even though the socket is still open.
func (ctl *ChatSocketController) reauthenticate(ctx context.Context, conn *realtime.Connection, cred auth.ConnectionCredential) (auth.Identity, error) {
	id, err := ctl.authenticator.Authenticate(ctx, cred)
	if err != nil {
		return auth.Identity{}, err
	}
	if id.UserID != conn.UserID {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return id, nil
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, cred auth.ConnectionCredential, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	id, err := ctl.reauthenticate(ctx, conn, cred)
	if err == nil {
		_, err = ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
			ConversationID: frame.ConversationID,
			UserID:         id.UserID,
		})
	}
	if err != nil {
		_, code, message := classify(err)
		ctl.metrics.RoomJoin(code)
		ctl.replyError(conn, code, message, frame.ConversationID)
		return
	}

	if !ctl.router.Join(frame.ConversationID, conn) {
		ctl.metrics.RoomJoin("detached")
		return
	}
	ctl.metrics.RoomJoin("joined")
	ctl.reply(conn, ackFrame{Type: "joined", ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", "")
		return
	}
	ctl.router.Leave(frame.ConversationID, conn)
	ctl.reply(conn, ackFrame{Type: "left", ConversationID: frame.ConversationID})
}

// handleMessage sends through the same path as the HTTP endpoint; the sender
// gets a "sent" ack and room members get the newMessage push from the consumer.
func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, cred auth.ConnectionCredential, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	id, err := ctl.reauthenticate(ctx, conn, cred)
	if err != nil {
		_, code, message := classify(err)
		ctl.replyError(conn, code, message, frame.ConversationID)
		return
	}

	view, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		CallerID:       id.UserID,
		ConversationID: frame.ConversationID,
		Content:        frame.Content,
	})
	if err != nil {
		_, code, message := classify(err)
		ctl.replyError(conn, code, message, frame.ConversationID)
		return
	}

	ctl.reply(conn, sentFrame{Type: "sent", ConversationID: frame.ConversationID, Message: messageJSON(view.Message)})
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code, message, conversationID string) {
	ctl.reply(conn, errorFrame{
		Type:           "error",
		Code:           code,
		Error:          message,
		ConversationID: conversationID,
	})
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, frame any) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
