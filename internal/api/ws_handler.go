package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeforge/internal/auth"
	"resumeforge/internal/autosave"
	"resumeforge/internal/resume"
	"resumeforge/internal/store"
)

// WsHandler 负责处理 WebSocket 鉴权、编辑会话与消息转发。
//
// 协议（客户端 → 服务端）：
//
//	{"type":"auth","token":"<access token>"}
//	{"type":"edit","resume_id":1,"patch":{...}}
//	{"type":"save"}
//
// 服务端 → 客户端：edit_ack / edit_rejected / autosave_status，
// 以及从 Redis Pub/Sub 透传的导出完成通知。
type WsHandler struct {
	redisClient      *redis.Client
	authService      *auth.AuthService
	store            *store.Store
	logger           *slog.Logger
	upgrader         websocket.Upgrader
	allowedOrigins   []string
	autosaveInterval time.Duration
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient *redis.Client, authService *auth.AuthService, st *store.Store, logger *slog.Logger, allowedOrigins []string, autosaveInterval time.Duration) *WsHandler {
	h := &WsHandler{
		redisClient:      redisClient,
		authService:      authService,
		store:            st,
		logger:           logger,
		allowedOrigins:   allowedOrigins,
		autosaveInterval: autosaveInterval,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsClientMessage struct {
	Type     string          `json:"type"`
	Token    string          `json:"token,omitempty"`
	ResumeID uint            `json:"resume_id,omitempty"`
	Patch    json.RawMessage `json:"patch,omitempty"`
}

type wsServerMessage struct {
	Type         string    `json:"type"`
	ResumeID     uint      `json:"resume_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	Error        string    `json:"error,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// HandleConnection 升级连接并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
	)

	userID, err := h.awaitAuth(conn)
	if err != nil {
		baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}

	userLog := baseLog.With(slog.Uint64("user_id", uint64(userID)))
	userLog.Info("websocket authenticated")

	// 所有出站帧统一从 outbound 走，保证单一写者。
	outbound := make(chan []byte, 32)
	errCh := make(chan error, 2)

	go h.writeLoop(ctx, conn, outbound, errCh, cancel)
	go h.subscribeLoop(ctx, userID, outbound, errCh, cancel, userLog)
	go h.readLoop(ctx, conn, userID, outbound, errCh, cancel, userLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		if err != nil {
			userLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			userLog.Info("websocket connection closed")
		}
	}
}

// awaitAuth 读取并校验首帧认证消息。
func (h *WsHandler) awaitAuth(conn *websocket.Conn) (uint, error) {
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	_, message, err := conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read auth message: %w", err)
	}

	var msg wsClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return 0, fmt.Errorf("invalid auth message")
	}

	claims, err := h.authService.ValidateToken(msg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return 0, fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != "access" {
		writeClose(conn, websocket.ClosePolicyViolation, "access token required")
		return 0, fmt.Errorf("invalid token type: %s", claims.TokenType)
	}

	return claims.UserID, nil
}

func (h *WsHandler) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	outbound <-chan []byte,
	errCh chan<- error,
	cancel context.CancelFunc,
) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-outbound:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}

// readLoop 处理认证之后的编辑帧，并维护当前的自动保存会话。
func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userID uint,
	outbound chan<- []byte,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	var session *editSession
	defer func() {
		if session != nil {
			session.close(log)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			send(outbound, wsServerMessage{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "edit":
			if session == nil || session.resumeID != msg.ResumeID {
				if session != nil {
					// 切换简历不是断连，先把旧会话的待保存编辑落盘。
					if err := session.coord.SaveNow(ctx); err != nil {
						log.Warn("flush previous edit session failed",
							slog.Uint64("resume_id", uint64(session.resumeID)),
							slog.Any("error", err),
						)
					}
					session.close(log)
					session = nil
				}
				session, err = h.openSession(ctx, userID, msg.ResumeID, outbound)
				if err != nil {
					send(outbound, wsServerMessage{Type: "edit_rejected", ResumeID: msg.ResumeID, Error: editRejectReason(err)})
					continue
				}
				log.Info("edit session opened", slog.Uint64("resume_id", uint64(msg.ResumeID)))
			}

			var patch resume.Patch
			if err := json.Unmarshal(msg.Patch, &patch); err != nil {
				send(outbound, wsServerMessage{Type: "edit_rejected", ResumeID: msg.ResumeID, Error: "invalid patch"})
				continue
			}

			updated, err := session.coord.Update(patch)
			if err != nil {
				send(outbound, wsServerMessage{Type: "edit_rejected", ResumeID: msg.ResumeID, Error: editRejectReason(err)})
				continue
			}
			send(outbound, wsServerMessage{
				Type:         "edit_ack",
				ResumeID:     msg.ResumeID,
				LastModified: updated.LastModified,
			})

		case "save":
			if session == nil {
				send(outbound, wsServerMessage{Type: "error", Error: "no active edit session"})
				continue
			}
			if err := session.coord.SaveNow(ctx); err != nil {
				log.Warn("explicit save failed", slog.Any("error", err))
			}

		default:
			send(outbound, wsServerMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

type editSession struct {
	resumeID uint
	coord    *autosave.Coordinator
}

// close 取消未触发的防抖保存。断连前最后一瞬的编辑不保证落盘，
// 客户端若想确保持久化应在断开前发 save 指令。
func (s *editSession) close(log *slog.Logger) {
	s.coord.Close()
	log.Debug("edit session closed", slog.Uint64("resume_id", uint64(s.resumeID)))
}

// openSession 加载简历并为其创建自动保存协调器。
func (h *WsHandler) openSession(ctx context.Context, userID, resumeID uint, outbound chan<- []byte) (*editSession, error) {
	doc, err := h.store.GetByID(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if err := resume.Authorize(doc, userID, true); err != nil {
		return nil, err
	}

	coord := autosave.New(*doc, autosave.SaverFunc(h.store.Put),
		autosave.WithInterval(h.autosaveInterval),
		autosave.WithStatusFunc(func(status autosave.Status, err error) {
			msg := wsServerMessage{
				Type:     "autosave_status",
				ResumeID: resumeID,
				Status:   string(status),
			}
			if err != nil {
				msg.Error = err.Error()
			}
			send(outbound, msg)
		}),
	)
	return &editSession{resumeID: resumeID, coord: coord}, nil
}

// send 尽力投递出站帧；连接写满时丢弃而不是阻塞保存回调。
func send(outbound chan<- []byte, msg wsServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case outbound <- payload:
	default:
	}
}

func editRejectReason(err error) string {
	switch {
	case resume.IsValidation(err):
		return err.Error()
	case errors.Is(err, resume.ErrAccessDenied):
		return "access denied"
	case errors.Is(err, resume.ErrNotFound):
		return "resume not found"
	default:
		return "internal error"
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	userID uint,
	outbound chan<- []byte,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := fmt.Sprintf("user_notify:%d", userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- fmt.Errorf("pubsub channel closed")
				cancel()
				return
			}

			log.Info("forwarding message to client", slog.String("channel", channel))
			select {
			case outbound <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}
