package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identity "chat-relay/internal/infrastructure/identity/port"
	"chat-relay/internal/infrastructure/realtime"
	"chat-relay/internal/infrastructure/telemetry"
	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/usecase"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
	"chat-relay/internal/pkg/chat/presentation/controller"
)

// Dependencies are the collaborators the chat routes are built from.
type Dependencies struct {
	Repo      repository.ChatRepository
	Directory identity.Directory
	Publisher usecase.MessagePublisher
	Router    *realtime.Router
	Log       *zap.Logger
	Metrics   *telemetry.Metrics
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them through the guard.
func RegisterRoutes(g *gin.RouterGroup, guard *auth.Guard, deps Dependencies) {
	authority := usecase.NewMembershipAuthority(deps.Repo)
	sendUC := usecase.NewSendMessageUseCase(authority, deps.Directory, deps.Publisher, deps.Log)
	getUserUC := usecase.NewGetUserUseCase(deps.Directory)

	createConvCtl := controller.NewCreateConversationController(usecase.NewCreateConversationUseCase(deps.Repo))
	listConvCtl := controller.NewListConversationsController(usecase.NewListConversationsUseCase(deps.Repo))
	getConvCtl := controller.NewGetConversationController(usecase.NewGetConversationUseCase(authority))
	updateConvCtl := controller.NewUpdateConversationController(usecase.NewUpdateConversationUseCase(authority))
	deleteConvCtl := controller.NewDeleteConversationController(usecase.NewDeleteConversationUseCase(authority))
	membersCtl := controller.NewListParticipantsController(usecase.NewListParticipantsUseCase(authority, deps.Directory))
	sendMsgCtl := controller.NewSendMessageController(sendUC)
	listMsgCtl := controller.NewListMessagesController(usecase.NewListMessagesUseCase(authority))
	getMsgCtl := controller.NewGetMessageController(usecase.NewGetMessageUseCase(authority))
	deleteMsgCtl := controller.NewDeleteMessageController(usecase.NewDeleteMessageUseCase(authority))
	getUserCtl := controller.NewGetUserController(getUserUC)
	whoAmICtl := controller.NewWhoAmIController(getUserUC)
	socketCtl := controller.NewChatSocketController(
		deps.Router, guard, usecase.NewJoinConversationUseCase(authority), sendUC, deps.Log, deps.Metrics,
	)

	// GET /api/v1/whoami -> the verified caller
	g.GET("/whoami", guard.Handle(whoAmICtl.Handle()))

	// /api/v1/conversations -> create, list, read, rename, delete
	g.POST("/conversations", guard.Handle(createConvCtl.Handle()))
	g.GET("/conversations", guard.Handle(listConvCtl.Handle()))
	g.GET("/conversations/:conversationId", guard.Handle(getConvCtl.Handle()))
	g.PATCH("/conversations/:conversationId", guard.Handle(updateConvCtl.Handle()))
	g.DELETE("/conversations/:conversationId", guard.Handle(deleteConvCtl.Handle()))
	g.GET("/conversations/:conversationId/members", guard.Handle(membersCtl.Handle()))

	// /api/v1/conversations/:conversationId/messages -> send, list oldest first
	g.POST("/conversations/:conversationId/messages", guard.Handle(sendMsgCtl.Handle()))
	g.GET("/conversations/:conversationId/messages", guard.Handle(listMsgCtl.Handle()))

	// /api/v1/messages/:messageId -> read, delete
	g.GET("/messages/:messageId", guard.Handle(getMsgCtl.Handle()))
	g.DELETE("/messages/:messageId", guard.Handle(deleteMsgCtl.Handle()))

	// GET /api/v1/users/:userId -> directory profile
	g.GET("/users/:userId", guard.Handle(getUserCtl.Handle()))

	// GET /api/v1/ws -> websocket endpoint for realtime chat
	g.GET("/ws", guard.HandleHandshake(socketCtl.Handle()))
}

// RegisterSystemRoutes mounts the public operational endpoints.
func RegisterSystemRoutes(r gin.IRoutes, guard *auth.Guard, checks map[string]controller.HealthCheck, metrics http.Handler) {
	guard.Public(http.MethodGet, "/health")
	r.GET("/health", guard.Handle(controller.NewHealthController(checks).Handle()))

	if metrics != nil {
		guard.Public(http.MethodGet, "/metrics")
		serve := gin.WrapH(metrics)
		r.GET("/metrics", guard.Handle(func(c *gin.Context, _ auth.Identity) { serve(c) }))
	}
}
