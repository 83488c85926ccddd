package router

import (
	"private_chat_service/internal/chat/app"
	"private_chat_service/internal/chat/handlers"
	"private_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册聊天相关的路由
// @title Private Chat Service API
// @version 1.0
// @description One-to-one messaging with realtime delivery
// @host localhost:8083
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(
	r *fiber.App,
	messageHandler *handlers.MessageHandler,
	userHandler *handlers.UserHandler,
	chatWebsocket *app.ChatWebsocketHandler,
) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.Get("/", handlers.ConnectCheck)
	r.Post("/debug", handlers.DebugLogFlag)

	messages := r.Group("/messages", middlewares.JWTMiddleware())
	messages.Get("/contacts", userHandler.ListContacts)
	messages.Get("/chats", messageHandler.ChatPartners)
	messages.Post("/send/:id", messageHandler.Send)
	messages.Put("/read/:messageId", messageHandler.MarkRead)
	messages.Get("/search/:userId", messageHandler.Search)
	messages.Delete("/delete-for-me/:messageId", messageHandler.DeleteForMe)
	messages.Delete("/delete-for-everyone/:messageId", messageHandler.DeleteForEveryone)
	messages.Delete("/clear-chat/:userId", messageHandler.ClearChat)
	messages.Put("/edit/:messageId", messageHandler.Edit)
	messages.Get("/edit-history/:messageId", messageHandler.EditHistory)
	messages.Post("/react/:messageId", messageHandler.React)
	messages.Delete("/react/:messageId", messageHandler.Unreact)
	// 放最後, 避免吃掉 /chats, /contacts
	messages.Get("/:id", messageHandler.ListMessages)

	users := r.Group("/users", middlewares.JWTMiddleware())
	users.Get("/profile", userHandler.GetProfile)
	users.Put("/profile", userHandler.UpsertProfile)
	users.Post("/block/:id", userHandler.Block)
	users.Post("/unblock/:id", userHandler.Unblock)
	users.Get("/blocked", userHandler.ListBlocked)
	users.Post("/pin/:id", userHandler.Pin)
	users.Post("/unpin/:id", userHandler.Unpin)
	users.Get("/pinned", userHandler.ListPinned)
	users.Post("/push-tokens", userHandler.RegisterPushToken)
	users.Delete("/push-tokens", userHandler.RemovePushToken)

	r.Use("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(chatWebsocket.HandleConnection))
}
