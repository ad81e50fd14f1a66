package server

import (
	"log/slog"
	"strings"

	"zapflow/app/config"
	"zapflow/app/service/queue"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Server)(nil)

// Server receives Evolution API webhooks and feeds inbound messages into
// the processing queue. It acknowledges fast; all heavy work happens in the
// engine loop.
type Server struct {
	cfg      *config.Config
	queueSvc *queue.Service

	app *fiber.App
}

type webhookPayload struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Data     webhookData `json:"data"`
}

type webhookData struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  struct {
		Conversation string `json:"conversation"`
	} `json:"message"`
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:      do.MustInvoke[*config.Config](di),
		queueSvc: do.MustInvoke[*queue.Service](di),
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
	}

	s.app.Get("/health", s.handleHealth)
	s.app.Post("/webhook", s.handleWebhook)

	return s, nil
}

func (s *Server) Run() error {
	slog.Info("Webhook server listening", "addr", s.cfg.Server.Addr)

	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleWebhook accepts every Evolution event and queues only inbound plain
// text messages. Everything else (own messages, media, status updates) is
// acknowledged and dropped.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var payload webhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	if payload.Event != "messages.upsert" {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	if payload.Data.Key.FromMe || payload.Data.Message.Conversation == "" {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	senderID := normalizeJid(payload.Data.Key.RemoteJid)
	if senderID == "" {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	slog.Info("Inbound message",
		"sender", senderID,
		"name", payload.Data.PushName,
	)

	s.queueSvc.Add(senderID, payload.Data.Message.Conversation)

	return c.JSON(fiber.Map{"status": "queued"})
}

// normalizeJid strips the WhatsApp domain suffix, keeping the bare number.
func normalizeJid(jid string) string {
	number, _, _ := strings.Cut(jid, "@")
	return number
}
