package engine

import (
	"context"
	"log/slog"
	"time"

	"zapflow/app/client/whatsapp"
	"zapflow/app/service/conversation"
	"zapflow/app/service/queue"

	"github.com/samber/do"
)

// Service drains the inbound queue and drives one pipeline run per message,
// then delivers the resulting package back through WhatsApp.
type Service struct {
	whatsappClient  *whatsapp.Client
	conversationSvc *conversation.Service
	queueSvc        *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		whatsappClient:  do.MustInvoke[*whatsapp.Client](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		queueSvc:        do.MustInvoke[*queue.Service](di),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			start := time.Now()

			pkg, err := s.conversationSvc.ProcessMessage(ctx, msg.SenderID, msg.Text)
			if err != nil {
				slog.Error("ProcessMessage error",
					"sender", msg.SenderID,
					"error", err,
					"telegram", true)
				continue
			}

			s.deliver(ctx, msg.SenderID, pkg)

			slog.Info("Processed message",
				"sender", msg.SenderID,
				"text", msg.Text,
				"duration", time.Since(start))
		}
	}
}

func (s *Service) deliver(ctx context.Context, senderID string, pkg *conversation.ResponsePackage) {
	if pkg.Text != "" {
		if err := s.whatsappClient.SendText(ctx, senderID, pkg.Text); err != nil {
			slog.Error("Failed to send text", "sender", senderID, "error", err)
		}
	}

	for _, item := range pkg.Media {
		var err error

		switch item.Type {
		case conversation.MediaDocument:
			err = s.whatsappClient.SendDocument(ctx, senderID, item.Path, item.Caption, item.MimeType)
		case conversation.MediaImage:
			err = s.whatsappClient.SendImage(ctx, senderID, item.Path, item.Caption, item.MimeType)
		case conversation.MediaAudio:
			err = s.whatsappClient.SendAudio(ctx, senderID, item.Path)
		}

		if err != nil {
			slog.Error("Failed to send media",
				"sender", senderID,
				"type", item.Type,
				"path", item.Path,
				"error", err)
		}
	}
}
