package server

import (
	"net/http/httptest"
	"strings"
	"testing"

	"zapflow/app/config"
	"zapflow/app/service/queue"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) (*Server, *queue.Service) {
	t.Helper()

	di := do.New()
	do.ProvideValue(di, &config.Config{})
	do.Provide(di, queue.New)

	srv, err := New(di)
	require.NoError(t, err)

	return srv, do.MustInvoke[*queue.Service](di)
}

func postWebhook(t *testing.T, srv *Server, body string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.app.Test(req)
	require.NoError(t, err)

	return resp.StatusCode
}

func TestWebhookQueuesInboundMessage(t *testing.T) {
	srv, queueSvc := setupServer(t)

	status := postWebhook(t, srv, `{
		"event": "messages.upsert",
		"instance": "AgentBruno",
		"data": {
			"key": {"remoteJid": "5585988970670@s.whatsapp.net", "fromMe": false},
			"pushName": "Maria",
			"message": {"conversation": "quero pagar meu ipva"}
		}
	}`)
	assert.Equal(t, fiber.StatusOK, status)

	select {
	case msg := <-queueSvc.Channel():
		assert.Equal(t, "5585988970670", msg.SenderID)
		assert.Equal(t, "quero pagar meu ipva", msg.Text)
	default:
		t.Fatal("expected a queued message")
	}
}

func TestWebhookIgnoresOwnMessages(t *testing.T) {
	srv, queueSvc := setupServer(t)

	status := postWebhook(t, srv, `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5585988970670@s.whatsapp.net", "fromMe": true},
			"message": {"conversation": "resposta do bot"}
		}
	}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, queueSvc.Channel())
}

func TestWebhookIgnoresNonTextMessages(t *testing.T) {
	srv, queueSvc := setupServer(t)

	status := postWebhook(t, srv, `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5585988970670@s.whatsapp.net", "fromMe": false},
			"message": {}
		}
	}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, queueSvc.Channel())
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	srv, queueSvc := setupServer(t)

	status := postWebhook(t, srv, `{"event": "connection.update", "data": {}}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, queueSvc.Channel())
}

func TestWebhookRejectsInvalidBody(t *testing.T) {
	srv, _ := setupServer(t)

	status := postWebhook(t, srv, "not json")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := srv.app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
