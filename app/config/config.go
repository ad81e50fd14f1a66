package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      Log         `yaml:"log"`
	Server   Server      `yaml:"server"`
	Redis    Redis       `yaml:"redis"`
	OpenAI   OpenAI      `yaml:"openai"`
	WhatsApp WhatsApp    `yaml:"whatsapp"`
	Tools    Tools       `yaml:"tools"`
	MCP      []MCPServer `yaml:"mcp"`
}

type OpenAI struct {
	Decision ModelConfig `yaml:"decision" validate:"required"`
	Reply    ModelConfig `yaml:"reply" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type WhatsApp struct {
	// Evolution API base url
	BaseURL string `yaml:"base_url" example:"https://evolution.example.com" validate:"required"`
	// Evolution API key
	APIKey string `yaml:"api_key" example:"B6D9F2A1-4C3E-4B7A-9F0D-1E2A3B4C5D6E" validate:"required"`
	// Instance (agent) name this process serves
	Instance string `yaml:"instance" example:"AgentBruno" validate:"required"`
	// Persona injected into the response prompt
	Persona string `yaml:"persona" example:"Atendente virtual da concessionária"`
	// Tool names this agent may call. Omit to allow every registered tool;
	// an empty list blocks everything.
	AllowedTools []string `yaml:"allowed_tools"`
}

type Server struct {
	// Webhook listen address
	Addr string `yaml:"addr" example:":8080"`
}

type Redis struct {
	// Redis host:port
	Addr string `yaml:"addr" example:"localhost:6379"`
	// Redis password
	Pass string `yaml:"pass"`
	// Redis database number
	DB int `yaml:"db"`
}

type Tools struct {
	// SEFAZ-CE IPVA API base url, defaults to the public endpoint
	IpvaBaseURL string `yaml:"ipva_base_url"`
}

type MCPServer struct {
	// Prefix for the discovered tool names
	Name string `yaml:"name" validate:"required"`
	// Command that starts the stdio server
	Command string `yaml:"command" validate:"required"`
	// Command arguments
	Args []string `yaml:"args"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Addr == "" {
		result.Server.Addr = ":8080"
	}
	if result.Redis.Addr == "" {
		result.Redis.Addr = "localhost:6379"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
