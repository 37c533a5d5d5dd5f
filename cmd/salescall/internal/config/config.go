// Package config resolves salescall settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultListenAddr  = ":5001"
	DefaultLeadsFile   = "data/leads.json"
	DefaultProfileFile = "config/company_profile.json"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

type Config struct {
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	GroqAPIKey   string
	GroqModel    string

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioPhoneNumber  string
	ValidateSignatures bool

	GoogleCredentialsFile string

	DeepgramAPIKey string
	DeepgramVoice  string

	PublicBaseURL string
	ListenAddr    string
	LeadsFile     string
	ProfileFile   string
}

// Load reads envFiles (".env" when none are given) into the process
// environment without overriding what is already set, then resolves the
// configuration. Missing env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.LookupEnv), nil
}

// FromEnv resolves the configuration through lookup, e.g. [os.LookupEnv].
func FromEnv(lookup func(string) (string, bool)) Config {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	validate, err := strconv.ParseBool(get("TWILIO_VALIDATE_SIGNATURES", "false"))
	if err != nil {
		validate = false
	}

	return Config{
		LLMProvider:  strings.ToLower(get("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey: get("GEMINI_API_KEY", ""),
		GeminiModel:  get("GEMINI_MODEL", ""),
		OpenAIAPIKey: get("OPENAI_API_KEY", ""),
		OpenAIModel:  get("OPENAI_MODEL", ""),
		GroqAPIKey:   get("GROQ_API_KEY", ""),
		GroqModel:    get("GROQ_MODEL", ""),

		TwilioAccountSID:   get("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    get("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:  get("TWILIO_PHONE_NUMBER", ""),
		ValidateSignatures: validate,

		GoogleCredentialsFile: get("GOOGLE_APPLICATION_CREDENTIALS", ""),

		DeepgramAPIKey: get("DEEPGRAM_API_KEY", ""),
		DeepgramVoice:  get("DEEPGRAM_VOICE", ""),

		PublicBaseURL: strings.TrimSuffix(get("PUBLIC_BASE_URL", get("NGROK_URL", "")), "/"),
		ListenAddr:    get("LISTEN_ADDR", DefaultListenAddr),
		LeadsFile:     get("LEADS_FILE", DefaultLeadsFile),
		ProfileFile:   get("PROFILE_FILE", DefaultProfileFile),
	}
}

// GeneratorKey returns the API key of the selected provider.
func (c Config) GeneratorKey() (string, error) {
	var key string
	switch c.LLMProvider {
	case ProviderGemini:
		key = c.GeminiAPIKey
	case ProviderOpenAI:
		key = c.OpenAIAPIKey
	case ProviderGroq:
		key = c.GroqAPIKey
	default:
		return "", fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if key == "" {
		return "", fmt.Errorf("no api key configured for %s", c.LLMProvider)
	}
	return key, nil
}
