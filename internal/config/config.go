package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Department categories as they appear in the routing table
const (
	CategoryTechnical      = "Technical"
	CategoryBilling        = "Billing"
	CategoryComplaint      = "Complaint"
	CategoryGeneralInquiry = "General Inquiry"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string // Postgres or MySQL DSN; empty means in-memory record store
	Version     string
	LogLevel    string

	OpenAIKey                string
	AzureOpenAIEndpoint      string
	AzureOpenAIKey           string
	AzureOpenAIGPTDeployment string
	OpenAITimeout            int // OpenAI API timeout in seconds

	EmailUser    string // Support mailbox login, also the From address of outgoing mail
	EmailPass    string
	IMAPServer   string
	IMAPPort     int
	IMAPFolder   string
	MailProvider string // "smtp" or "sendgrid"
	SMTPHost     string
	SMTPPort     int

	SendGridAPIKey string

	TechEmail       string
	BillingEmail    string
	ComplaintEmail  string
	GeneralEmail    string
	DepartmentsFile string // Optional YAML file overriding the department mailboxes

	PollIntervalSeconds       int
	PollCycleTimeoutSeconds   int
	PollMessageTimeoutSeconds int // Upper bound for one message; the cycle deadline never cuts a message short
	PollMaxPerCycle           int
	PollingEnabled            bool // Initial state of the polling flag

	departments map[string]string
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		AzureOpenAIEndpoint:      os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIKey:           os.Getenv("AZURE_OPENAI_KEY"),
		AzureOpenAIGPTDeployment: getEnv("AZURE_OPENAI_GPT_DEPLOYMENT", "gpt-4o-mini"),
		OpenAITimeout:            getEnvInt("OPENAI_TIMEOUT", 60),

		EmailUser:    os.Getenv("EMAIL_USER"),
		EmailPass:    os.Getenv("EMAIL_PASS"),
		IMAPServer:   getEnv("IMAP_SERVER", "imap.gmail.com"),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPFolder:   getEnv("IMAP_FOLDER", "INBOX"),
		MailProvider: strings.ToLower(getEnv("MAIL_PROVIDER", "smtp")),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),

		TechEmail:       os.Getenv("TECH_EMAIL"),
		BillingEmail:    os.Getenv("BILLING_EMAIL"),
		ComplaintEmail:  os.Getenv("COMPLAINT_EMAIL"),
		GeneralEmail:    os.Getenv("GENERAL_EMAIL"),
		DepartmentsFile: os.Getenv("DEPARTMENTS_FILE"),

		PollIntervalSeconds:       getEnvInt("POLL_INTERVAL_SECONDS", 30),
		PollCycleTimeoutSeconds:   getEnvInt("POLL_CYCLE_TIMEOUT_SECONDS", 300),
		PollMessageTimeoutSeconds: getEnvInt("POLL_MESSAGE_TIMEOUT_SECONDS", 600),
		PollMaxPerCycle:           getEnvInt("POLL_MAX_PER_CYCLE", 50),
		PollingEnabled:            getEnvBool("POLLING_ENABLED", false),
	}

	if config.DepartmentsFile != "" {
		if err := config.loadDepartmentsFile(config.DepartmentsFile); err != nil {
			log.Printf("Ignoring departments file: %v", err)
		}
	}

	return config
}

// departmentsFile is the on-disk shape of DEPARTMENTS_FILE
type departmentsFile struct {
	Departments map[string]string `yaml:"departments"`
}

// loadDepartmentsFile reads a YAML category -> mailbox table
func (c *Config) loadDepartmentsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file departmentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.departments = make(map[string]string, len(file.Departments))
	for category, mailbox := range file.Departments {
		mailbox = strings.TrimSpace(mailbox)
		if mailbox != "" {
			c.departments[category] = mailbox
		}
	}
	return nil
}

// Departments returns the category -> mailbox routing table.
// Categories without a configured mailbox are omitted.
func (c *Config) Departments() map[string]string {
	if c.departments != nil {
		out := make(map[string]string, len(c.departments))
		for k, v := range c.departments {
			out[k] = v
		}
		return out
	}

	out := make(map[string]string)
	for category, mailbox := range map[string]string{
		CategoryTechnical:      c.TechEmail,
		CategoryBilling:        c.BillingEmail,
		CategoryComplaint:      c.ComplaintEmail,
		CategoryGeneralInquiry: c.GeneralEmail,
	} {
		if mailbox != "" {
			out[category] = mailbox
		}
	}
	return out
}

// GeneralMailbox returns the catch-all destination for unmapped categories
func (c *Config) GeneralMailbox() string {
	if mailbox, ok := c.Departments()[CategoryGeneralInquiry]; ok {
		return mailbox
	}
	return c.EmailUser
}

// UseAzureOpenAI reports whether Azure OpenAI credentials are configured
func (c *Config) UseAzureOpenAI() bool {
	return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIKey != ""
}

// HasOpenAIFallback reports whether an OpenAI platform key is configured
func (c *Config) HasOpenAIFallback() bool {
	return c.OpenAIKey != ""
}

// PollInterval returns the poller cycle period, 30s when unset
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollCycleTimeout returns the upper bound for a single poll cycle
func (c *Config) PollCycleTimeout() time.Duration {
	return time.Duration(c.PollCycleTimeoutSeconds) * time.Second
}

// PollMessageTimeout returns the upper bound for processing a single message
func (c *Config) PollMessageTimeout() time.Duration {
	return time.Duration(c.PollMessageTimeoutSeconds) * time.Second
}

// OpenAIRequestTimeout returns the per-request timeout for language model calls
func (c *Config) OpenAIRequestTimeout() time.Duration {
	return time.Duration(c.OpenAITimeout) * time.Second
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "mailtriage").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
