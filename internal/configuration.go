package internal

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/queue"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/retrier"
)

type Configuration struct {
	RabbitMQURL        string `env:"RABBITMQ_URL"`
	RabbitMQHost       string `env:"RABBITMQ_HOST"`
	RabbitMQUser       string `env:"RABBITMQ_DEFAULT_USER"`
	RabbitMQPass       string `env:"RABBITMQ_DEFAULT_PASS"`
	QueueName          string `env:"RABBITMQ_QUEUE_NAME" envDefault:"review_jobs"`
	DeadLetterExchange string `env:"RABBITMQ_DEAD_LETTER_EXCHANGE"`

	WebhookSecret      string `env:"GITHUB_WEBHOOK_SECRET"`
	SignatureAlgorithm string `env:"WEBHOOK_SIGNATURE_ALGORITHM" envDefault:"sha256"`

	GithubAppID          int64  `env:"GITHUB_APP_ID"`
	GithubPrivateKeyPath string `env:"GITHUB_PRIVATE_KEY_PATH"`

	OpenAIToken string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	DiffCharLimit int `env:"DIFF_CHAR_LIMIT" envDefault:"20000"`

	RetryMaxAttempts  int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryMinDelay     time.Duration `env:"RETRY_MIN_DELAY" envDefault:"2s"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10s"`
	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY" envDefault:"5s"`

	GatewayPort int `env:"GATEWAY_PORT" envDefault:"8080"`
	HealthPort  int `env:"WORKER_HEALTH_PORT" envDefault:"8081"`
}

func LoadConfiguration() (Configuration, error) {
	config := Configuration{}
	err := env.Parse(&config)
	if err != nil {
		return config, err
	}
	return config, nil
}

// QueueConfig projects the broker settings for the queue client.
func (c Configuration) QueueConfig() queue.Config {
	return queue.Config{
		URL:                c.RabbitMQURL,
		Host:               c.RabbitMQHost,
		User:               c.RabbitMQUser,
		Password:           c.RabbitMQPass,
		QueueName:          c.QueueName,
		DeadLetterExchange: c.DeadLetterExchange,
	}
}

func (c Configuration) ReconnectPolicy() queue.ReconnectPolicy {
	return queue.ReconnectPolicy{Attempts: c.ReconnectAttempts, Delay: c.ReconnectDelay}
}

func (c Configuration) RetryPolicy() retrier.Policy {
	return retrier.Policy{
		MaxAttempts: c.RetryMaxAttempts,
		MinDelay:    c.RetryMinDelay,
		MaxDelay:    c.RetryMaxDelay,
	}
}

// ValidateGateway checks the environment the webhook gateway cannot start
// without. The webhook secret is deliberately not required; running without
// one disables signature verification.
func (c Configuration) ValidateGateway() error {
	return missingError(c.missingBroker())
}

// ValidateWorker checks the environment the worker cannot start without,
// including that the App private key file actually exists.
func (c Configuration) ValidateWorker() error {
	missing := c.missingBroker()
	if c.GithubAppID == 0 {
		missing = append(missing, "GITHUB_APP_ID")
	}
	if c.GithubPrivateKeyPath == "" {
		missing = append(missing, "GITHUB_PRIVATE_KEY_PATH")
	}
	if c.OpenAIToken == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if err := missingError(missing); err != nil {
		return err
	}
	if _, err := os.Stat(c.GithubPrivateKeyPath); err != nil {
		return fmt.Errorf("GitHub private key file not found at %s: %w", c.GithubPrivateKeyPath, err)
	}
	return nil
}

func (c Configuration) missingBroker() []string {
	if c.RabbitMQURL != "" {
		return nil
	}
	var missing []string
	if c.RabbitMQHost == "" {
		missing = append(missing, "RABBITMQ_HOST")
	}
	if c.RabbitMQUser == "" {
		missing = append(missing, "RABBITMQ_DEFAULT_USER")
	}
	if c.RabbitMQPass == "" {
		missing = append(missing, "RABBITMQ_DEFAULT_PASS")
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
}
