package app

import (
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/services"
	"github.com/greg-maceachern12/binder-sub000/internal/utils"
)

type Config struct {
	Port           string
	JWTSecretKey   string
	WebhookSecrets services.WebhookSecrets
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		WebhookSecrets: services.WebhookSecrets{
			LemonSqueezy: utils.GetEnv("LEMON_SQUEEZY_WEBHOOK_SECRET", "", log),
			Polar:        utils.GetEnv("POLAR_WEBHOOK_SECRET", "", log),
		},
	}
}
