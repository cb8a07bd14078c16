package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/greg-maceachern12/binder-sub000/internal/clients/openai"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/pexels"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/polar"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/redis"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
)

type Clients struct {
	OpenAI      openai.Client
	Polar       polar.Client
	Pexels      pexels.Client
	ProgressBus redis.ProgressBus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Polar and Pexels are optional: without them entitlement degrades to
	// stored state and syllabi go without cover images.
	var polarClient polar.Client
	if strings.TrimSpace(os.Getenv("POLAR_API_KEY")) != "" {
		p, err := polar.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init polar client: %w", err)
		}
		polarClient = p
	} else {
		log.Warn("POLAR_API_KEY not set, live subscription checks disabled")
	}

	var pexelsClient pexels.Client
	if strings.TrimSpace(os.Getenv("PEXELS_API_KEY")) != "" {
		p, err := pexels.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init pexels client: %w", err)
		}
		pexelsClient = p
	} else {
		log.Warn("PEXELS_API_KEY not set, cover image lookup disabled")
	}

	var bus redis.ProgressBus
	if busCfg := redis.BusConfigFromEnv(log); busCfg.Addr != "" {
		b, err := redis.NewProgressBus(log, busCfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis progress bus: %w", err)
		}
		bus = b
	} else {
		log.Warn("REDIS_ADDR not set, cross-instance progress relay disabled")
	}

	return Clients{
		OpenAI:      openaiClient,
		Polar:       polarClient,
		Pexels:      pexelsClient,
		ProgressBus: bus,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.ProgressBus != nil {
		_ = c.ProgressBus.Close()
	}
}
