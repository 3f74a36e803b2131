package providers

import (
	"github.com/samber/do/v2"

	"github.com/buchregal/buchregal-server/internal/config"
	"github.com/buchregal/buchregal-server/internal/logger"
	"github.com/buchregal/buchregal-server/internal/metadata/googlebooks"
)

// ProvideGoogleBooksClient provides the rate-limited Books API client.
// With a zero lookup quota the client is never asked anything, but it is
// still constructed so configuration problems surface at startup.
func ProvideGoogleBooksClient(i do.Injector) (*googlebooks.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := []googlebooks.Option{
		googlebooks.WithTimeout(cfg.Lookup.Timeout),
	}
	if cfg.Lookup.BaseURL != "" {
		opts = append(opts, googlebooks.WithBaseURL(cfg.Lookup.BaseURL))
	}

	client := googlebooks.NewClient(cfg.Lookup.Interval, log.Logger, opts...)

	log.Info("Books API client initialized",
		"interval", cfg.Lookup.Interval,
		"daily_quota", cfg.Lookup.DailyQuota,
	)

	return client, nil
}
