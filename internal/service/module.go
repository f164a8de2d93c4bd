package service

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"github.com/webitel/message-wall/config"
	"github.com/webitel/message-wall/internal/domain/journal"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/store"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain state
		ProvideSections,
		ProvideStore,
		ProvideJournal,
		ProvideCensor,
		ProvideThrottle,
		fx.Annotate(
			func(c *Censor) ContentFilter { return c },
			fx.As(new(ContentFilter)),
		),

		// Domain services
		NewModerationService,
		// [DECORATION_LAYER] every consumer gets the traced Moderator
		func(s *ModerationService, logger *slog.Logger) Moderator {
			return NewModeratorMiddleware(s, logger)
		},
		fx.Annotate(
			NewQueryService,
			fx.As(new(Querier)),
		),
		fx.Annotate(
			func(cfg *config.Config) int { return cfg.Realtime.ConnectionBuffer },
			fx.ResultTags(`name:"connection_buffer"`),
		),
		fx.Annotate(
			NewDeliveryService,
			fx.ParamTags(``, ``, ``, `name:"connection_buffer"`),
			fx.As(new(Deliverer)),
		),
	),

	// [HOT_RELOAD] banned words follow the config file
	fx.Invoke(func(cfg *config.Config, censor *Censor, logger *slog.Logger) {
		cfg.OnChange(func(next *config.Config) {
			if err := censor.Reload(next.Moderation.BannedWords); err != nil {
				logger.Warn("CENSOR_RELOAD_FAILED", "err", err)
				return
			}
			logger.Info("CENSOR_RELOADED", "words", len(next.Moderation.BannedWords))
		})
	}),
)

func ProvideSections(cfg *config.Config) (*model.Sections, error) {
	return model.NewSections(lo.Map(cfg.Wall.Sections, func(s config.SectionConfig, _ int) model.Section {
		return model.Section{Key: model.SectionKey(s.Key), Title: s.Title}
	}))
}

func ProvideStore(cfg *config.Config, sections *model.Sections, clock clockwork.Clock) *store.Store {
	return store.New(sections,
		store.WithRetention(cfg.Wall.Retention),
		store.WithTextLimit(cfg.Wall.TextMaxRunes),
		store.WithAuthorLimit(cfg.Wall.AuthorMaxRunes),
		store.WithDefaultAuthor(cfg.Wall.DefaultAuthor),
		store.WithClock(clock),
	)
}

func ProvideJournal(cfg *config.Config, clock clockwork.Clock) *journal.Journal {
	return journal.New(cfg.Wall.LogCapacity, clock)
}

func ProvideCensor(cfg *config.Config) (*Censor, error) {
	replacement := '*'
	if r := []rune(cfg.Moderation.Replacement); len(r) > 0 {
		replacement = r[0]
	}
	return NewCensor(cfg.Moderation.BannedWords, replacement)
}

func ProvideThrottle(cfg *config.Config, clock clockwork.Clock) (*Throttle, error) {
	m := cfg.Moderation
	return NewThrottle(m.SubmitRate, m.SubmitBurst, m.ThrottleCacheSize, clock)
}
