package publisher

import (
	"context"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/logger"
)

const defaultStreamMaxLength = 10000

// NewFromConfig builds the configured activity sinks. It returns nil when
// neither a stream nor a log file is configured.
func NewFromConfig(ctx context.Context, cfg *config.Config) Publisher {
	log := logger.ForPublisher()
	var sinks Multi

	if cfg.ActivityStream != "" {
		r := NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPassword, cfg.ActivityStream, defaultStreamMaxLength)
		if err := r.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("stream", cfg.ActivityStream).Msg("Redis unavailable, activity stream disabled")
			r.Close()
		} else {
			// a previous run may have left the stream above the cap
			if err := r.TrimStream(ctx); err != nil {
				log.Warn().Err(err).Str("stream", cfg.ActivityStream).Msg("Failed to trim activity stream")
			}
			sinks = append(sinks, r)
		}
	}
	if cfg.ActivityLogFile != "" {
		sinks = append(sinks, NewFilePublisher(cfg.ActivityLogFile))
	}

	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	return sinks
}
