package commands

import (
	"context"
	"fmt"

	"github.com/wonny/carewatch/internal/api/handlers"
	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engine"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/external/medschedule"
	"github.com/wonny/carewatch/internal/monitoring"
	"github.com/wonny/carewatch/internal/s0_data"
	"github.com/wonny/carewatch/pkg/config"
	"github.com/wonny/carewatch/pkg/database"
	"github.com/wonny/carewatch/pkg/httputil"
	"github.com/wonny/carewatch/pkg/logger"
	"github.com/wonny/carewatch/pkg/redis"
)

// runtime holds the long-lived dependencies shared by api and scheduler
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	engine  *engine.Engine
	db      *database.DB
	repo    *s0_data.Repository
	redis   *redis.Client
	service *monitoring.Service
}

// newEngine loads thresholds and builds the engine
func newEngine(cfg *config.Config, log *logger.Logger) (*engine.Engine, error) {
	engineCfg, err := engineconfig.LoadOrDefault(cfg.Engine.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}

	for _, w := range engineconfig.Warn(engineCfg) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Engine config warning")
	}

	eng, err := engine.New(engineCfg, log)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"engine_id":   engineCfg.Meta.EngineID,
		"config_hash": eng.ConfigHash(),
	}).Info("Engine ready")

	return eng, nil
}

// newRuntime wires the log store, cache and adherence source.
// Without DATABASE_URL only the stateless engine is available.
func newRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger, requireDB bool) (*runtime, error) {
	eng, err := newEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, engine: eng}

	if cfg.Database.URL == "" {
		if requireDB {
			return nil, cfg.RequireDatabase()
		}
		log.Warn("DATABASE_URL not set; patient and cohort endpoints are disabled")
		return rt, nil
	}

	rt.db, err = database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	rt.repo = s0_data.NewRepository(rt.db.Pool)
	log.Info("Connected to log store")

	rt.redis, err = redis.New(cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var cache *redis.Cache
	if rt.redis.Enabled() {
		cache = redis.NewCache(rt.redis, "carewatch")
		log.Info("Assessment cache enabled")
	}

	rt.service = monitoring.NewService(eng, rt.repo, rt.adherenceSource(), cache, monitoring.Options{
		Workers:  cfg.Engine.Workers,
		CacheTTL: cfg.Engine.CacheTTL,
	}, log)

	return rt, nil
}

// adherenceSource prefers the medication-schedule service when configured
func (rt *runtime) adherenceSource() contracts.AdherenceSource {
	if rt.cfg.MedSchedule.BaseURL == "" {
		return rt.repo
	}

	client := httputil.New(rt.log, rt.cfg.MedSchedule.Timeout)
	if rt.cfg.MedSchedule.RequestLimit > 0 && rt.redis.Enabled() {
		client = client.WithRateLimiter(redis.NewRateLimiter(rt.redis, "carewatch:ratelimit"), redis.RateLimitConfig{
			Key:    "medschedule",
			Limit:  rt.cfg.MedSchedule.RequestLimit,
			Window: rt.cfg.MedSchedule.RequestWindow,
		})
	}

	rt.log.WithField("base_url", rt.cfg.MedSchedule.BaseURL).Info("Using medication-schedule service for adherence")
	return medschedule.NewClient(rt.cfg.MedSchedule.BaseURL, client, rt.log)
}

// healthChecker returns nil when no database is configured
func (rt *runtime) healthChecker() handlers.HealthChecker {
	if rt.db == nil {
		return nil
	}
	return rt.db
}

// Close releases connections
func (rt *runtime) Close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.log.WithError(err).Warn("Failed to close redis")
		}
	}
	if rt.db != nil {
		rt.db.Close()
	}
}
