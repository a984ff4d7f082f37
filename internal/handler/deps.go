package handler

import (
	"howdybot/internal/app/engine"
	"howdybot/internal/configs"
	"howdybot/internal/features"
	"howdybot/internal/pkg/logx"
)

// AppDeps bundles everything the dashboard handlers need. The dashboard
// only ever reads shared state; the two control endpoints (stop, send) are
// the explicit exceptions.
type AppDeps struct {
	Engine  *engine.Engine
	Loader  *features.Loader
	LogRing *logx.Ring
	Config  *configs.AppConfig
}
