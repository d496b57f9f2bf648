package main

import (
	"context"
	"log/slog"

	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/resolver"
)

// logRenderer is the headless stand-in for the 3D engine: every render
// instruction the resolver issues is logged instead of drawn.
type logRenderer struct {
	logger *slog.Logger
}

func newLogRenderer(logger *slog.Logger) *logRenderer {
	return &logRenderer{logger: logger}
}

func (r *logRenderer) CreateModel(_ context.Context, key, modelPath string) error {
	r.logger.Info("create model", "key", key, "path", modelPath)
	return nil
}

func (r *logRenderer) SetSkin(key string, skin int) {
	r.logger.Info("set skin", "key", key, "skin", skin)
}

func (r *logRenderer) RefreshWarpaint(_ context.Context, key string, params resolver.Warpaint) error {
	r.logger.Info("refresh warpaint",
		"key", key,
		"defindex", params.DefIndex,
		"paintkit", params.PaintKitID,
		"wear", params.Wear,
		"seed", params.Seed,
	)
	return nil
}

func (r *logRenderer) AttachParticleSystem(key, system, attachment string, controlPoints map[int]string) {
	r.logger.Info("attach particle system",
		"key", key,
		"system", system,
		"attachment", attachment,
		"control_points", len(controlPoints),
	)
}

func (r *logRenderer) SetSheen(key string, tint model.Tint) {
	r.logger.Info("set sheen", "key", key, "tint", tint)
}

func (r *logRenderer) AttachModel(key, modelPath string, scale float64) {
	r.logger.Info("attach model", "key", key, "path", modelPath, "scale", scale)
}
