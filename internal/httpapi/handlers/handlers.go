// Package handlers contains the HTTP handlers for the job API.
package handlers

import (
	"deckconv/internal/pkg/logger"
	"deckconv/internal/registry"
	"deckconv/internal/scheduler"
	"deckconv/internal/storage"
)

// Handlers bundles the dependencies of the HTTP surface.
type Handlers struct {
	reg   *registry.Registry
	sched *scheduler.Scheduler
	store storage.Store
	log   *logger.Logger
}

func New(reg *registry.Registry, sched *scheduler.Scheduler, store storage.Store, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handlers{
		reg:   reg,
		sched: sched,
		store: store,
		log:   log.WithComponent("http"),
	}
}
