package api

import (
	"github.com/chatarr/chatarr/internal/provider"
	"github.com/chatarr/chatarr/internal/search"
	"github.com/chatarr/chatarr/internal/services"
	"github.com/chatarr/chatarr/internal/websocket"
)

// LogHub adapts websocket.Hub to the logger's Broadcaster interface, which
// has no error return. A dropped log broadcast is not worth surfacing.
type LogHub struct {
	hub *websocket.Hub
}

// NewLogHub wraps a hub for log streaming.
func NewLogHub(hub *websocket.Hub) *LogHub {
	return &LogHub{hub: hub}
}

// Broadcast implements logger.Broadcaster.
func (a *LogHub) Broadcast(msgType string, payload interface{}) {
	_ = a.hub.Broadcast(msgType, payload)
}

// SearchFactory adapts provider.Factory to the aggregator's ClientFactory
// interface, whose SonarrFor returns an interface rather than the concrete
// sonarr client.
type SearchFactory struct {
	factory *provider.Factory
}

// NewSearchFactory wraps a provider factory for the search aggregator.
func NewSearchFactory(factory *provider.Factory) *SearchFactory {
	return &SearchFactory{factory: factory}
}

// ClientFor implements search.ClientFactory.
func (a *SearchFactory) ClientFor(svc *services.Service) (provider.Client, error) {
	return a.factory.ClientFor(svc)
}

// SonarrFor implements search.ClientFactory.
func (a *SearchFactory) SonarrFor(svc *services.Service) search.SeasonLister {
	return a.factory.SonarrFor(svc)
}
