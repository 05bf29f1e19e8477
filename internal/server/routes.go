package server

import (
	v1 "github.com/nulzo/ollama-openai-proxy/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	// probes
	healthHandler := v1.NewHealthHandler(s.client, s.config.Server.Env)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/ready", healthHandler.Ready)

	// Ollama-compatible surface
	api := s.router.Group("/api")
	{
		var ttl = s.config.Cache.TTL
		cacheBackend := s.cache
		if !s.config.Cache.Enabled {
			cacheBackend = nil
		}
		tagsHandler := v1.NewTagsHandler(s.client, cacheBackend, ttl)
		api.GET("/tags", tagsHandler.List)

		generateHandler := v1.NewGenerateHandler(s.client, s.ingestor)
		api.POST("/generate", generateHandler.Generate)

		chatHandler := v1.NewChatHandler(s.client, s.ingestor)
		api.POST("/chat", chatHandler.Chat)

		embeddingsHandler := v1.NewEmbeddingsHandler(s.client, s.ingestor)
		api.POST("/embeddings", embeddingsHandler.Embed)
		api.POST("/embed", embeddingsHandler.Embed)

		versionHandler := v1.NewVersionHandler()
		api.GET("/version", versionHandler.Version)

		if s.analytics != nil {
			analyticsHandler := v1.NewAnalyticsHandler(s.analytics)
			api.GET("/analytics/daily", analyticsHandler.Daily)
			api.GET("/analytics/recent", analyticsHandler.Recent)
		}
	}
}
