package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/startlinker/rankfeed/internal/cache"
	"github.com/startlinker/rankfeed/internal/db"
	"github.com/startlinker/rankfeed/internal/feed"
	"github.com/startlinker/rankfeed/internal/scorer"
	"github.com/startlinker/rankfeed/pkg/config"
	"github.com/startlinker/rankfeed/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	db      *db.DB
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, cfg *config.Config) *Router {
	handler := NewJSONRPCHandler()
	router := &Router{
		handler: handler,
		db:      database,
		cache:   redisCache,
		logger:  logging.WithComponent("api-router"),
	}

	router.registerMethods(cfg)

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods(cfg *config.Config) {
	repo := db.NewRepository(r.db.DB)

	ranker := feed.NewRanker(repo, r.cache, &cfg.Ranking)
	batchScorer := scorer.New(repo, r.cache, &cfg.Ranking, &cfg.Scorer)
	feedAPI := NewFeedAPI(ranker, repo, batchScorer)

	r.handler.RegisterMethod("feed.get_ranked_posts", feedAPI.GetRankedPosts)
	r.handler.RegisterMethod("feed.get_post_score", feedAPI.GetPostScore)
	r.handler.RegisterMethod("feed.rescore", feedAPI.Rescore)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	status := "OK"
	code := http.StatusOK

	if err := r.db.Health(c.Request.Context()); err != nil {
		status = "DEGRADED"
		code = http.StatusServiceUnavailable
		r.logger.Error("Database health check failed", zap.Error(err))
	}

	cacheStatus := "disabled"
	if r.cache != nil {
		cacheStatus = "OK"
		if err := r.cache.Health(c.Request.Context()); err != nil {
			cacheStatus = "DEGRADED"
		}
	}

	c.JSON(code, gin.H{
		"status":  status,
		"cache":   cacheStatus,
		"service": "rankfeed-api",
	})
}
