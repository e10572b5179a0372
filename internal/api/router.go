package api

import (
	"time"

	"discord_polls/internal/discord"
	"discord_polls/internal/middleware"
	"discord_polls/internal/repository"
	"discord_polls/internal/session"
	"discord_polls/internal/views"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Dependencies are the services the routes are wired to
type Dependencies struct {
	Repo             *repository.Repository
	Sessions         *session.Store
	Discord          *discord.Client
	Redis            redis.Cmdable
	ResultsCacheTTL  time.Duration
	AllowRepeatVotes bool
}

// NewRouter builds the gin engine with every route of the app
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(views.Templates())

	r.GET("/healthz", HealthHandler(deps.Repo, deps.Redis))

	// Everything else runs with the visitor's session
	site := r.Group("/")
	site.Use(middleware.SessionMiddleware(deps.Sessions))
	site.GET("/", HomeHandler(deps.Sessions, deps.Discord))                          // Landing page
	site.GET("/authorize", AuthorizeHandler(deps.Repo, deps.Sessions, deps.Discord)) // OAuth callback
	site.GET("/logout", LogoutHandler(deps.Sessions))                                // Log out
	site.GET("/poll/:id", PollHandler(deps.Repo, deps.Sessions, deps.Discord))       // Voting form
	site.GET("/view/:id", ViewPollHandler(deps.Repo, deps.Redis, deps.ResultsCacheTTL, deps.Sessions, deps.Discord))

	// Routes that need a logged-in identity
	member := site.Group("/")
	member.Use(middleware.RequireIdentity())
	member.POST("/vote/:id", VoteHandler(deps.Repo, deps.Redis, deps.AllowRepeatVotes))
	member.GET("/create_poll", CreatePollFormHandler())
	member.POST("/create_poll", CreatePollHandler(deps.Repo))
	member.GET("/manage_polls", ManagePollsHandler(deps.Repo))
	member.GET("/pick_winner/:option_id", PickWinnerHandler(deps.Repo))

	return r, nil
}
