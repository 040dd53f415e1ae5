package router

import (
	"hackergrows/internal/handlers"
	"hackergrows/internal/middleware"
	"hackergrows/internal/services"
	"hackergrows/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionName = "hackergrows_session"

// New builds the engine with sessions, actor loading and every route.
func New(st store.Store, forum *services.Forum, accounts *services.Accounts, sessionSecret string) *gin.Engine {
	r := gin.Default()

	cookies := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions(sessionName, cookies))
	r.Use(middleware.LoadUser(st))

	RegisterRoutes(r, st, forum, accounts)
	return r
}

func RegisterRoutes(r *gin.Engine, st store.Store, forum *services.Forum, accounts *services.Accounts) {
	authHandler := handlers.NewAuthHandler(accounts)
	itemHandler := handlers.NewItemHandler(forum)
	voteHandler := handlers.NewVoteHandler(forum)
	userHandler := handlers.NewUserHandler(st)

	// Public routes
	r.GET("/item/:id", itemHandler.Detail)
	r.GET("/u/:id", userHandler.Profile)

	r.POST("/signup", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/verify/:token", authHandler.Verify)
	r.POST("/reset", authHandler.RequestReset)
	r.POST("/reset/:token", authHandler.ResetPassword)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/submit", itemHandler.Submit)
		authorized.POST("/item/:id/comment", itemHandler.Comment)
		authorized.POST("/item/:id/upvote", voteHandler.Vote)
		authorized.POST("/item/:id/downvote", voteHandler.Downvote)
		authorized.POST("/item/:id/unvote", voteHandler.Unvote)
		authorized.POST("/item/:id/edit", itemHandler.Edit)
		authorized.POST("/item/:id/delete", itemHandler.Delete)
		authorized.POST("/settings/email", authHandler.ChangeEmail)
	}
}
