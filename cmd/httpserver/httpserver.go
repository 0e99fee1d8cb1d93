// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountdelivery"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountservice"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/dashboarddelivery"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/dashboardservice"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/eventdelivery"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/events"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledger"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledgerstore"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/memstore"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/transactiondelivery"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/transactionrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/transactionservice"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/userdelivery"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/userrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/userservice"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/configpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/tokenpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
	Hub    *events.Hub

	kafka *events.KafkaPublisher
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the event publishers. The db connection is owned by the caller.
func (s *Server) Close() error {
	if s.kafka != nil {
		return s.kafka.Close()
	}

	return nil
}

type storage struct {
	users        userservice.Repo
	accounts     accountservice.Repo
	transactions transactionservice.Repo
	ledger       ledger.Store
}

// New creates Server type backed by postgres with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	s := storage{
		users:        userrepo.NewRepoPGS(conn),
		accounts:     accountrepo.NewRepoPGS(conn),
		transactions: transactionrepo.NewRepoPGS(conn),
		ledger:       ledgerstore.NewStorePGS(conn),
	}

	server, err := newServer(s, logger, config)
	if err != nil {
		return nil, err
	}

	server.DB = conn

	return server, nil
}

// NewInMemory creates Server type backed by the process memory.
// Its state is lost on restart.
func NewInMemory(logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	ms := memstore.New()

	s := storage{
		users:        ms.Users(),
		accounts:     ms.Accounts(),
		transactions: ms.Transactions(),
		ledger:       ms,
	}

	return newServer(s, logger, config)
}

func newServer(s storage, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	if err := web.RegisterValidators(); err != nil {
		return nil, errors.New("cannot register validators")
	}

	hub := events.NewHub()
	publishers := events.Multi{hub}

	var kafka *events.KafkaPublisher
	if len(config.KafkaBrokers) > 0 {
		kafka = events.NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
		publishers = append(publishers, kafka)
	}

	engine := ledger.New(s.ledger, publishers)

	userService := userservice.New(s.users, tokenMaker, config.AccessTokenDuration)
	accountService := accountservice.New(s.accounts, s.ledger)
	transactionService := transactionservice.New(s.transactions, s.accounts, engine)
	dashboardService := dashboardservice.New(s.accounts, s.transactions, accountService)

	userHandler := userdelivery.NewHandler(userService)
	accountHandler := accountdelivery.NewHandler(accountService)
	transactionHandler := transactiondelivery.NewHandler(transactionService)
	dashboardHandler := dashboarddelivery.NewHandler(dashboardService)
	eventHandler := eventdelivery.NewHandler(hub)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery())

	router.POST("/users", userHandler.Create)
	router.POST("/users/login", userHandler.Login)

	authRoutes := router.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/dashboard", dashboardHandler.Get)

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts", accountHandler.List)
	authRoutes.POST("/accounts/provision", accountHandler.Provision)
	authRoutes.GET("/accounts/:id", accountHandler.Get)
	authRoutes.DELETE("/accounts/:id", accountHandler.Deactivate)

	authRoutes.POST("/transactions", transactionHandler.Post)
	authRoutes.GET("/transactions", transactionHandler.List)
	authRoutes.GET("/transactions/:id", transactionHandler.Get)
	authRoutes.DELETE("/transactions/:id", transactionHandler.Reverse)

	authRoutes.GET("/ws", eventHandler.Subscribe)

	server := &Server{
		Engine: router,
		Config: config,
		Hub:    hub,
		kafka:  kafka,
	}

	return server, nil
}
