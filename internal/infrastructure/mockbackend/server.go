package mockbackend

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/pkg/config"
	"github.com/digisapp/digis-app-sub003/pkg/utils"
)

type account struct {
	user        domain.User
	password    string
	role        domain.Role
	roleVersion int
}

// Server is the mock backend HTTP surface: auth endpoints, the session
// endpoint in either payload generation and the realtime WebSocket.
type Server struct {
	tokens       *TokenService
	hub          *Hub
	logger       *zap.SugaredLogger
	sessionShape string

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	byID     map[domain.UserID]*account
}

func NewServer(cfg *config.Config, logger *zap.SugaredLogger) *Server {
	return &Server{
		tokens:       NewTokenService(cfg.MockBackend.JWTSecret, cfg.MockBackend.AccessTokenTTL),
		hub:          NewHub(logger),
		logger:       logger,
		sessionShape: cfg.MockBackend.SessionShape,
		accounts:     make(map[string]*account),
		byID:         make(map[domain.UserID]*account),
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(rateLimitMiddleware(
		cfg.MockBackend.RateLimiting.Enabled,
		cfg.MockBackend.RateLimiting.RequestsPerSecond,
		cfg.MockBackend.RateLimiting.Burst,
	))

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)

		protected := auth.Group("")
		protected.Use(authMiddleware(s.tokens))
		{
			protected.GET("/session", s.handleSession)
			protected.POST("/sync-user", s.handleSyncUser)
			protected.POST("/upgrade-role", s.handleUpgradeRole)
		}
	}

	router.GET("/ws", s.handleWS)
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := domain.Role(req.Role)
	if !domain.ValidRole(role) {
		role = domain.RoleFan
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	acct := &account{
		user: domain.User{
			ID:       domain.UserID(utils.GenerateID("user")),
			Email:    req.Email,
			Username: req.Username,
		},
		password:    req.Password,
		role:        role,
		roleVersion: 1,
	}
	s.accounts[req.Email] = acct
	s.byID[acct.user.ID] = acct
	s.mu.Unlock()

	token, err := s.tokens.GenerateToken(acct.user.ID, acct.user.Username, acct.role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	s.logger.Infow("user registered", "user_id", acct.user.ID, "role", acct.role)
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  acct.user,
		"role":  acct.role,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.tokens.GenerateToken(acct.user.ID, acct.user.Username, acct.role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  acct.user,
		"role":  acct.role,
	})
}

// handleSession serves the session in whichever payload generation the server
// is configured to emulate.
func (s *Server) handleSession(c *gin.Context) {
	acct := s.accountFromContext(c)
	if acct == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	s.mu.Lock()
	user := acct.user
	role := acct.role
	version := acct.roleVersion
	s.mu.Unlock()

	if s.sessionShape == "legacy" {
		c.JSON(http.StatusOK, gin.H{
			"session": gin.H{
				"user": gin.H{
					"id":             user.ID,
					"email":          user.Email,
					"username":       user.Username,
					"is_creator":     role == domain.RoleCreator,
					"is_super_admin": role == domain.RoleAdmin,
				},
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": gin.H{
			"user":         user,
			"role":         role,
			"role_version": version,
			"permissions":  permissionsFor(role),
		},
	})
}

func (s *Server) handleSyncUser(c *gin.Context) {
	acct := s.accountFromContext(c)
	if acct == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": true})
}

type upgradeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// handleUpgradeRole changes the account role and bumps its version, so the
// next session fetch carries a confirming versioned write.
func (s *Server) handleUpgradeRole(c *gin.Context) {
	acct := s.accountFromContext(c)
	if acct == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	var req upgradeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := domain.Role(req.Role)
	if !domain.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	s.mu.Lock()
	acct.role = role
	acct.roleVersion++
	version := acct.roleVersion
	s.mu.Unlock()

	s.logger.Infow("role upgraded", "user_id", acct.user.ID, "role", role, "version", version)
	c.JSON(http.StatusOK, gin.H{"role": role, "role_version": version})
}

// handleWS authenticates via header or query token and hands the connection
// to the hub.
func (s *Server) handleWS(c *gin.Context) {
	claims, err := claimsFromRequest(s.tokens, c.Request)
	if err != nil {
		if token := c.Query("token"); token != "" {
			claims, err = s.tokens.ValidateToken(token)
		}
	}
	if err != nil || claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	s.hub.ServeWS(c.Writer, c.Request, claims)
}

func (s *Server) accountFromContext(c *gin.Context) *account {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(domain.UserID)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[userID]
}

func permissionsFor(role domain.Role) []string {
	switch role {
	case domain.RoleAdmin:
		return []string{"stream:start", "stream:moderate", "users:manage"}
	case domain.RoleCreator:
		return []string{"stream:start"}
	default:
		return []string{}
	}
}
