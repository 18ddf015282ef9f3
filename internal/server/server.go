package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"autobattler/internal/combat"
	"autobattler/internal/config"
	"autobattler/internal/driver"
	"autobattler/internal/render"
)

type session struct {
	match  *combat.Match
	hub    *Hub
	cancel context.CancelFunc // non-nil while a runner is pacing the match
}

// Server keeps matches in memory, keyed by uuid.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		sessions: map[string]*session{},
	}
}

var errNotFound = errors.New("match not found")

func (s *Server) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotFound, id)
	}
	return ss, nil
}

// Create registers a match built from arena and returns its id.
func (s *Server) Create(a *config.Arena) (string, *combat.Match, error) {
	a.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid arena: %w", err)
	}
	hub := newHub(s.log)
	m, err := combat.NewMatchFromConfig(a, hub.Publish, combat.BattleOptions{Logger: s.log})
	if err != nil {
		return "", nil, fmt.Errorf("build match: %w", err)
	}
	go hub.run()
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{match: m, hub: hub}
	s.mu.Unlock()
	s.log.Info("match created", "id", id, "board", fmt.Sprintf("%dx%d", a.Board.Width, a.Board.Height))
	return id, m, nil
}

// Delete stops the match's runner and hub and forgets it.
func (s *Server) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}
	if ss.cancel != nil {
		ss.cancel()
	}
	ss.hub.stop()
	delete(s.sessions, id)
	s.log.Info("match deleted", "id", id)
	return nil
}

// Close stops every runner and hub.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ss := range s.sessions {
		if ss.cancel != nil {
			ss.cancel()
		}
		ss.hub.stop()
		delete(s.sessions, id)
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/matches")
	{
		api.POST("", s.createMatch)
		api.GET("/:id", s.withMatch(s.getSummary))
		api.DELETE("/:id", s.deleteMatch)
		api.GET("/:id/units", s.withMatch(s.getUnits))
		api.GET("/:id/history", s.withMatch(s.getHistory))
		api.POST("/:id/tick", s.withMatch(s.postTick))
		api.POST("/:id/run", s.withMatch(s.postRun))
		api.POST("/:id/reset", s.withMatch(s.postReset))
		api.GET("/:id/ticks/:tick/board.png", s.withMatch(s.getBoard))
	}
	r.GET("/ws/matches/:id", s.withMatch(s.spectate))
	return r
}

func (s *Server) withMatch(h func(*gin.Context, *session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ss, err := s.lookup(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h(c, ss)
	}
}

func (s *Server) createMatch(c *gin.Context) {
	var a config.Arena
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, m, err := s.Create(&a)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "summary": m.Summary()})
}

func (s *Server) deleteMatch(c *gin.Context) {
	if err := s.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getSummary(c *gin.Context, ss *session) {
	c.JSON(http.StatusOK, ss.match.Summary())
}

func (s *Server) getUnits(c *gin.Context, ss *session) {
	c.JSON(http.StatusOK, gin.H{"units": ss.match.Units()})
}

func (s *Server) getHistory(c *gin.Context, ss *session) {
	c.JSON(http.StatusOK, gin.H{"history": ss.match.History()})
}

// postTick advances one tick, starting the next battle first when the
// match waits in placement.
func (s *Server) postTick(c *gin.Context, ss *session) {
	m := ss.match
	if m.Summary().Phase == combat.PhasePlacement && !m.StartBattle() {
		c.JSON(http.StatusConflict, gin.H{"error": "both teams need placed units"})
		return
	}
	rec, ok := m.AdvanceTick()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "match is " + m.Summary().Phase.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "summary": m.Summary()})
}

func (s *Server) postRun(c *gin.Context, ss *session) {
	sum, err := ss.match.Play()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "summary": sum})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) postReset(c *gin.Context, ss *session) {
	s.mu.Lock()
	if ss.cancel != nil {
		ss.cancel()
		ss.cancel = nil
	}
	s.mu.Unlock()
	ss.match.Reset()
	c.JSON(http.StatusOK, ss.match.Summary())
}

func (s *Server) getBoard(c *gin.Context, ss *session) {
	tick, err := strconv.Atoi(c.Param("tick"))
	if err != nil || tick < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tick"})
		return
	}
	rec, ok := ss.match.Record(tick)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("tick %d not recorded", tick)})
		return
	}
	img := render.Board(ss.match.Grid(), rec)
	if cell, err := strconv.Atoi(c.Query("cell")); err == nil {
		img = render.Scale(img, cell)
	}
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := render.EncodePNG(c.Writer, img); err != nil {
		s.log.Error("encode board", "err", err)
	}
}

// spectate upgrades to a websocket and makes sure a runner paces the match.
func (s *Server) spectate(c *gin.Context, ss *session) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("upgrade failed", "err", err)
		return
	}
	if ss.hub.attach(conn) == nil {
		return
	}
	s.startRunner(ss)
}

func (s *Server) startRunner(ss *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	ss.cancel = cancel
	r := &driver.Runner{
		Match:         ss.match,
		Interval:      ss.match.TickInterval(),
		AutoNextRound: true,
		Logger:        s.log,
	}
	go func() {
		err := r.Run(ctx)
		s.log.Debug("runner stopped", "err", err)
		s.mu.Lock()
		if ctx.Err() == nil {
			ss.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()
}
