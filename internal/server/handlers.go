package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petrijr/disparo/internal/auth"
	"github.com/petrijr/disparo/internal/functions"
	"github.com/petrijr/disparo/pkg/api"
)

// runView is the JSON shape of a function run.
type runView struct {
	ID        string     `json:"id"`
	Function  string     `json:"function"`
	Event     string     `json:"event"`
	Status    api.Status `json:"status"`
	Output    any        `json:"output,omitempty"`
	Error     string     `json:"error,omitempty"`
	Steps     []stepView `json:"steps"`
	CreatedAt time.Time  `json:"created_at"`
}

// stepView is the JSON shape of one step result.
type stepView struct {
	Name      string        `json:"name"`
	Attempts  int           `json:"attempts"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// eventView is the JSON shape of one run history entry.
type eventView struct {
	At     time.Time        `json:"at"`
	Type   api.RunEventType `json:"type"`
	Step   string           `json:"step,omitempty"`
	Detail string           `json:"detail,omitempty"`
}

func viewOf(run *api.FunctionRun) runView {
	v := runView{
		ID:        run.ID,
		Function:  run.Function,
		Event:     run.Event.Name,
		Status:    run.Status,
		Output:    run.Output,
		Steps:     make([]stepView, 0, len(run.Steps)),
		CreatedAt: run.CreatedAt,
	}
	if run.Err != nil {
		v.Error = run.Err.Error()
	}
	for _, s := range run.Steps {
		v.Steps = append(v.Steps, stepView{
			Name:      s.Name,
			Attempts:  s.Attempts,
			Output:    s.Output,
			Error:     s.Error,
			StartedAt: s.StartedAt,
			Duration:  s.Duration,
		})
	}
	return v
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleListWorkflows returns every run in the store, oldest first.
func (s *Server) handleListWorkflows(c *gin.Context) {
	runs, err := s.engine.ListRuns(c.Request.Context(), api.RunListOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, viewOf(run))
	}
	c.JSON(http.StatusOK, gin.H{"workflows": views})
}

type createWorkflowRequest struct {
	Name string `json:"name"`
}

// handleCreateWorkflow publishes a test/hello.world event. The response
// confirms only that the event was enqueued; the run itself happens in
// the background.
func (s *Server) handleCreateWorkflow(c *gin.Context) {
	var req createWorkflowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	data := map[string]any{}
	if req.Name != "" {
		data["name"] = req.Name
	}

	err := s.dispatcher.Send(c.Request.Context(), api.Event{
		Name: functions.EventHelloWorld,
		Data: data,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Workflow creation triggered",
	})
}

type executeAIRequest struct {
	Prompt string `json:"prompt"`
	System string `json:"system"`
}

// handleExecuteAI publishes an execute/ai event carrying the prompt.
func (s *Server) handleExecuteAI(c *gin.Context) {
	var req executeAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	data := map[string]any{"prompt": req.Prompt}
	if req.System != "" {
		data["system"] = req.System
	}

	err := s.dispatcher.Send(c.Request.Context(), api.Event{
		Name: functions.EventExecuteAI,
		Data: data,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "AI execution triggered",
	})
}

func (s *Server) handleGetWorkflow(c *gin.Context) {
	run, err := s.engine.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, api.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, viewOf(run))
}

// handleWorkflowEvents returns the run's history, oldest first. Engines
// without history support return 404 for every run.
func (s *Server) handleWorkflowEvents(c *gin.Context) {
	id := c.Param("id")

	if _, err := s.engine.GetRun(c.Request.Context(), id); err != nil {
		if errors.Is(err, api.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hr, ok := s.engine.(api.HistoryReader)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "history not available"})
		return
	}

	events, err := hr.ListRunEvents(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			At:     e.At,
			Type:   e.Type,
			Step:   e.Step,
			Detail: e.Detail,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": views})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	u, err := s.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "email": u.Email})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
