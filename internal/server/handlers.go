package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/collabflow/internal/integration"
	"github.com/roach88/collabflow/internal/workflow"
)

// maxBodyBytes caps start request bodies.
const maxBodyBytes = 1 << 20

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WorkflowView is a workflow snapshot plus its result once finished.
type WorkflowView struct {
	workflow.Workflow
	Progress string `json:"progress"`
	Result   any    `json:"result,omitempty"`
}

func sendSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func sendError(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

func (s *Server) view(wf workflow.Workflow) WorkflowView {
	v := WorkflowView{Workflow: wf, Progress: progress(wf)}
	if res, ok := s.result(wf.ID); ok {
		v.Result = res
	}
	return v
}

func progress(wf workflow.Workflow) string {
	return fmt.Sprintf("%d/%d", wf.CompletedSteps(), len(wf.Steps))
}

func (s *Server) handleHealth(c *gin.Context) {
	sendSuccess(c, http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"workflows":   s.orch.Registry().Len(),
		"subscribers": s.events.Subscribers(),
	})
}

func (s *Server) handleList(c *gin.Context) {
	kind := c.Query("kind")
	status := workflow.Status(c.Query("status"))

	views := make([]WorkflowView, 0)
	for _, wf := range s.orch.List() {
		if kind != "" && wf.Kind != kind {
			continue
		}
		if status != "" && wf.Status != status {
			continue
		}
		views = append(views, s.view(wf))
	}
	sendSuccess(c, http.StatusOK, views)
}

func (s *Server) handleGet(c *gin.Context) {
	wf, ok := s.orch.Get(c.Param("id"))
	if !ok {
		sendError(c, http.StatusNotFound, "workflow not found")
		return
	}
	sendSuccess(c, http.StatusOK, s.view(wf))
}

func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.orch.Get(id); !ok {
		sendError(c, http.StatusNotFound, "workflow not found")
		return
	}
	s.orch.Cancel(id)

	wf, _ := s.orch.Get(id)
	sendSuccess(c, http.StatusOK, s.view(wf))
}

func (s *Server) handleStart(c *gin.Context) {
	kind := c.Param("id")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		sendError(c, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	def, result, err := s.builder.Build(kind, body)
	if err != nil {
		if errors.Is(err, integration.ErrUnknownKind) {
			sendError(c, http.StatusNotFound, fmt.Sprintf("%v (known kinds: %s)", err, strings.Join(s.builder.Kinds(), ", ")))
			return
		}
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.start(c.Request.Context(), def, result)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("workflow started via api", "workflow_id", id, "kind", kind)
	c.Header("Location", "/workflows/"+id)
	sendSuccess(c, http.StatusAccepted, gin.H{"id": id})
}
