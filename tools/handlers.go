package tools

import (
	"fmt"
	"log/slog"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/calc"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/github"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/zipcode"
)

// HandlerRegistry maps tool specs to their concrete handler implementations.
type HandlerRegistry struct {
	zipClient    *zipcode.Client
	githubClient *github.Client
	logger       *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(zipClient *zipcode.Client, githubClient *github.Client, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		zipClient:    zipClient,
		githubClient: githubClient,
		logger:       logger,
	}
}

// RegisterAll registers every tool in AllTools with the registry.
func (h *HandlerRegistry) RegisterAll(r *Registry) error {
	for _, spec := range AllTools {
		if err := h.registerByName(r, spec); err != nil {
			return err
		}
	}
	h.logger.Debug("Bound tool handlers", "count", len(AllTools))
	return nil
}

// registerByName dispatches to the correct typed registration.
func (h *HandlerRegistry) registerByName(r *Registry, spec ToolSpec) error {
	switch spec.Method {
	case "Add":
		return Register(r, spec, calc.Add)
	case "SearchAddress":
		return Register(r, spec, h.zipClient.SearchMCP)
	case "PullRequests":
		return Register(r, spec, h.githubClient.PullRequestsMCP)
	case "AddComment":
		return Register(r, spec, h.githubClient.AddCommentMCP)
	case "PullDiff":
		return Register(r, spec, h.githubClient.PullDiffMCP)
	case "PullFiles":
		return Register(r, spec, h.githubClient.PullFilesMCP)
	case "PullReviews":
		return Register(r, spec, h.githubClient.PullReviewsMCP)
	default:
		return fmt.Errorf("unknown method %q for tool %s", spec.Method, spec.Name)
	}
}
