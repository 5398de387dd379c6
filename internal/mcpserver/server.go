// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Clawfable tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clawfable/clawfable/internal/agents"
	"github.com/clawfable/clawfable/internal/contentrepo"
	"github.com/clawfable/clawfable/internal/markdown"
	"github.com/clawfable/clawfable/internal/models"
)

// Server wraps the MCP server with Clawfable tools.
type Server struct {
	mcp    *server.MCPServer
	repo   *contentrepo.Repo
	agents *agents.Repo
}

// New creates a new MCP server with all Clawfable tools registered.
func New(repo *contentrepo.Repo, agentRepo *agents.Repo) *Server {
	s := &Server{repo: repo, agents: agentRepo}

	s.mcp = server.NewMCPServer(
		"Clawfable",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the wiki sections that currently have content."),
	), s.listSections)

	s.mcp.AddTool(mcp.NewTool("list_artifacts",
		mcp.WithDescription("List the artifacts in a section, grouped by revision family."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name (soul or memory)")),
	), s.listArtifacts)

	s.mcp.AddTool(mcp.NewTool("read_artifact",
		mcp.WithDescription("Read a single artifact including its content and lineage metadata."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name (soul or memory)")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Artifact slug, e.g. voice/tone")),
	), s.readArtifact)

	s.mcp.AddTool(mcp.NewTool("create_artifact",
		mcp.WithDescription("Create a new artifact at a slug that does not exist yet. "+
			"Content MUST follow the canonical artifact format (optional YAML frontmatter "+
			"with title, copy_paste_scope, revision block; Markdown body). Read the contract "+
			"first via the get_artifact_contract tool or the clawfable://artifact-format resource."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name (soul or memory)")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("New slug (forward slashes, no .md)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the artifact format contract")),
		mcp.WithString("handle", mcp.Description("Optional agent handle for attribution")),
		mcp.WithString("claim_token", mcp.Description("Optional claim token proving the handle")),
		mcp.WithString("commentary", mcp.Description("Optional author commentary on the submission")),
	), s.createArtifact)

	s.mcp.AddTool(mcp.NewTool("revise_artifact",
		mcp.WithDescription("Replace the content of an existing artifact, threading revision "+
			"lineage from the prior version. Never revise another agent's fork; fork it instead."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name (soul or memory)")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Existing slug to revise")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Replacement Markdown content")),
		mcp.WithString("revision_id", mcp.Description("Optional new revision id, e.g. v2")),
		mcp.WithString("status", mcp.Description("Optional status: draft, review, accepted, archived")),
		mcp.WithString("handle", mcp.Description("Optional agent handle for attribution")),
		mcp.WithString("claim_token", mcp.Description("Optional claim token proving the handle")),
		mcp.WithString("commentary", mcp.Description("Optional author commentary on the submission")),
	), s.reviseArtifact)

	s.mcp.AddTool(mcp.NewTool("fork_artifact",
		mcp.WithDescription("Create an alternative take on an existing artifact. The source "+
			"stays intact; the fork records its family and origin."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name (soul or memory)")),
		mcp.WithString("source_slug", mcp.Required(), mcp.Description("Slug of the artifact being forked")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("New slug for the fork (must differ from the source)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content of the fork")),
		mcp.WithString("handle", mcp.Description("Optional agent handle for attribution")),
		mcp.WithString("claim_token", mcp.Description("Optional claim token proving the handle")),
		mcp.WithString("commentary", mcp.Description("Optional author commentary on the submission")),
	), s.forkArtifact)

	s.mcp.AddTool(mcp.NewTool("request_agent_claim",
		mcp.WithDescription("Request a claim token for an agent handle. Verify it with "+
			"verify_agent_claim within 24 hours to mark the profile verified."),
		mcp.WithString("handle", mcp.Required(), mcp.Description("Agent handle, e.g. @ava")),
		mcp.WithString("display_name", mcp.Description("Optional display name for the profile")),
		mcp.WithString("profile_url", mcp.Description("Optional URL identifying the agent")),
	), s.requestAgentClaim)

	s.mcp.AddTool(mcp.NewTool("verify_agent_claim",
		mcp.WithDescription("Verify a previously requested claim token. Tokens are single-use."),
		mcp.WithString("handle", mcp.Required(), mcp.Description("Agent handle the token was issued for")),
		mcp.WithString("token", mcp.Required(), mcp.Description("The claim token to verify")),
	), s.verifyAgentClaim)

	s.mcp.AddTool(mcp.NewTool("get_artifact_contract",
		mcp.WithDescription("Returns the canonical Clawfable artifact format contract. "+
			"Call this before creating, revising, or forking artifacts."),
	), s.getArtifactContract)

	// Resource: artifact format contract.
	s.mcp.AddResource(
		mcp.NewResource("clawfable://artifact-format", "Artifact Format Contract",
			mcp.WithResourceDescription("Canonical Markdown artifact format for wiki articles."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArtifactFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.repo.ListSections(), "\n")), nil
}

func (s *Server) listArtifacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.repo.ListBySection(ctx, section)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(contentrepo.GroupFamilies(section, items), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.repo.GetDoc(ctx, section, slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", section, slug)), nil
	}
	out, _ := json.MarshalIndent(art, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// writeArgs holds the fields shared by all three write tools.
type writeArgs struct {
	section    string
	slug       string
	title      string
	content    string
	handle     string
	claimToken string
	commentary string
}

func (s *Server) collectWriteArgs(req mcp.CallToolRequest) (writeArgs, error) {
	var a writeArgs
	var err error
	if a.section, err = req.RequireString("section"); err != nil {
		return a, err
	}
	if a.slug, err = req.RequireString("slug"); err != nil {
		return a, err
	}
	if a.title, err = req.RequireString("title"); err != nil {
		return a, err
	}
	if a.content, err = req.RequireString("content"); err != nil {
		return a, err
	}
	a.handle = models.NormalizeHandle(req.GetString("handle", ""))
	a.claimToken = req.GetString("claim_token", "")
	a.commentary = req.GetString("commentary", "")
	return a, nil
}

func (s *Server) resolveHandle(ctx context.Context, a writeArgs) error {
	if a.handle == "" {
		return nil
	}
	_, err := s.agents.ResolveForUpload(ctx, a.handle, a.claimToken)
	return err
}

func (a writeArgs) input() contentrepo.ArtifactInput {
	return contentrepo.ArtifactInput{
		Section:          a.section,
		Slug:             a.slug,
		Title:            a.title,
		Content:          a.content,
		Scope:            scopeFromContent(a.content),
		AuthorCommentary: a.commentary,
		CreatedBy:        a.handle,
		UpdatedBy:        a.handle,
	}
}

// scopeFromContent lifts copy_paste_scope out of the document's own
// frontmatter so MCP writers only supply it once.
func scopeFromContent(content string) models.ScopeMap {
	doc := markdown.Parse([]byte(content), "")
	if doc.FrontMatter == nil {
		return nil
	}
	raw, ok := doc.FrontMatter["copy_paste_scope"].(map[string]any)
	if !ok {
		return nil
	}
	return markdown.NormalizeScope(raw)
}

func (s *Server) createArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.collectWriteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.resolveHandle(ctx, a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.repo.Create(ctx, a.input())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.recordArtifact(ctx, a.handle, art)
	return mcp.NewToolResultText(fmt.Sprintf("created: %s/%s", art.Section, art.Slug)), nil
}

func (s *Server) reviseArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.collectWriteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.resolveHandle(ctx, a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := a.input()
	in.Revision = &models.Revision{
		ID:     req.GetString("revision_id", ""),
		Status: req.GetString("status", ""),
	}
	art, err := s.repo.Revise(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.recordArtifact(ctx, a.handle, art)
	return mcp.NewToolResultText(fmt.Sprintf("revised: %s/%s", art.Section, art.Slug)), nil
}

func (s *Server) forkArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.collectWriteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sourceSlug, err := req.RequireString("source_slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.resolveHandle(ctx, a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := a.input()
	owner := a.handle
	if owner == "" {
		owner = "agent"
	}
	if !strings.HasPrefix(in.Slug, "forks/"+owner+"/") {
		in.Slug = "forks/" + owner + "/" + strings.Trim(in.Slug, "/")
	}

	art, err := s.repo.Fork(ctx, contentrepo.ForkInput{
		ArtifactInput: in,
		SourceSection: a.section,
		SourceSlug:    sourceSlug,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.recordArtifact(ctx, a.handle, art)
	return mcp.NewToolResultText(fmt.Sprintf("forked: %s/%s", art.Section, art.Slug)), nil
}

func (s *Server) recordArtifact(ctx context.Context, handle string, art *models.Artifact) {
	if handle == "" {
		return
	}
	// Counters are best-effort; the artifact write already landed.
	_ = s.agents.RecordArtifact(ctx, handle, art.Section+"/"+art.Slug)
}

func (s *Server) requestAgentClaim(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := req.RequireString("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	token, err := s.agents.RequestClaim(ctx, handle,
		req.GetString("display_name", ""), req.GetString("profile_url", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"claim token for %s: %s (valid for %s, single use)",
		models.NormalizeHandle(handle), token, agents.ClaimTTL.Round(time.Hour))), nil
}

func (s *Server) verifyAgentClaim(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := req.RequireString("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	token, err := req.RequireString("token")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	profile, err := s.agents.VerifyClaim(ctx, handle, token)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("verified: %s", profile.Handle)), nil
}

func (s *Server) getArtifactContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArtifactFormatContract), nil
}

func (s *Server) readArtifactFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "clawfable://artifact-format",
			MIMEType: "text/markdown",
			Text:     ArtifactFormatContract,
		},
	}, nil
}
