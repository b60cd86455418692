package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/cmd"
	"github.com/compozy/specmatch/engine/speclib/uc"
	"github.com/compozy/specmatch/pkg/logger"
	"github.com/compozy/specmatch/pkg/version"
)

const (
	ToolAnalyzeInfraction = "analyze_infraction"
	ToolLibraryStatus     = "library_status"
)

// Library is what the MCP tools need from the spec library.
type Library interface {
	Analyze() *uc.Analyze
	Status() *uc.Status
}

// Cmd returns the mcp command.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the spec library as Model Context Protocol tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) (err error) {
			ctx := c.Context()
			svc, err := cmd.OpenService(ctx)
			if err != nil {
				return fmt.Errorf("failed to open spec library: %w", err)
			}
			defer func() {
				if cerr := svc.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
					err = cerr
				}
			}()
			logger.FromContext(ctx).Info("Serving MCP over stdio",
				"tools", []string{ToolAnalyzeInfraction, ToolLibraryStatus})
			stdio := server.NewStdioServer(NewServer(svc))
			return stdio.Listen(ctx, c.InOrStdin(), c.OutOrStdout())
		},
	}
}

// NewServer registers the library tools on a fresh MCP server.
func NewServer(lib Library) *server.MCPServer {
	s := server.NewMCPServer(
		"specmatch",
		version.GetVersion(),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(mcp.NewTool(ToolAnalyzeInfraction,
		mcp.WithDescription(
			"Classify a construction infraction against the loaded specification library. "+
				"Returns repealable_high, repealable_medium or needs_review with the supporting spec excerpts.",
		),
		mcp.WithString("infraction", mcp.Required(), mcp.Description("Infraction text as written by the inspector")),
		mcp.WithNumber("top_k", mcp.Description("Matches to return"), mcp.Min(1), mcp.Max(50)),
	), AnalyzeHandler(lib))
	s.AddTool(mcp.NewTool(ToolLibraryStatus,
		mcp.WithDescription("Summarize the documents and chunks in the specification library."),
	), StatusHandler(lib))
	return s
}

// AnalyzeHandler scores one infraction.
func AnalyzeHandler(lib Library) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		infraction, err := req.RequireString("infraction")
		if err != nil || strings.TrimSpace(infraction) == "" {
			return mcp.NewToolResultError("infraction is required"), nil
		}
		out, err := lib.Analyze().Execute(ctx, &uc.AnalyzeInput{
			Infractions: []string{infraction},
			TopK:        req.GetInt("top_k", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res := out.Results[0]
		text := fmt.Sprintf("%s (confidence %.2f, top score %.3f)", res.Status, res.Confidence, res.TopScore)
		if len(res.Reasons) > 0 {
			text += ": " + strings.Join(res.Reasons, "; ")
		}
		return mcp.NewToolResultStructured(res, text), nil
	}
}

// StatusHandler reports the library summary.
func StatusHandler(lib Library) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := lib.Status().Execute(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text := fmt.Sprintf("%d documents, %d chunks, generation %d",
			summary.Documents, summary.Chunks, summary.Generation)
		return mcp.NewToolResultStructured(summary, text), nil
	}
}
