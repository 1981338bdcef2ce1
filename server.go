package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type knowledgeSearcher interface {
	Search(ctx context.Context, req search.Request) (search.Request, *search.Response, error)
	Ask(ctx context.Context, req search.Request) (*AskResult, error)
}

func NewRagServer(svc knowledgeSearcher) *server.MCPServer {
	srv := server.NewMCPServer("management-knowledge", serviceVersion, server.WithToolCapabilities(false))

	searchTool := mcp.NewTool("search_knowledge",
		mcp.WithDescription("Search the management knowledge base and return the most relevant chunks"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("top_k", mcp.Description("Number of results, 1 to 20")),
		mcp.WithString("namespace", mcp.Description("Knowledge namespace")),
	)
	srv.AddTool(searchTool, searchKnowledge(svc))

	askTool := mcp.NewTool("ask_question",
		mcp.WithDescription("Find knowledge base sources that answer a question"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithNumber("top_k", mcp.Description("Number of sources, 1 to 20")),
		mcp.WithString("namespace", mcp.Description("Knowledge namespace")),
	)
	srv.AddTool(askTool, askQuestion(svc))

	return srv
}

func searchKnowledge(svc knowledgeSearcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		_, resp, err := svc.Search(ctx, toolRequest(request, q))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := resultLines(resp.Results)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func askQuestion(svc knowledgeSearcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := svc.Ask(ctx, toolRequest(request, q))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(res.Sources) == 0 {
			return mcp.NewToolResultText(res.Answer), nil
		}

		text, err := resultLines(res.Sources)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func toolRequest(request mcp.CallToolRequest, query string) search.Request {
	return search.Request{
		Query:     query,
		TopK:      request.GetInt("top_k", 0),
		Namespace: request.GetString("namespace", ""),
	}
}

// resultLines renders one JSON object per line.
func resultLines(results []search.Result) (string, error) {
	var b strings.Builder
	for _, r := range results {
		raw, err := json.Marshal(struct {
			Score     float64 `json:"score"`
			File      string  `json:"file"`
			Framework string  `json:"framework"`
			Section   string  `json:"section"`
			Text      string  `json:"text"`
		}{
			Score:     r.Score,
			File:      r.Metadata.SourceFile,
			Framework: r.Metadata.Framework,
			Section:   r.Metadata.Section,
			Text:      r.Content,
		})
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "%s\n", raw)
	}
	return b.String(), nil
}
