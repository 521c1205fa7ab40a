// pagesnap-mcp exposes the pagesnap service to MCP clients over stdio.
//
// It is a thin client of a running `pagesnap serve`: PAGESNAP_API_URL
// (default http://127.0.0.1:8080) and PAGESNAP_API_KEY select the service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/pagesnap/models"
)

func main() {
	apiURL := os.Getenv("PAGESNAP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	c := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("PAGESNAP_API_KEY"),
		http:    &http.Client{Timeout: 330 * time.Second},
	}

	if err := server.ServeStdio(newServer(c)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(c *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"pagesnap",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	capturePageTool := mcp.NewTool("capture_page",
		mcp.WithDescription("Render a web page in a headless browser and save the rendered DOM as a snapshot file on the pagesnap server. Returns the snapshot path, size and digest."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to capture"),
		),
		mcp.WithString("name",
			mcp.Description("Snapshot file name (default: output.html)"),
		),
		mcp.WithString("format",
			mcp.Description("What to write: 'html' (default, rendered DOM), 'markdown' or 'text'"),
			mcp.Enum(models.FormatHTML, models.FormatMarkdown, models.FormatText),
		),
		mcp.WithString("wait",
			mcp.Description("Load strategy: 'load' (default), 'dom-stable' or 'request-idle'"),
			mcp.Enum(models.WaitLoad, models.WaitDOMStable, models.WaitRequestIdle),
		),
		mcp.WithString("wait_for",
			mcp.Description("CSS selector that must match before the DOM is captured"),
		),
		mcp.WithString("selector",
			mcp.Description("Keep only elements matching this CSS selector"),
		),
		mcp.WithBoolean("return_content",
			mcp.Description("Include the written snapshot in the result"),
		),
		mcp.WithBoolean("fix",
			mcp.Description("Also write an accessibility-fixed copy of the snapshot (html format only)"),
		),
		mcp.WithString("lang",
			mcp.Description("Language tag for the fixed copy when the page declares none (default: en)"),
		),
	)
	s.AddTool(capturePageTool, handleCapturePage(c))

	auditTool := mcp.NewTool("audit_snapshot",
		mcp.WithDescription("Apply deterministic accessibility fixes to HTML markup: page language and title, image alt text, duplicate ids, unnamed links, buttons and form fields. Returns every fix made and the fixed markup."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("Markup of the snapshot to fix"),
		),
		mcp.WithString("lang",
			mcp.Description("Language tag set when the document has no valid lang (default: en)"),
		),
	)
	s.AddTool(auditTool, handleAuditSnapshot(c))

	diffTool := mcp.NewTool("diff_snapshots",
		mcp.WithDescription("Compare two HTML snapshots. Returns insertion and deletion counts, SimHash content and structural distances, and the annotated source."),
		mcp.WithString("before",
			mcp.Required(),
			mcp.Description("Markup of the earlier snapshot"),
		),
		mcp.WithString("after",
			mcp.Required(),
			mcp.Description("Markup of the later snapshot"),
		),
	)
	s.AddTool(diffTool, handleDiffSnapshots(c))

	return s
}

// apiClient calls the pagesnap HTTP service.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// post sends payload as JSON and decodes the response into out. Error
// statuses still carry a JSON body, so they are decoded too.
func (c *apiClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	return nil
}

func errorText(fallback string, detail *models.ErrorDetail) string {
	if detail == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
}

func handleCapturePage(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.CaptureRequest{
			URL:           url,
			Name:          request.GetString("name", ""),
			Format:        request.GetString("format", ""),
			Wait:          request.GetString("wait", ""),
			WaitFor:       request.GetString("wait_for", ""),
			Selector:      request.GetString("selector", ""),
			ReturnContent: request.GetBool("return_content", false),
			Fix:           request.GetBool("fix", false),
			Lang:          request.GetString("lang", ""),
		}

		var resp models.CaptureResponse
		if err := c.post(ctx, "/api/v1/capture", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("capture failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "snapshot saved: %s\n", resp.Path)
		fmt.Fprintf(&sb, "Title: %s\nFinal URL: %s\nStatus: %d\n", resp.Title, resp.FinalURL, resp.StatusCode)
		fmt.Fprintf(&sb, "Bytes: %d\nSHA-256: %s\nTook: %dms\n", resp.Bytes, resp.SHA256, resp.Timing.TotalMs)
		if resp.FixedPath != "" {
			fmt.Fprintf(&sb, "fixed snapshot saved: %s\n", resp.FixedPath)
			writeFindings(&sb, resp.Findings)
		}
		if resp.Content != "" {
			sb.WriteString("\n")
			sb.WriteString(resp.Content)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleDiffSnapshots(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		before, err := request.RequireString("before")
		if err != nil {
			return mcp.NewToolResultError("before is required"), nil
		}
		after, err := request.RequireString("after")
		if err != nil {
			return mcp.NewToolResultError("after is required"), nil
		}

		var resp models.DiffResponse
		if err := c.post(ctx, "/api/v1/diff", models.DiffRequest{Before: before, After: after}, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("diff failed", resp.Error)), nil
		}

		result := fmt.Sprintf("Deletions: %d\nInsertions: %d\nContent distance: %d/64\nStructural distance: %d/64\n\n%s",
			resp.Deletions, resp.Insertions, resp.ContentDistance, resp.StructuralDistance, resp.Markup)
		return mcp.NewToolResultText(result), nil
	}
}

func handleAuditSnapshot(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		markup, err := request.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}

		payload := models.AuditRequest{HTML: markup, Lang: request.GetString("lang", "")}
		var resp models.AuditResponse
		if err := c.post(ctx, "/api/v1/audit", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("audit failed", resp.Error)), nil
		}

		var sb strings.Builder
		writeFindings(&sb, resp.Findings)
		sb.WriteString("\n")
		sb.WriteString(resp.Markup)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func writeFindings(sb *strings.Builder, findings []models.Finding) {
	fmt.Fprintf(sb, "Fixes: %d\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(sb, "- [%s] %s: %s\n", f.Rule, f.Element, f.Action)
	}
}
