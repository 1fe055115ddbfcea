package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Caller performs one feedback API request.
type Caller interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error)
}

// NewMCPServer returns an MCP server exposing every entry in Definitions.
func NewMCPServer(name, version string, api Caller) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, def := range Definitions {
		s.AddTool(def.Tool(), Handler(def, api))
	}
	return s
}

// Tool builds the MCP tool description with its input schema.
func (d Definition) Tool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(d.Description)}
	for _, p := range d.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case Number:
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case Boolean:
			opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	if d.Method == http.MethodGet {
		opts = append(opts, mcp.WithReadOnlyHintAnnotation(true))
	}
	if d.Method == http.MethodDelete {
		opts = append(opts, mcp.WithDestructiveHintAnnotation(true))
	}
	return mcp.NewTool(d.Name, opts...)
}

// Handler turns tool calls into API requests. Failures are reported as tool
// errors rather than protocol errors.
func Handler(def Definition, api Caller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		path, rest, err := expandPath(def.Path, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, p := range def.Params {
			if !p.Required || strings.Contains(def.Path, "{"+p.Name+"}") {
				continue
			}
			if stringify(rest[p.Name]) == "" {
				return mcp.NewToolResultError(fmt.Sprintf("%s argument is required", p.Name)), nil
			}
		}

		var (
			query url.Values
			body  any
		)
		switch def.Method {
		case http.MethodGet, http.MethodDelete:
			query = toQuery(rest)
		default:
			body = rest
		}

		out, err := api.Do(ctx, def.Method, path, query, body)
		if err != nil {
			log.Debug().Err(err).Str("tool", def.Name).Msg("tool call failed")
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", def.Name, err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// expandPath substitutes {name} placeholders and returns the arguments left over.
func expandPath(template string, args map[string]any) (string, map[string]any, error) {
	rest := make(map[string]any, len(args))
	for k, v := range args {
		rest[k] = v
	}

	var b strings.Builder
	for {
		start := strings.IndexByte(template, '{')
		if start < 0 {
			b.WriteString(template)
			break
		}
		end := strings.IndexByte(template[start:], '}')
		if end < 0 {
			b.WriteString(template)
			break
		}
		end += start
		name := template[start+1 : end]

		value := stringify(rest[name])
		if value == "" {
			return "", nil, fmt.Errorf("%s argument is required", name)
		}
		delete(rest, name)

		b.WriteString(template[:start])
		b.WriteString(url.PathEscape(value))
		template = template[end+1:]
	}
	return b.String(), rest, nil
}

func toQuery(args map[string]any) url.Values {
	if len(args) == 0 {
		return nil
	}
	q := make(url.Values, len(args))
	for k, v := range args {
		if s := stringify(v); s != "" {
			q.Set(k, s)
		}
	}
	return q
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
