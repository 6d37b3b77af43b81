package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/martinemde/codeagent/llm"
)

// ToolHandler executes one tool call with parsed arguments and returns the
// text fed back to the model.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// RegisteredTool pairs a model-facing definition with its handler.
type RegisteredTool struct {
	Definition llm.ToolDefinition
	Handler    ToolHandler
}

// Registry holds the tools available to a run.
type Registry struct {
	tools map[string]*RegisteredTool
	mu    sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*RegisteredTool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition.Name] = &tool
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns all tool definitions for the model request.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition)
	}
	return defs
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ParseToolArguments unmarshals raw tool call arguments into a map.
func ParseToolArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// StringArg extracts a string argument.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntArg extracts an integer argument. JSON numbers arrive as float64.
func IntArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// BoolArg extracts a boolean argument.
func BoolArg(args map[string]any, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// StringSliceArg extracts a list-of-strings argument.
func StringSliceArg(args map[string]any, key string) ([]string, bool) {
	v, ok := args[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// builtinDefinitions are the model-facing schemas for the workspace tools.
func builtinDefinitions() map[string]llm.ToolDefinition {
	return map[string]llm.ToolDefinition{
		"read_file": {
			Name:        "read_file",
			Description: "Read the contents of a file",
			Parameters: objectSchema(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to read",
				},
				"max_chars": map[string]any{
					"type":        "integer",
					"description": "Maximum characters to read",
					"default":     10000,
				},
			}, "path"),
		},
		"write_file": {
			Name:        "write_file",
			Description: "Write content to a file",
			Parameters: objectSchema(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write to the file",
				},
			}, "path", "content"),
		},
		"list_files": {
			Name:        "list_files",
			Description: "List files and directories",
			Parameters: objectSchema(map[string]any{
				"directory": map[string]any{
					"type":        "string",
					"description": "Directory to list",
					"default":     ".",
				},
			}),
		},
		"create_directory": {
			Name:        "create_directory",
			Description: "Create a new directory",
			Parameters: objectSchema(map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the directory to create",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Create parent directories if needed",
					"default":     true,
				},
			}, "path"),
		},
		"search_files": {
			Name:        "search_files",
			Description: "Search for text patterns in files",
			Parameters: objectSchema(map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Text pattern to search for",
				},
				"file_extensions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "File extensions to search in",
				},
				"case_sensitive": map[string]any{
					"type":        "boolean",
					"description": "Whether search is case sensitive",
					"default":     false,
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results",
					"default":     50,
				},
			}, "pattern"),
		},
		"git_status": {
			Name:        "git_status",
			Description: "Get git repository status",
			Parameters:  objectSchema(map[string]any{}),
		},
		"git_diff": {
			Name:        "git_diff",
			Description: "Get git diff for changes",
			Parameters: objectSchema(map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Specific file to diff (optional)",
				},
			}),
		},
		"git_commit": {
			Name:        "git_commit",
			Description: "Create a git commit",
			Parameters: objectSchema(map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Commit message",
				},
				"add_all": map[string]any{
					"type":        "boolean",
					"description": "Stage all changes before committing",
					"default":     false,
				},
			}, "message"),
		},
	}
}
