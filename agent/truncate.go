package agent

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how oversized tool output is clipped.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Character ceilings per tool for output fed back into the conversation.
var defaultCharLimits = map[string]int{
	"read_file":    50000,
	"search_files": 20000,
	"list_files":   20000,
	"git_status":   10000,
	"git_diff":     30000,
	"git_commit":   2000,
	"write_file":   1000,
}

var defaultTruncationModes = map[string]TruncationMode{
	"read_file":    TruncateHeadTail,
	"git_diff":     TruncateHeadTail,
	"search_files": TruncateTail,
	"list_files":   TruncateTail,
	"git_status":   TruncateTail,
	"git_commit":   TruncateTail,
	"write_file":   TruncateTail,
}

// Line ceilings applied after character truncation.
var defaultLineLimits = map[string]int{
	"search_files": 200,
	"list_files":   500,
}

// truncateChars clips output to maxChars in the given mode, inserting a
// marker that tells the model what was removed.
func truncateChars(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}
	removed := len(output) - maxChars

	if mode == TruncateTail {
		return fmt.Sprintf("[Output truncated: first %d characters removed. Re-run with narrower parameters for the full output.]\n\n", removed) +
			output[len(output)-maxChars:]
	}

	half := maxChars / 2
	return output[:half] +
		fmt.Sprintf("\n\n[Output truncated: %d characters removed from the middle. Re-run with narrower parameters for the full output.]\n\n", removed) +
		output[len(output)-half:]
}

// truncateLines applies a head/tail line split.
func truncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateToolOutput bounds a tool result before it re-enters the
// conversation: character truncation first, then line truncation.
func TruncateToolOutput(output, toolName string) string {
	maxChars, ok := defaultCharLimits[toolName]
	if !ok {
		maxChars = 20000
	}
	mode, ok := defaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}
	result := truncateChars(output, maxChars, mode)

	if maxLines, ok := defaultLineLimits[toolName]; ok {
		result = truncateLines(result, maxLines)
	}
	return result
}
