package compact

import (
	"strings"

	"github.com/felixgeelhaar/kudzu-context/internal/trace"
)

var learningPurposes = map[string]struct{}{
	"learning":  {},
	"discovery": {},
	"research":  {},
}

// WorkflowKeywords mark general traces that describe operational actions.
var WorkflowKeywords = []string{
	"commit", "rsync", "deploy", "ssh", "git", "workflow",
	"build", "make", "docker", "screen", "tmux", "script",
}

// FactKeywords mark general traces that carry identifying information.
var FactKeywords = []string{
	"machine", "repo", "path", "url", "host", "server", "api",
	"port", "directory", "ip", "address", "endpoint", "config",
}

// Categorize assigns a trace to exactly one section. The first matching
// rule wins; Current State catches everything else.
func Categorize(t trace.Trace, content string) Section {
	lower := strings.ToLower(content)

	if _, ok := learningPurposes[t.Purpose]; ok {
		return Learnings
	}

	switch t.Purpose {
	case "decision":
		return RecentDecisions
	case "session_context":
		if payload := t.Payload(); payload != nil && trace.Truthy(payload["project"]) {
			return ActiveProjects
		}
		if strings.Contains(lower, "project") {
			return ActiveProjects
		}
		return CurrentState
	}

	// observation, thought, memory or anything unrecognised
	if containsAny(lower, WorkflowKeywords) {
		return Workflows
	}
	if containsAny(lower, FactKeywords) {
		return KeyFacts
	}
	return CurrentState
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
