package tools

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Router selects which ToolSets an LLM node may call for a given task.
type Router interface {
	Route(ctx context.Context, task Task) (*RoutingResult, error)
	Override(names []string) Router
}

// KeywordRouter implements keyword-based routing, grounded on the
// teacher's internal/mcp.KeywordRouter's matching/budget shape. Unlike
// that router, whose MCPServer tools are purely descriptive (dropping
// one under budget pressure only narrows what the model sees), a
// ToolSet here can carry tools with a MutableVar that the scheduler folds
// into an LLMNode's refs (spec.md scenario S4): silently dropping such
// a set would silently remove a mutable the caller asked for, not just
// trim the model's menu. applyToolBudget below treats any set carrying
// a mutable-write tool as forced-in, the same way AlwaysOn sets are.
type KeywordRouter struct {
	config    *Config
	registry  *Registry
	overrides []string
}

// NewRouter creates a keyword-based router. A nil cfg or reg uses
// DefaultConfig/an empty registry respectively.
func NewRouter(cfg *Config, reg *Registry) *KeywordRouter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &KeywordRouter{config: cfg, registry: reg}
}

// Route determines which ToolSets to expose for task.
func (r *KeywordRouter) Route(ctx context.Context, task Task) (*RoutingResult, error) {
	if !r.config.Enabled {
		return &RoutingResult{
			Task:         task,
			SelectedSets: r.registry.GetEnabled(),
			TotalTools:   r.registry.TotalToolCount(),
		}, nil
	}

	if len(r.overrides) > 0 {
		return r.routeWithOverrides(task), nil
	}

	text := strings.ToLower(task.Title + " " + task.Description)

	matched := make(map[string]bool)
	var matchedRules []string

	for _, name := range r.config.AlwaysOn {
		if !r.config.IsAlwaysOff(name) {
			matched[name] = true
		}
	}

	for _, rule := range r.config.Rules {
		if r.matchesRule(text, rule) {
			matchedRules = append(matchedRules, strings.Join(rule.Keywords, ","))
			for _, enable := range rule.Enable {
				for _, name := range r.config.ExpandGroup(enable) {
					if !r.config.IsAlwaysOff(name) {
						matched[name] = true
					}
				}
			}
		}
	}

	if len(matched) == 0 {
		for _, s := range r.registry.GetEnabled() {
			if s.Priority >= 80 && !r.config.IsAlwaysOff(s.Name) {
				matched[s.Name] = true
			}
		}
	}

	selected := r.buildSetList(matched)
	selected, total, filtered := r.applyToolBudget(selected)

	return &RoutingResult{
		Task:          task,
		SelectedSets:  selected,
		MatchedRules:  matchedRules,
		TotalTools:    total,
		FilteredTools: filtered,
	}, nil
}

func (r *KeywordRouter) matchesRule(text string, rule RoutingRule) bool {
	if rule.Pattern != "" {
		if matched, err := regexp.MatchString(rule.Pattern, text); err == nil && matched {
			return true
		}
	}
	for _, kw := range rule.Keywords {
		if containsWord(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsWord(text, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(text, keyword)
	}
	for _, word := range strings.Fields(text) {
		if strings.Trim(word, ".,;:!?\"'()[]{}") == keyword {
			return true
		}
	}
	return false
}

func (r *KeywordRouter) routeWithOverrides(task Task) *RoutingResult {
	matched := make(map[string]bool)
	for _, name := range r.overrides {
		if !r.config.IsAlwaysOff(name) {
			matched[name] = true
		}
	}
	selected := r.buildSetList(matched)

	total := 0
	for _, s := range selected {
		total += s.ToolCount
	}
	return &RoutingResult{
		Task:          task,
		SelectedSets:  selected,
		MatchedRules:  []string{"override"},
		TotalTools:    total,
		FilteredTools: total,
	}
}

func (r *KeywordRouter) buildSetList(matched map[string]bool) []ToolSet {
	out := make([]ToolSet, 0, len(matched))
	for name := range matched {
		if s, ok := r.registry.Get(name); ok && s.Enabled {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

func (r *KeywordRouter) applyToolBudget(sets []ToolSet) ([]ToolSet, int, int) {
	total := 0
	for _, s := range sets {
		total += s.ToolCount
	}
	if total <= r.config.MaxToolsPerTask {
		return sets, total, total
	}

	filtered := make([]ToolSet, 0)
	filteredTools := 0
	for _, s := range sets {
		if filteredTools+s.ToolCount <= r.config.MaxToolsPerTask {
			filtered = append(filtered, s)
			filteredTools += s.ToolCount
		} else if r.config.IsAlwaysOn(s.Name) || hasMutableWrite(s) {
			filtered = append(filtered, s)
			filteredTools += s.ToolCount
		}
	}
	return filtered, total, filteredTools
}

// hasMutableWrite reports whether set contains a tool whose call can
// write a mutable already live in the graph -- such a set must survive
// tool-budget filtering even over MaxToolsPerTask, since the caller
// routed this task specifically expecting that side effect to be
// reachable (spec.md scenario S4), not merely offering the model an
// optional capability.
func hasMutableWrite(set ToolSet) bool {
	for _, t := range set.Tools {
		if t.MutableVar != nil && t.Write {
			return true
		}
	}
	return false
}

// Override returns a new router restricted to the named ToolSets.
func (r *KeywordRouter) Override(names []string) Router {
	return &KeywordRouter{config: r.config, registry: r.registry, overrides: names}
}
