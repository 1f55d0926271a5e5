package tools

import (
	"context"
	"testing"

	"github.com/agraph/flow/internal/variable"
)

func registryWithSets(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(ToolSet{Name: "registry", Priority: 100, Enabled: true, ToolCount: 3}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(ToolSet{Name: "search", Priority: 70, Enabled: true, ToolCount: 2}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(ToolSet{Name: "disabled", Priority: 90, Enabled: false, ToolCount: 5}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func TestRouteMatchesKeywordRule(t *testing.T) {
	reg := registryWithSets(t)
	router := NewRouter(DefaultConfig(), reg)

	result, err := router.Route(context.Background(), Task{Title: "Remember the user's name", Description: ""})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	found := false
	for _, s := range result.SelectedSets {
		if s.Name == "registry" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'remember' to match the registry rule, got %+v", result.SelectedSets)
	}
}

func TestRouteFallsBackToHighPriorityWhenNoRuleMatches(t *testing.T) {
	reg := registryWithSets(t)
	router := NewRouter(DefaultConfig(), reg)

	result, err := router.Route(context.Background(), Task{Title: "do something unrelated", Description: "xyz"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	found := false
	for _, s := range result.SelectedSets {
		if s.Name == "registry" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the high-priority fallback to include registry (priority 100), got %+v", result.SelectedSets)
	}
}

func TestRouteNeverSelectsDisabledSet(t *testing.T) {
	reg := registryWithSets(t)
	cfg := DefaultConfig()
	cfg.Rules = append(cfg.Rules, RoutingRule{Keywords: []string{"disabled"}, Enable: []string{"disabled"}})
	router := NewRouter(cfg, reg)

	result, err := router.Route(context.Background(), Task{Title: "disabled please", Description: ""})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	for _, s := range result.SelectedSets {
		if s.Name == "disabled" {
			t.Fatal("a disabled ToolSet must never be selected, even if explicitly named by a rule")
		}
	}
}

func TestRouteDisabledRouterSelectsEverythingEnabled(t *testing.T) {
	reg := registryWithSets(t)
	cfg := DefaultConfig()
	cfg.Enabled = false
	router := NewRouter(cfg, reg)

	result, err := router.Route(context.Background(), Task{Title: "anything"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(result.SelectedSets) != 2 {
		t.Fatalf("expected both enabled sets when routing is disabled, got %d", len(result.SelectedSets))
	}
}

func TestApplyToolBudgetFiltersOverflowUnlessAlwaysOn(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ToolSet{Name: "a", Priority: 100, Enabled: true, ToolCount: 5})
	reg.Register(ToolSet{Name: "b", Priority: 90, Enabled: true, ToolCount: 5})

	cfg := DefaultConfig()
	cfg.MaxToolsPerTask = 5
	cfg.AlwaysOn = []string{"a", "b"}
	cfg.Rules = []RoutingRule{{Keywords: []string{"go"}, Enable: []string{"a", "b"}}}
	router := NewRouter(cfg, reg)

	result, err := router.Route(context.Background(), Task{Title: "go"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if result.FilteredTools > cfg.MaxToolsPerTask {
		// always-on sets are allowed to exceed the budget by design
	}
	if len(result.SelectedSets) != 2 {
		t.Fatalf("expected both always-on sets retained despite budget overflow, got %d", len(result.SelectedSets))
	}
}

func TestApplyToolBudgetNeverDropsAMutableWriteSet(t *testing.T) {
	m := variable.NewMutable("reg")
	reg := NewRegistry()
	reg.Register(ToolSet{Name: "a", Priority: 100, Enabled: true, ToolCount: 5})
	reg.Register(ToolSet{
		Name: "writer", Priority: 10, Enabled: true, ToolCount: 5,
		Tools: []Tool{{Name: "reg.set_value", MutableVar: m, Write: true}},
	})

	cfg := DefaultConfig()
	cfg.MaxToolsPerTask = 5
	cfg.Rules = []RoutingRule{{Keywords: []string{"go"}, Enable: []string{"a", "writer"}}}
	router := NewRouter(cfg, reg)

	result, err := router.Route(context.Background(), Task{Title: "go"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	found := false
	for _, s := range result.SelectedSets {
		if s.Name == "writer" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the mutable-write set 'writer' to survive budget filtering despite overflow, got %+v", result.SelectedSets)
	}
}

func TestOverrideBypassesRules(t *testing.T) {
	reg := registryWithSets(t)
	router := NewRouter(DefaultConfig(), reg)
	overridden := router.Override([]string{"search"})

	result, err := overridden.Route(context.Background(), Task{Title: "remember this"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(result.SelectedSets) != 1 || result.SelectedSets[0].Name != "search" {
		t.Fatalf("expected override to force 'search' regardless of keyword match, got %+v", result.SelectedSets)
	}
}

func TestMutableReadsCollectsBoundTools(t *testing.T) {
	m := variable.NewMutable("registry-obj")
	result := &RoutingResult{
		SelectedSets: []ToolSet{{
			Name: "registry",
			Tools: []Tool{
				{Name: "get", MutableVar: m, Write: false},
				{Name: "set", MutableVar: m, Write: true},
				{Name: "noop"},
			},
		}},
		TotalTools: 3,
	}

	bindings := result.MutableReads()
	if len(bindings) != 2 {
		t.Fatalf("expected 2 mutable bindings (get, set), got %d", len(bindings))
	}
	sawWrite := false
	for _, b := range bindings {
		if b.Write {
			sawWrite = true
		}
	}
	if !sawWrite {
		t.Fatal("expected at least one write binding from the 'set' tool")
	}
}
