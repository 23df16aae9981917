package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// ContextBuilder aggregates registered context providers into the two
// assembled payloads of a pipeline run: an optional system message (only when
// extended context is requested) and a user-content enrichment block.
//
// Providers are kept in two explicit lists. Registration order is the order
// providers are consulted; the priority on each returned section governs only
// the output ordering.
type ContextBuilder struct {
	systemProviders []playbooktypes.ContextProvider
	userProviders   []playbooktypes.ContextProvider
	log             *log.Logger
}

// NewContextBuilder creates an empty context builder.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{
		log: logger.NewStyledLogger("ContextBuilder"),
	}
}

// RegisterSystemProvider appends a provider consulted only when the request
// asks for extended context.
func (b *ContextBuilder) RegisterSystemProvider(p playbooktypes.ContextProvider) {
	b.systemProviders = append(b.systemProviders, p)
}

// RegisterUserProvider appends a provider consulted on every request.
func (b *ContextBuilder) RegisterUserProvider(p playbooktypes.ContextProvider) {
	b.userProviders = append(b.userProviders, p)
}

// BuildContext assembles the context for one request. SystemMessage is nil
// whenever extended context was not requested, distinguishing "no context
// needed" from "empty context computed". Any provider error aborts the whole
// build; a partial context would give the model a misleading picture of
// workflow state.
func (b *ContextBuilder) BuildContext(ctx context.Context, req *playbooktypes.ContextRequest) (*playbooktypes.BuiltContext, error) {
	built := &playbooktypes.BuiltContext{}

	if req.IncludeExtendedContext {
		sections, err := b.collectSections(ctx, b.systemProviders, req)
		if err != nil {
			return nil, err
		}
		system := joinSections(sections)
		built.SystemMessage = &system
	}

	sections, err := b.collectSections(ctx, b.userProviders, req)
	if err != nil {
		return nil, err
	}
	built.UserContent = joinSections(sections)

	b.log.Debug("Context assembled",
		"extended", req.IncludeExtendedContext,
		"user_content_length", len(built.UserContent))
	return built, nil
}

// collectSections consults providers in registration order, filtering by
// ShouldProvide and dropping nil sections.
func (b *ContextBuilder) collectSections(ctx context.Context, providers []playbooktypes.ContextProvider, req *playbooktypes.ContextRequest) ([]playbooktypes.ContextSection, error) {
	var sections []playbooktypes.ContextSection
	for _, provider := range providers {
		if !provider.ShouldProvide(req) {
			continue
		}
		section, err := provider.BuildContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("context provider '%s' failed: %w", provider.Name(), err)
		}
		if section == nil {
			continue
		}
		sections = append(sections, *section)
	}
	return sections, nil
}

// joinSections orders sections by descending priority, drops empty content,
// and joins the rest with a blank line.
func joinSections(sections []playbooktypes.ContextSection) string {
	sorted := make([]playbooktypes.ContextSection, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	parts := make([]string, 0, len(sorted))
	for _, section := range sorted {
		if section.Content == "" {
			continue
		}
		parts = append(parts, section.Content)
	}
	return strings.Join(parts, "\n\n")
}
