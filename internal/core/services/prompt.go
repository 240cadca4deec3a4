package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
	"github.com/baumi-labs/baumi-core/internal/renderers"
)

// DefaultPromptMaxChars is the system prompt budget in characters.
const DefaultPromptMaxChars = 3000

// DefaultPersona introduces the assistant to the model.
const DefaultPersona = `Du bist Baumi, Kundenservice-Assistent für die Erste Salzwedeler Baumkuchen-Manufaktur.

WICHTIGE REGELN:
- Nutze AUSSCHLIESSLICH Informationen aus der bereitgestellten Wissensbasis
- Erfinde NIEMALS Produktdaten, Gewichte, Preise oder andere Details
- Wenn eine Information nicht in der Wissensbasis steht, sage ehrlich "Das kann ich nicht genau sagen"
- Gib nur korrekte, verifizierte Daten weiter

Verhalten:
- Freundlich und hilfsbereit
- Deutsche Anrede, traditionsbewusst
- Bei Produktfragen: Nutze nur Daten aus der Wissensbasis`

// ContextHeader opens the knowledge block of the prompt.
const ContextHeader = "VERFÜGBARE PRODUKTE:\n\n"

// ContextInstructions closes the knowledge block of the prompt.
const ContextInstructions = `WICHTIGE ANWEISUNGEN:
- Nutze NUR die Informationen aus der obigen Wissensbasis
- Erfinde KEINE Produktdaten (Gewichte, Preise, etc.)
- Bei Zartbitter-Baumkuchen: Verwende nur die exakten Angaben aus der Wissensbasis
- Füge Shop-Links im Format [Produktname](URL) ein wenn verfügbar
- Wenn Informationen fehlen, sage ehrlich "Das weiß ich nicht genau"
- Sei freundlich und hilfsbereit aber präzise`

// PromptAssembler renders the stored knowledge into the chat system prompt.
type PromptAssembler struct {
	store     driven.KnowledgeBaseStore
	renderers driven.RendererRegistry
	persona   string
	maxChars  int
	logger    *slog.Logger
}

// PromptAssemblerConfig holds dependencies for PromptAssembler.
type PromptAssemblerConfig struct {
	Store     driven.KnowledgeBaseStore
	Renderers driven.RendererRegistry // defaults to renderers.DefaultRegistry()
	Persona   string                  // defaults to DefaultPersona
	MaxChars  int                     // defaults to DefaultPromptMaxChars
	Logger    *slog.Logger
}

// NewPromptAssembler creates a new prompt assembler.
func NewPromptAssembler(cfg PromptAssemblerConfig) *PromptAssembler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Renderers
	if registry == nil {
		registry = renderers.DefaultRegistry()
	}
	persona := cfg.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultPromptMaxChars
	}

	return &PromptAssembler{
		store:     cfg.Store,
		renderers: registry,
		persona:   persona,
		maxChars:  maxChars,
		logger:    logger,
	}
}

// Assemble builds the system prompt for an owner. On a store failure it
// still returns the persona-only prompt, together with the error.
func (a *PromptAssembler) Assemble(ctx context.Context, ownerID string) (string, error) {
	block, err := a.contextBlock(ctx, ownerID)
	if err != nil {
		return a.truncate(a.persona + "\n\n"), err
	}
	return a.truncate(a.persona + "\n\n" + block), nil
}

// MaxChars returns the prompt budget in characters.
func (a *PromptAssembler) MaxChars() int {
	return a.maxChars
}

func (a *PromptAssembler) contextBlock(ctx context.Context, ownerID string) (string, error) {
	kbs, err := a.store.List(ctx, ownerID, domain.ListByCreatedAsc)
	if err != nil {
		return "", domain.PersistenceError("list knowledge bases", err)
	}
	if len(kbs) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(ContextHeader)
	for _, kb := range kbs {
		if err := a.renderKnowledgeBase(ctx, &b, kb); err != nil {
			return "", err
		}
	}
	b.WriteString("\n\n")
	b.WriteString(ContextInstructions)
	return b.String(), nil
}

func (a *PromptAssembler) renderKnowledgeBase(ctx context.Context, b *strings.Builder, kb *domain.KnowledgeBase) error {
	items, err := a.store.GetItems(ctx, kb.ID)
	if err != nil {
		return domain.PersistenceError(fmt.Sprintf("get items of %s", kb.Name), err)
	}

	if len(items) > 0 {
		for _, item := range items {
			b.WriteString(a.renderers.Render(item.PageContent, item.Metadata))
		}
		return nil
	}

	// Knowledge bases written in replace mode have no items.
	records, err := kb.Records()
	if err != nil {
		a.logger.Warn("skipping unreadable knowledge base snapshot", "name", kb.Name, "error", err)
		return nil
	}
	for _, rec := range records {
		if rec.PageContent == "" || rec.Metadata == nil {
			continue
		}
		b.WriteString(a.renderers.Render(rec.PageContent, *rec.Metadata))
	}
	return nil
}

func (a *PromptAssembler) truncate(prompt string) string {
	return renderers.Head(prompt, a.maxChars)
}
