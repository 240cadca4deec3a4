package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cucumber/godog"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven/mocks"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// featureState is the world shared by the steps of one scenario.
type featureState struct {
	store      *mocks.MockKnowledgeBaseStore
	svc        *KnowledgeBaseService
	result     *domain.SyncResult
	err        error
	writes     int
	remembered map[string]string
	deletedID  string
	prompt     string
}

func initializeScenario(sc *godog.ScenarioContext) {
	s := &featureState{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*s = featureState{remembered: make(map[string]string)}
		return ctx, nil
	})

	sc.Step(`^an empty knowledge store$`, s.anEmptyKnowledgeStore)
	sc.Step(`^I sync "([^"]*)"(?: again)? with:$`, s.iSyncWith)
	sc.Step(`^I replace "([^"]*)" with:$`, s.iReplaceWith)
	sc.Step(`^I sync "([^"]*)" with a product description of (\d+) characters followed by "([^"]*)"$`, s.iSyncLongProduct)
	sc.Step(`^the stats are added (\d+), updated (\d+), skipped (\d+), total (\d+)$`, s.theStatsAre)
	sc.Step(`^the knowledge base "([^"]*)" has itemCount "([^"]*)"$`, s.theKnowledgeBaseHasItemCount)
	sc.Step(`^the knowledge base "([^"]*)" has (\d+) items?$`, s.theKnowledgeBaseHasItems)
	sc.Step(`^no item rows were written by the last sync$`, s.noItemRowsWritten)
	sc.Step(`^I remember the item with identity "([^"]*)"$`, s.iRememberTheItem)
	sc.Step(`^the item with identity "([^"]*)" has content "([^"]*)"$`, s.theItemHasContent)
	sc.Step(`^the item with identity "([^"]*)" kept its id$`, s.theItemKeptItsID)
	sc.Step(`^an item with content "([^"]*)" exists$`, s.anItemWithContentExists)
	sc.Step(`^the sync is rejected as invalid$`, s.theSyncIsRejected)
	sc.Step(`^no knowledge base exists$`, s.noKnowledgeBaseExists)
	sc.Step(`^I delete the knowledge base "([^"]*)"$`, s.iDeleteTheKnowledgeBase)
	sc.Step(`^the items of the deleted knowledge base are empty$`, s.theDeletedItemsAreEmpty)
	sc.Step(`^I assemble the system prompt with a budget of (\d+) characters$`, s.iAssembleThePrompt)
	sc.Step(`^the prompt has exactly (\d+) characters$`, s.thePromptHasLength)
	sc.Step(`^the prompt contains "([^"]*)"$`, s.thePromptContains)
	sc.Step(`^the prompt does not contain "([^"]*)"$`, s.thePromptDoesNotContain)
}

func (s *featureState) anEmptyKnowledgeStore() error {
	s.store = mocks.NewMockKnowledgeBaseStore()
	s.svc = NewKnowledgeBaseService(KnowledgeBaseServiceConfig{Store: s.store})
	return nil
}

func (s *featureState) upload(name, raw string, mode domain.UpdateMode) error {
	s.writes = s.store.ItemWriteCalls
	s.result, s.err = nil, nil

	records, err := domain.ParseRecords(json.RawMessage(raw))
	if err != nil {
		s.err = err
		return nil
	}
	s.result, s.err = s.svc.Sync(context.Background(), domain.SyncRequest{
		OwnerID: testOwner,
		Name:    name,
		Records: records,
		Mode:    mode,
	})
	return nil
}

func (s *featureState) iSyncWith(name string, doc *godog.DocString) error {
	return s.upload(name, doc.Content, domain.UpdateModeSmart)
}

func (s *featureState) iReplaceWith(name string, doc *godog.DocString) error {
	return s.upload(name, doc.Content, domain.UpdateModeReplace)
}

func (s *featureState) iSyncLongProduct(name string, length int, tail string) error {
	desc := strings.Repeat("x", length)
	raw := fmt.Sprintf(`[{"pageContent":%q,"metadata":{"product_name":"Baumkuchen"}},{"pageContent":%q,"metadata":{"kb_section_title":"Ende"}}]`, desc, tail)
	if err := s.upload(name, raw, domain.UpdateModeSmart); err != nil {
		return err
	}
	return s.err
}

func (s *featureState) theStatsAre(added, updated, skipped, total int) error {
	if s.err != nil {
		return fmt.Errorf("sync failed: %w", s.err)
	}
	want := domain.SyncStats{Added: added, Updated: updated, Skipped: skipped, Total: total}
	if s.result.Stats != want {
		return fmt.Errorf("expected stats %+v, got %+v", want, s.result.Stats)
	}
	return nil
}

func (s *featureState) knowledgeBase(name string) (*domain.KnowledgeBase, error) {
	return s.store.GetByName(context.Background(), testOwner, name)
}

func (s *featureState) theKnowledgeBaseHasItemCount(name, count string) error {
	kb, err := s.knowledgeBase(name)
	if err != nil {
		return err
	}
	out, err := json.Marshal(kb)
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		return err
	}
	if decoded["itemCount"] != count {
		return fmt.Errorf("expected itemCount %q, got %v", count, decoded["itemCount"])
	}
	return nil
}

func (s *featureState) theKnowledgeBaseHasItems(name string, count int) error {
	kb, err := s.knowledgeBase(name)
	if err != nil {
		return err
	}
	items, err := s.store.GetItems(context.Background(), kb.ID)
	if err != nil {
		return err
	}
	if len(items) != count {
		return fmt.Errorf("expected %d items, got %d", count, len(items))
	}
	return nil
}

func (s *featureState) noItemRowsWritten() error {
	if s.store.ItemWriteCalls != s.writes {
		return fmt.Errorf("expected no item writes, got %d", s.store.ItemWriteCalls-s.writes)
	}
	return nil
}

func (s *featureState) itemByIdentity(identity string) (*domain.KnowledgeBaseItem, error) {
	for _, item := range s.store.AllItems() {
		if item.IdentityKey == identity {
			return item, nil
		}
	}
	return nil, fmt.Errorf("no item with identity %q", identity)
}

func (s *featureState) iRememberTheItem(identity string) error {
	item, err := s.itemByIdentity(identity)
	if err != nil {
		return err
	}
	s.remembered[identity] = item.ID
	return nil
}

func (s *featureState) theItemHasContent(identity, content string) error {
	item, err := s.itemByIdentity(identity)
	if err != nil {
		return err
	}
	if item.PageContent != content {
		return fmt.Errorf("expected content %q, got %q", content, item.PageContent)
	}
	return nil
}

func (s *featureState) theItemKeptItsID(identity string) error {
	item, err := s.itemByIdentity(identity)
	if err != nil {
		return err
	}
	if item.ID != s.remembered[identity] {
		return fmt.Errorf("expected id %s, got %s", s.remembered[identity], item.ID)
	}
	return nil
}

func (s *featureState) anItemWithContentExists(content string) error {
	for _, item := range s.store.AllItems() {
		if item.PageContent == content {
			return nil
		}
	}
	return fmt.Errorf("no item with content %q", content)
}

func (s *featureState) theSyncIsRejected() error {
	if !errors.Is(s.err, domain.ErrInvalidInput) {
		return fmt.Errorf("expected a validation error, got %v", s.err)
	}
	return nil
}

func (s *featureState) noKnowledgeBaseExists() error {
	if n := s.store.KnowledgeBaseCount(); n != 0 {
		return fmt.Errorf("expected no knowledge base, got %d", n)
	}
	return nil
}

func (s *featureState) iDeleteTheKnowledgeBase(name string) error {
	kb, err := s.knowledgeBase(name)
	if err != nil {
		return err
	}
	s.deletedID = kb.ID
	return s.svc.Delete(context.Background(), testOwner, kb.ID)
}

func (s *featureState) theDeletedItemsAreEmpty() error {
	items, err := s.store.GetItems(context.Background(), s.deletedID)
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected no items, got %d", len(items))
	}
	return nil
}

func (s *featureState) iAssembleThePrompt(budget int) error {
	a := NewPromptAssembler(PromptAssemblerConfig{Store: s.store, MaxChars: budget})
	prompt, err := a.Assemble(context.Background(), testOwner)
	if err != nil {
		return err
	}
	s.prompt = prompt
	return nil
}

func (s *featureState) thePromptHasLength(length int) error {
	if n := utf8.RuneCountInString(s.prompt); n != length {
		return fmt.Errorf("expected %d characters, got %d", length, n)
	}
	return nil
}

func (s *featureState) thePromptContains(text string) error {
	if !strings.Contains(s.prompt, text) {
		return fmt.Errorf("expected prompt to contain %q", text)
	}
	return nil
}

func (s *featureState) thePromptDoesNotContain(text string) error {
	if strings.Contains(s.prompt, text) {
		return fmt.Errorf("expected prompt not to contain %q", text)
	}
	return nil
}
