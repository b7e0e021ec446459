package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptChapterDraftV1    PromptID = "chapter_draft_v1"
	PromptChapterExtendV1   PromptID = "chapter_extend_v1"
	PromptChapterValidateV1 PromptID = "chapter_validate_v1"
	PromptEntityCheckV1     PromptID = "entity_check_v1"
	PromptEntityExtractV1   PromptID = "entity_extract_v1"
	PromptChapterTitleV1    PromptID = "chapter_title_v1"
)

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	system, user, err := readPromptPair(id)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func readPromptPair(id PromptID) (system string, user string, err error) {
	switch id {
	case PromptChapterDraftV1, PromptChapterExtendV1, PromptChapterValidateV1,
		PromptEntityCheckV1, PromptEntityExtractV1, PromptChapterTitleV1:
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
	system, err = readEmbeddedText(fmt.Sprintf("templates/%s.system.txt", id))
	if err != nil {
		return "", "", err
	}
	user, err = readEmbeddedText(fmt.Sprintf("templates/%s.user.txt", id))
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
