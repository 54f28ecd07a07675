package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// TextGenerator yields generated text for a prompt, either whole or as a
// stream of fragments. Keeping the document service behind this interface
// means the relay logic does not care which generative-text vendor is wired.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	GenerateStream(ctx context.Context, system, prompt string) (<-chan string, <-chan error)
}

// Document kinds the AI endpoints can draft.
const (
	KindSkill = "skill"
	KindAgent = "agent"
)

// GenerateRequest is the body for the document generation endpoints.
type GenerateRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=skill agent"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	// Instructions holds free-form user guidance for the draft.
	Instructions string `json:"instructions"`
	// Existing is the current document when refining; empty when drafting.
	Existing string `json:"existing"`
}

const systemPrompt = `You are a technical writer producing markdown definition files for an AI coding platform.
Each file starts with a YAML front-matter block delimited by '---' lines containing exactly
'name' (max 64 characters) and 'description' (max 200 characters), followed by the markdown body.
Output only the document, without surrounding commentary.`

// DocumentService drafts and refines skill/agent markdown definitions through
// a generative-text provider.
type DocumentService struct {
	generator TextGenerator
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(generator TextGenerator) *DocumentService {
	return &DocumentService{generator: generator}
}

func buildPrompt(req *GenerateRequest) string {
	var sb strings.Builder
	if req.Existing == "" {
		fmt.Fprintf(&sb, "Draft a %s definition named %q.\n", req.Kind, req.Name)
	} else {
		fmt.Fprintf(&sb, "Refine the following %s definition named %q.\n", req.Kind, req.Name)
	}
	fmt.Fprintf(&sb, "Purpose: %s\n", req.Description)
	if req.Instructions != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n", req.Instructions)
	}
	if req.Existing != "" {
		fmt.Fprintf(&sb, "\nCurrent document:\n%s\n", req.Existing)
	}
	return sb.String()
}

// Generate produces the full document in one call.
func (s *DocumentService) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	text, err := s.generator.Generate(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		return "", fmt.Errorf("%w: %s", utils.ErrProviderFailure, err)
	}
	return StripCodeFence(text), nil
}

// GenerateStream produces the document incrementally. Fragments are forwarded
// as-is; the caller assembles and fence-strips the final text.
func (s *DocumentService) GenerateStream(ctx context.Context, req *GenerateRequest) (<-chan string, <-chan error) {
	return s.generator.GenerateStream(ctx, systemPrompt, buildPrompt(req))
}

// StripCodeFence removes one optional surrounding markdown code fence
// (```...```), which models often wrap documents in despite instructions.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return trimmed
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
