package agent

import (
	"context"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/util"
)

// Provider supplies instruction text at call time, derived from the log.
type Provider interface {
	Instruction(ctx context.Context, log *core.ChatHistory) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, log *core.ChatHistory) (string, error)

// Instruction implements Provider.
func (f ProviderFunc) Instruction(ctx context.Context, log *core.ChatHistory) (string, error) {
	return f(ctx, log)
}

// Instruction is either a static text, a template rendered against the log,
// or a dynamic provider.
type Instruction struct {
	text     string
	template bool
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromTemplate creates an Instruction rendered with
// util.RenderTemplate. The template sees .Question and .Messages.
func NewInstructionFromTemplate(tmpl string) Instruction {
	return Instruction{text: tmpl, template: true}
}

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, log *core.ChatHistory) (string, error)) Instruction {
	return Instruction{provider: ProviderFunc(f)}
}

// IsStatic reports whether the instruction is a plain string.
func (i Instruction) IsStatic() bool { return i.provider == nil && !i.template }

// Resolve returns the instruction text for log.
func (i Instruction) Resolve(ctx context.Context, log *core.ChatHistory) (string, error) {
	switch {
	case i.provider != nil:
		return i.provider.Instruction(ctx, log)
	case i.template:
		question, _ := log.LatestQuestion()
		return util.RenderTemplate(i.text, map[string]any{
			"Question": question,
			"Messages": log.Messages(false),
		})
	default:
		return i.text, nil
	}
}

func (i Instruction) isZero() bool {
	return i.text == "" && i.provider == nil && !i.template
}
