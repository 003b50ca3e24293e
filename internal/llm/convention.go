package llm

import "strings"

// CallConvention is how a model expects instructions and token budgets.
type CallConvention int

const (
	// ConventionStandard sends one system and one user message with a
	// max_tokens budget.
	ConventionStandard CallConvention = iota
	// ConventionReasoning sends instructions as a developer message with
	// high reasoning effort and a max_completion_tokens budget.
	ConventionReasoning
	// ConventionInstructionSlot puts instructions in a dedicated system
	// instruction field with a max_output_tokens budget.
	ConventionInstructionSlot
)

func (c CallConvention) String() string {
	switch c {
	case ConventionReasoning:
		return "reasoning"
	case ConventionInstructionSlot:
		return "instruction_slot"
	default:
		return "standard"
	}
}

// ResolveConvention picks the calling convention for a provider and model.
func ResolveConvention(provider Provider, model string) CallConvention {
	switch provider {
	case ProviderGoogle:
		return ConventionInstructionSlot
	case ProviderOpenAI:
		if strings.HasPrefix(model, "o") || strings.HasPrefix(model, "gpt-5") {
			return ConventionReasoning
		}
	}
	return ConventionStandard
}
