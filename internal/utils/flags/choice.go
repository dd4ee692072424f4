// Package flags provides pflag values shared by the command-line surface.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderPrefix         = "<"
	choicePlaceholderSuffix         = ">"
	choiceSeparatorLiteral          = "|"
	choiceUsageEmptyTemplate        = "`%s`"
	choiceUsageFullTemplate         = "`%s` %s"
	choiceInvalidValueTemplate      = "invalid value %q: expected one of %s"
	choiceValueTypeConstant         = "string"
	choiceAllowedValuesJoinConstant = ", "
)

// ChoiceValue is a string flag restricted to a fixed set of case-insensitive options.
type ChoiceValue struct {
	current string
	choices []string
}

var _ pflag.Value = (*ChoiceValue)(nil)

// AddChoiceFlag registers a choice flag on the flag set and returns its value holder.
func AddChoiceFlag(flagSet *pflag.FlagSet, name string, defaultChoice string, choices []string, description string) *ChoiceValue {
	value := &ChoiceValue{current: strings.ToLower(strings.TrimSpace(defaultChoice)), choices: normalizeChoices(choices)}
	if flagSet == nil || len(name) == 0 {
		return value
	}
	flagSet.Var(value, name, FormatChoiceUsage(defaultChoice, choices, description))
	return value
}

// Set accepts one of the configured choices.
func (value *ChoiceValue) Set(rawValue string) error {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	for _, choice := range value.choices {
		if choice == normalizedValue {
			value.current = normalizedValue
			return nil
		}
	}
	return fmt.Errorf(choiceInvalidValueTemplate, rawValue, strings.Join(value.choices, choiceAllowedValuesJoinConstant))
}

// String returns the selected choice.
func (value *ChoiceValue) String() string {
	if value == nil {
		return ""
	}
	return value.current
}

// Type reports the flag type shown in help output.
func (value *ChoiceValue) Type() string {
	return choiceValueTypeConstant
}

// FormatChoiceUsage builds a usage string where the default option is capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := choicePlaceholderPrefix + strings.Join(highlightDefaultChoice(defaultChoice, choices), choiceSeparatorLiteral) + choicePlaceholderSuffix
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

func highlightDefaultChoice(defaultChoice string, choices []string) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	highlighted := make([]string, 0, len(choices))
	for _, choice := range normalizeChoices(choices) {
		if choice == normalizedDefault {
			highlighted = append(highlighted, strings.ToUpper(choice))
			continue
		}
		highlighted = append(highlighted, choice)
	}
	return highlighted
}

func normalizeChoices(choices []string) []string {
	normalized := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		normalizedChoice := strings.ToLower(strings.TrimSpace(choice))
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		normalized = append(normalized, normalizedChoice)
	}
	return normalized
}
