// Package persona injects a deterministic style preamble ahead of a
// conversation window. The preamble is built fresh on every exchange and is
// never persisted.
package persona

import (
	"fmt"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/llm"
)

// Style selects the preamble shape.
type Style string

const (
	// StyleSystem prepends a single system-voiced instruction.
	StyleSystem Style = "system"
	// StyleDialog prepends a fixed user-voiced instruction plus an
	// assistant-voiced acknowledgement.
	StyleDialog Style = "dialog"
)

// Persona describes the assistant identity used to steer responses.
type Persona struct {
	Name  string `yaml:"name"`
	Style Style  `yaml:"style"`
}

func (p Persona) normalized() Persona {
	if p.Name == "" {
		p.Name = "Parley"
	}
	if p.Style != StyleDialog {
		p.Style = StyleSystem
	}
	return p
}

// PreambleLen reports how many synthetic turns Build prepends.
func (p Persona) PreambleLen() int {
	if p.normalized().Style == StyleDialog {
		return 2
	}
	return 1
}

// Build prepends the persona preamble to history. The input slice is not
// mutated or reordered; given identical user fields the preamble text is
// byte-identical.
func (p Persona) Build(history []llm.Message, user directory.User) []llm.Message {
	p = p.normalized()
	preamble := p.preamble(user)
	out := make([]llm.Message, 0, len(preamble)+len(history))
	out = append(out, preamble...)
	out = append(out, history...)
	return out
}

func (p Persona) preamble(user directory.User) []llm.Message {
	tone := "informal"
	if user.AddressForm == directory.AddressFormal {
		tone = "formal"
	}
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}

	if p.Style == StyleDialog {
		return []llm.Message{
			{
				Role: llm.RoleUser,
				Content: fmt.Sprintf(
					"From now on you are %s, my personal assistant. My name is %s; address me by that name and keep a %s tone.",
					p.Name, name, tone),
			},
			{
				Role: llm.RoleAssistant,
				Content: fmt.Sprintf(
					"Understood. I am %s, and I will address you as %s.",
					p.Name, name),
			},
		}
	}
	return []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: fmt.Sprintf(
				"You are %s, a personal assistant. Address the user as %s and keep a %s tone.",
				p.Name, name, tone),
		},
	}
}
