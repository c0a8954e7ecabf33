package output

import (
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type (
	Report struct {
		RunID       string             `yaml:"run-id"`
		Network     string             `yaml:"network"`
		Scenario    string             `yaml:"scenario"`
		Status      string             `yaml:"status"`
		Error       SingleQuotedString `yaml:"error,omitempty"`
		StartedAt   time.Time          `yaml:"started-at"`
		FinishedAt  time.Time          `yaml:"finished-at"`
		Contracts   []Contract         `yaml:"contracts"`
		Environment *Environment       `yaml:"environment,omitempty"`
		Fund        *FundState         `yaml:"fund,omitempty"`
		ManualSteps []ManualStep       `yaml:"manual-steps,omitempty"`
	}

	Contract struct {
		Name     string             `yaml:"name"`
		Address  SingleQuotedString `yaml:"address"`
		Artifact string             `yaml:"artifact,omitempty"`
		ABI      SingleQuotedString `yaml:"abi,omitempty"`
	}

	Environment struct {
		Tokens []Token `yaml:"tokens"`
	}

	Token struct {
		Symbol  string             `yaml:"symbol"`
		Address SingleQuotedString `yaml:"address"`
		Market  SingleQuotedString `yaml:"market"`
		Price   string             `yaml:"price"`
	}

	// FundState reports current-phase as -1 until the first phase succeeds.
	FundState struct {
		Name            string             `yaml:"name"`
		Address         SingleQuotedString `yaml:"address"`
		PhasesCompleted int                `yaml:"phases-completed"`
		CurrentPhase    int                `yaml:"current-phase"`
		Operational     bool               `yaml:"operational"`
	}

	ManualStep struct {
		Target  string             `yaml:"target"`
		Address SingleQuotedString `yaml:"address,omitempty"`
		Method  string             `yaml:"method"`
		Args    []string           `yaml:"args,omitempty"`
		Note    string             `yaml:"note"`
	}

	// SingleQuotedString keeps hex addresses and JSON blobs from being read
	// back as numbers or flow mappings.
	SingleQuotedString string
)

func (s SingleQuotedString) MarshalYAML() (any, error) {
	node := &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.SingleQuotedStyle,
		Value: string(s),
	}
	return node, nil
}
