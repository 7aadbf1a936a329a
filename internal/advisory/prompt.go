package advisory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"aurum/internal/types"
)

// PromptSet 裁判提示词材料，从 YAML 模板文件加载，便于不改代码调提示词。
type PromptSet struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`

	tmpl *template.Template
}

const defaultSystemPrompt = `You are a conservative risk judge for XAUUSD rule signals.
Debate the signal. If it is clearly risky, REJECT. If confirmation is strong, APPROVE.
Answer ONLY with JSON: {"decision": "APPROVE" or "REJECT", "confidence": 0-100, "reason": "short reason"}`

const defaultUserTemplate = `Evaluate this {{.Direction}} signal on XAUUSD.
Rule engine reason: {{.RuleReason}}
Metrics: {{.MetricsJSON}}`

// LoadPromptSet reads the template file; an empty path falls back to the
// built-in prompts.
func LoadPromptSet(path string) (PromptSet, error) {
	ps := PromptSet{System: defaultSystemPrompt, UserTemplate: defaultUserTemplate}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return PromptSet{}, fmt.Errorf("reading prompt file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &ps); err != nil {
			return PromptSet{}, fmt.Errorf("parsing prompt file: %w", err)
		}
		if ps.System == "" {
			ps.System = defaultSystemPrompt
		}
		if ps.UserTemplate == "" {
			ps.UserTemplate = defaultUserTemplate
		}
	}
	tmpl, err := template.New("user").Parse(ps.UserTemplate)
	if err != nil {
		return PromptSet{}, fmt.Errorf("parsing user template: %w", err)
	}
	ps.tmpl = tmpl
	return ps, nil
}

// RenderUser fills the user template with the signal under judgment.
func (p PromptSet) RenderUser(direction types.Direction, ruleReason string, metrics types.Metrics) (string, error) {
	if p.tmpl == nil {
		tmpl, err := template.New("user").Parse(defaultUserTemplate)
		if err != nil {
			return "", err
		}
		p.tmpl = tmpl
	}
	mj, err := json.Marshal(metrics)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = p.tmpl.Execute(&buf, map[string]string{
		"Direction":   string(direction),
		"RuleReason":  ruleReason,
		"MetricsJSON": string(mj),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
