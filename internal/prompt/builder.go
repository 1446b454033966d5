// Package prompt turns a user profile into the system and user prompts sent to the model.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"alcyxob/fitness-coach/internal/domain"
)

//go:embed templates/*.yaml
var embeddedTemplates embed.FS

// DefaultTemplate is the template used when none is named.
const DefaultTemplate = "main_workout"

// Prompt is the rendered pair handed to the LLM client.
type Prompt struct {
	System         string
	User           string
	ExpectedFormat string
}

// Template is one YAML prompt definition.
type Template struct {
	Name               string `yaml:"name"`
	SystemPrompt       string `yaml:"system_prompt"`
	UserPromptTemplate string `yaml:"user_prompt_template"`
	ExpectedFormat     string `yaml:"expected_format"`
	ExampleOutput      string `yaml:"example_output"`

	system *template.Template
	user   *template.Template
}

// Context is the prompt-ready analysis of a profile.
type Context struct {
	Name          string
	Age           int
	Gender        string
	ActivityLevel string
	Goals         string
	Experience    string
	Focus         string
	Duration      string
	Constraints   []string
	Preferences   []string
}

// Builder renders prompts from a set of loaded templates.
type Builder struct {
	templates map[string]*Template
	selected  string
}

// NewBuilder loads the embedded templates.
func NewBuilder() (*Builder, error) {
	return NewBuilderFS(embeddedTemplates, "templates")
}

// NewBuilderFS loads every *.yaml file under dir in fsys.
func NewBuilderFS(fsys fs.FS, dir string) (*Builder, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading prompt templates: %w", err)
	}
	b := &Builder{templates: make(map[string]*Template), selected: DefaultTemplate}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", e.Name(), err)
		}
		tpl, err := parseTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", e.Name(), err)
		}
		b.templates[tpl.Name] = tpl
	}
	if len(b.templates) == 0 {
		return nil, fmt.Errorf("no prompt templates found in %s", dir)
	}
	return b, nil
}

func parseTemplate(raw []byte) (*Template, error) {
	var tpl Template
	if err := yaml.Unmarshal(raw, &tpl); err != nil {
		return nil, err
	}
	if tpl.Name == "" || tpl.SystemPrompt == "" || tpl.UserPromptTemplate == "" {
		return nil, fmt.Errorf("name, system_prompt and user_prompt_template are required")
	}
	var err error
	if tpl.system, err = template.New(tpl.Name + ".system").Parse(tpl.SystemPrompt); err != nil {
		return nil, err
	}
	if tpl.user, err = template.New(tpl.Name + ".user").Option("missingkey=error").Parse(tpl.UserPromptTemplate); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Build analyses the profile and renders the selected template.
func (b *Builder) Build(profile *domain.UserProfile) (Prompt, error) {
	if profile == nil {
		return Prompt{}, fmt.Errorf("profile is required")
	}
	tpl, ok := b.templates[b.selected]
	if !ok {
		return Prompt{}, fmt.Errorf("prompt template %q not loaded", b.selected)
	}

	var system bytes.Buffer
	if err := tpl.system.Execute(&system, tpl); err != nil {
		return Prompt{}, fmt.Errorf("rendering system prompt: %w", err)
	}
	var user bytes.Buffer
	if err := tpl.user.Execute(&user, Analyze(profile)); err != nil {
		return Prompt{}, fmt.Errorf("rendering user prompt: %w", err)
	}
	return Prompt{
		System:         strings.TrimSpace(system.String()),
		User:           strings.TrimSpace(user.String()),
		ExpectedFormat: tpl.ExpectedFormat,
	}, nil
}

var experienceByActivity = map[string]string{
	"sedentary":         "beginner",
	"lightly_active":    "beginner",
	"moderately_active": "intermediate",
	"very_active":       "intermediate",
	"extremely_active":  "advanced",
}

var durationByExperience = map[string]string{
	"beginner":     "30-45 minutes",
	"intermediate": "45-60 minutes",
	"advanced":     "50-65 minutes",
}

var goalDescriptions = map[string]string{
	"weight_loss": "lose weight and improve body composition",
	"muscle_gain": "build muscle mass and strength",
	"endurance":   "improve cardiovascular endurance",
	"strength":    "increase overall strength",
	"flexibility": "improve flexibility and mobility",
}

// Analyze derives the prompt context from a profile.
func Analyze(p *domain.UserProfile) Context {
	experience := ExperienceLevel(p.ActivityLevel)
	focus := "general_fitness"
	if len(p.Goals) > 0 {
		focus = p.Goals[0].GoalType
	}
	return Context{
		Name:          p.Name,
		Age:           p.PhysicalStats.Age,
		Gender:        p.PhysicalStats.Gender,
		ActivityLevel: p.ActivityLevel,
		Goals:         goalsSummary(p.Goals),
		Experience:    experience,
		Focus:         focus,
		Duration:      durationByExperience[experience],
		Constraints:   p.Restrictions.Constraints(),
		Preferences:   preferences(p.Preferences),
	}
}

// ExperienceLevel maps an activity level to beginner, intermediate or advanced.
func ExperienceLevel(activity string) string {
	if level, ok := experienceByActivity[activity]; ok {
		return level
	}
	return "beginner"
}

func goalsSummary(goals []domain.FitnessGoal) string {
	if len(goals) == 0 {
		return "general fitness and health"
	}
	texts := make([]string, 0, len(goals))
	for _, g := range goals {
		if d, ok := goalDescriptions[g.GoalType]; ok {
			texts = append(texts, d)
		} else {
			texts = append(texts, g.GoalType)
		}
	}
	return strings.Join(texts, ", ")
}

func preferences(p domain.UserPreferences) []string {
	var out []string
	if len(p.PreferredWorkoutTypes) > 0 {
		out = append(out, "Prefers: "+strings.Join(p.PreferredWorkoutTypes, ", "))
	}
	if len(p.PreferredTrainingTimes) > 0 {
		out = append(out, "Trains: "+strings.Join(p.PreferredTrainingTimes, ", "))
	}
	return out
}
