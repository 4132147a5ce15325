// Package persona holds the first-person background that scripts every
// generated answer. A Profile is built once at startup and only read
// afterwards, so it is safe to share across request goroutines.
package persona

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Entry is one topic of the persona's background.
type Entry struct {
	Topic string `yaml:"topic"`
	Text  string `yaml:"text"`
}

// Profile is the persona knowledge base. Entry order is preserved in the
// rendered context.
type Profile struct {
	Name    string  `yaml:"name"`
	Role    string  `yaml:"role"`
	Entries []Entry `yaml:"entries"`

	context string
}

// Default returns the built-in profile.
func Default() *Profile {
	p := &Profile{
		Name: "Prakash Kumar",
		Role: "Machine Learning Engineer",
		Entries: []Entry{
			{Topic: "life story", Text: "Hi, I am Prakash! I grew up in Bihar and recently finished my B.Tech from NIET. During college, I got really interested in Machine Learning and Generative AI, and since then, I have been exploring projects in that space. I enjoy learning new things and finding creative ways to apply AI to solve real-world problems."},
			{Topic: "superpower", Text: "Honestly, I don't believe I have a superpower, but I do strive to be like Iron Man — dedicated, creative, and persistent. I believe hard work, consistency, and honesty toward my goals are what truly make me strong."},
			{Topic: "areas to grow", Text: "I want to grow in large-scale AI deployment, system design, and leadership skills. I am also learning to stay calm and focused when dealing with high-pressure or unexpected situations."},
			{Topic: "misconception", Text: "Some coworkers assume I am introverted, but I actually enjoy collaborating and exchanging ideas. I am always open to learning — not just professionally, but personally as well."},
			{Topic: "push boundaries", Text: "I push my boundaries by continuously challenging myself with new projects and technologies. I make it a point to step outside my comfort zone, explore new ideas, and keep improving my skills."},
		},
	}
	p.context = render(p.Entries)
	return p
}

// Load reads a profile from a YAML file. An empty path returns Default().
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile and validates it.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Role = strings.TrimSpace(p.Role)
	if p.Name == "" {
		return nil, fmt.Errorf("persona: name is required")
	}
	if len(p.Entries) == 0 {
		return nil, fmt.Errorf("persona: at least one entry is required")
	}
	seen := make(map[string]bool, len(p.Entries))
	for i, e := range p.Entries {
		topic := strings.TrimSpace(e.Topic)
		if topic == "" || strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("persona: entry %d needs both topic and text", i)
		}
		if seen[topic] {
			return nil, fmt.Errorf("persona: duplicate topic %q", topic)
		}
		seen[topic] = true
		p.Entries[i].Topic = topic
	}
	p.context = render(p.Entries)
	return &p, nil
}

// Context renders the entries as "Topic: text" lines.
func (p *Profile) Context() string {
	return p.context
}

func render(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = capitalize(e.Topic) + ": " + strings.TrimSpace(e.Text)
	}
	return strings.Join(lines, "\n")
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
