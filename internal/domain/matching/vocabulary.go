package matching

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// Experience tiers, lowest first.
const (
	TierEntry = iota
	TierJunior
	TierMid
	TierSenior
	TierLead
)

var tierNames = map[string]int{
	"entry":  TierEntry,
	"junior": TierJunior,
	"mid":    TierMid,
	"senior": TierSenior,
	"lead":   TierLead,
}

// Lookup order for level strings: the most specific tier wins ("senior lead" is lead).
var tierOrder = []string{"lead", "senior", "mid", "junior", "entry"}

var educationOrder = []string{"phd", "master", "bachelor", "associate"}

type vocabularyFile struct {
	Skills []struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"skills"`
	Domains        map[string][]string `yaml:"domains"`
	ResearchSkills []string            `yaml:"research_skills"`
	Titles         map[string][]string `yaml:"titles"`
	Industries     []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
		Domains  []string `yaml:"domains"`
	} `yaml:"industries"`
	Education        map[string][]string `yaml:"education"`
	ExperienceLevels map[string][]string `yaml:"experience_levels"`
}

type industry struct {
	name     string
	keywords []term
	domains  []string
}

type term struct {
	canonical string
	re        *regexp.Regexp
}

// Vocabulary is a compiled, read-only set of lookup tables. Safe for concurrent use.
type Vocabulary struct {
	skills         []term
	domains        map[string][]term
	domainNames    []string
	research       map[string]struct{}
	leadership     []term
	innovation     []term
	industries     []industry
	education      map[string][]term
	levels         map[string][]term
	canonicalSkill map[string]struct{}
}

// DefaultVocabulary compiles the embedded tables.
func DefaultVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabularyYAML)
}

// LoadVocabulary reads an override file, or the embedded default when path is empty.
func LoadVocabulary(path string) (*Vocabulary, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultVocabulary()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return ParseVocabulary(raw)
}

func ParseVocabulary(raw []byte) (*Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(f.Skills) == 0 {
		return nil, fmt.Errorf("parse vocabulary: no skills defined")
	}

	v := &Vocabulary{
		domains:        make(map[string][]term, len(f.Domains)),
		research:       make(map[string]struct{}, len(f.ResearchSkills)),
		education:      make(map[string][]term, len(f.Education)),
		levels:         make(map[string][]term, len(f.ExperienceLevels)),
		canonicalSkill: make(map[string]struct{}, len(f.Skills)),
	}

	for _, s := range f.Skills {
		name := NormalizeSkill(s.Name)
		if name == "" {
			continue
		}
		v.canonicalSkill[name] = struct{}{}
		v.skills = append(v.skills, term{canonical: name, re: mentionPattern(name)})
		for _, a := range s.Aliases {
			a = NormalizeSkill(a)
			if a == "" || a == name {
				continue
			}
			v.skills = append(v.skills, term{canonical: name, re: mentionPattern(a)})
		}
	}

	for group, words := range f.Domains {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		v.domains[group] = compileTerms(words)
		v.domainNames = append(v.domainNames, group)
	}
	sort.Strings(v.domainNames)

	for _, s := range f.ResearchSkills {
		if s = NormalizeSkill(s); s != "" {
			v.research[s] = struct{}{}
		}
	}

	v.leadership = compileTerms(f.Titles["leadership"])
	v.innovation = compileTerms(f.Titles["innovation"])
	for _, ind := range f.Industries {
		v.industries = append(v.industries, industry{
			name:     strings.TrimSpace(ind.Name),
			keywords: compileTerms(ind.Keywords),
			domains:  ind.Domains,
		})
	}

	for level, words := range f.Education {
		v.education[strings.ToLower(strings.TrimSpace(level))] = compileTerms(words)
	}
	for tier, words := range f.ExperienceLevels {
		tier = strings.ToLower(strings.TrimSpace(tier))
		if _, ok := tierNames[tier]; !ok {
			return nil, fmt.Errorf("parse vocabulary: unknown experience tier %q", tier)
		}
		v.levels[tier] = compileTerms(words)
	}

	return v, nil
}

// DomainGroups returns the group names in stable order.
func (v *Vocabulary) DomainGroups() []string {
	out := make([]string, len(v.domainNames))
	copy(out, v.domainNames)
	return out
}

// SkillNames returns every canonical skill, sorted.
func (v *Vocabulary) SkillNames() []string {
	out := make([]string, 0, len(v.canonicalSkill))
	for s := range v.canonicalSkill {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (v *Vocabulary) IsResearchSkill(skill string) bool {
	_, ok := v.research[NormalizeSkill(skill)]
	return ok
}

// LevelTier maps a free-form level string to a tier. Unparseable input is mid.
func (v *Vocabulary) LevelTier(level string) int {
	lower := strings.ToLower(strings.TrimSpace(level))
	if lower == "" {
		return TierMid
	}
	for _, name := range tierOrder {
		if anyMentioned(lower, v.levels[name]) {
			return tierNames[name]
		}
	}
	return TierMid
}

// EducationLevel returns phd, master, bachelor, associate or "".
func (v *Vocabulary) EducationLevel(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ""
	}
	for _, level := range educationOrder {
		if anyMentioned(lower, v.education[level]) {
			return level
		}
	}
	return ""
}

func (v *Vocabulary) isLeadershipTitle(lower string) bool { return anyMentioned(lower, v.leadership) }
func (v *Vocabulary) isInnovationTitle(lower string) bool { return anyMentioned(lower, v.innovation) }

// industryFor returns the first industry whose keywords appear in lower, in file order.
func (v *Vocabulary) industryFor(lower string) (industry, bool) {
	for _, ind := range v.industries {
		if anyMentioned(lower, ind.keywords) {
			return ind, true
		}
	}
	return industry{}, false
}

func compileTerms(words []string) []term {
	out := make([]term, 0, len(words))
	for _, w := range words {
		w = NormalizeSkill(w)
		if w == "" {
			continue
		}
		out = append(out, term{canonical: w, re: mentionPattern(w)})
	}
	return out
}

func anyMentioned(lower string, terms []term) bool {
	for _, t := range terms {
		if t.re.MatchString(lower) {
			return true
		}
	}
	return false
}

// mentionPattern matches a term on word boundaries. Symbols such as + # . stay part
// of the term so "c++" and "node.js" are not split.
func mentionPattern(termLower string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^a-z0-9+#])` + regexp.QuoteMeta(termLower) + `([^a-z0-9+#]|$)`)
}
