package matching

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultExtractionMemo = 4096

// Extraction is the normalized view of one free-text field. Treat as read-only:
// instances are shared through the memo.
type Extraction struct {
	// Skills are canonical names, sorted, without duplicates.
	Skills []string
	// Domains counts distinct keyword hits per referenced domain group.
	Domains map[string]int
}

func (e Extraction) HasSkill(skill string) bool {
	i := sort.SearchStrings(e.Skills, skill)
	return i < len(e.Skills) && e.Skills[i] == skill
}

// SkillExtractor maps free text to vocabulary skills and domain groups. Empty text
// yields an empty extraction, never an error.
type SkillExtractor struct {
	vocab *Vocabulary
	memo  *lru.Cache[string, Extraction]
}

func NewSkillExtractor(vocab *Vocabulary) *SkillExtractor {
	memo, _ := lru.New[string, Extraction](defaultExtractionMemo)
	return &SkillExtractor{vocab: vocab, memo: memo}
}

func (x *SkillExtractor) Vocabulary() *Vocabulary {
	return x.vocab
}

func (x *SkillExtractor) Extract(text string) Extraction {
	lower := strings.ToLower(PlainText(text))
	if lower == "" || x == nil || x.vocab == nil {
		return Extraction{Domains: map[string]int{}}
	}

	if cached, ok := x.memo.Get(lower); ok {
		return cached
	}
	out := x.extract(lower)
	x.memo.Add(lower, out)
	return out
}

func (x *SkillExtractor) extract(lower string) Extraction {
	seen := make(map[string]struct{})
	for _, t := range x.vocab.skills {
		if _, ok := seen[t.canonical]; ok {
			continue
		}
		if t.re.MatchString(lower) {
			seen[t.canonical] = struct{}{}
		}
	}
	skills := make([]string, 0, len(seen))
	for s := range seen {
		skills = append(skills, s)
	}
	sort.Strings(skills)

	domains := make(map[string]int)
	for _, group := range x.vocab.domainNames {
		hits := 0
		for _, kw := range x.vocab.domains[group] {
			// A keyword that is itself a skill also counts when an alias was matched.
			if _, ok := seen[kw.canonical]; ok || kw.re.MatchString(lower) {
				hits++
			}
		}
		if hits > 0 {
			domains[group] = hits
		}
	}

	return Extraction{Skills: skills, Domains: domains}
}
