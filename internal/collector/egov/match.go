package egov

import (
	"sort"
	"strings"
	"unicode/utf8"

	"lexrag/internal/config"
)

// Matcher selects law titles by an ordered rule list. Rules run in a fixed
// order and the first one that decides wins:
//
//  1. exact allow list           -> accept
//  2. exclude phrase             -> reject
//  3. prefix allow (+ suffixes)  -> accept
//  4. keyword substring          -> accept
//
// Anything undecided is rejected.
type Matcher struct {
	exactAllow      []string
	prefixAllow     []string
	includeSuffixes []string
	excludePhrases  []string
	keywords        []string
}

// Verdict records how a title was decided. Rank orders accepted titles when a
// selection limit applies: exact matches first, then prefix matches, then
// keyword hits.
type Verdict struct {
	Accept bool
	Rank   int
	Rule   string
}

const (
	rankExact = iota
	rankPrefix
	rankKeyword
)

func NewMatcher(cfg config.EgovSource) *Matcher {
	return &Matcher{
		exactAllow:      cfg.ExactAllow,
		prefixAllow:     cfg.PrefixAllow,
		includeSuffixes: cfg.IncludeSuffixes,
		excludePhrases:  cfg.ExcludePhrases,
		keywords:        cfg.Keywords,
	}
}

func (m *Matcher) Evaluate(title string) Verdict {
	title = strings.TrimSpace(title)
	if title == "" {
		return Verdict{Rule: "empty"}
	}

	for _, name := range m.exactAllow {
		if title == name {
			return Verdict{Accept: true, Rank: rankExact, Rule: "exact"}
		}
	}

	for _, phrase := range m.excludePhrases {
		if phrase != "" && strings.Contains(title, phrase) {
			return Verdict{Rule: "exclude"}
		}
	}

	for _, prefix := range m.prefixAllow {
		if prefix == "" || !strings.HasPrefix(title, prefix) {
			continue
		}
		if len(m.includeSuffixes) == 0 {
			return Verdict{Accept: true, Rank: rankPrefix, Rule: "prefix"}
		}
		for _, suffix := range m.includeSuffixes {
			if strings.HasSuffix(title, suffix) {
				return Verdict{Accept: true, Rank: rankPrefix, Rule: "prefix"}
			}
		}
	}

	for _, kw := range m.keywords {
		if kw != "" && strings.Contains(title, kw) {
			return Verdict{Accept: true, Rank: rankKeyword, Rule: "keyword"}
		}
	}

	return Verdict{Rule: "none"}
}

// Select filters laws through the rule list and returns at most limit of them
// (0 = no limit). When the limit cuts, higher-ranked rules win, and within a
// rank shorter titles win: the base statute beats its enforcement order.
func (m *Matcher) Select(laws []Law, limit int) []Law {
	type ranked struct {
		law  Law
		rank int
		pos  int
	}

	var accepted []ranked
	for i, law := range laws {
		v := m.Evaluate(law.Name)
		if v.Accept {
			accepted = append(accepted, ranked{law: law, rank: v.Rank, pos: i})
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		if accepted[i].rank != accepted[j].rank {
			return accepted[i].rank < accepted[j].rank
		}
		li := utf8.RuneCountInString(accepted[i].law.Name)
		lj := utf8.RuneCountInString(accepted[j].law.Name)
		if li != lj {
			return li < lj
		}
		return accepted[i].pos < accepted[j].pos
	})

	if limit > 0 && len(accepted) > limit {
		accepted = accepted[:limit]
	}

	out := make([]Law, len(accepted))
	for i, r := range accepted {
		out[i] = r.law
	}
	return out
}
