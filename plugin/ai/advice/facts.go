package advice

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fact keys stored in ConversationContext.Metadata.
const (
	FactBabyAge   = "baby_age"
	FactBabyName  = "baby_name"
	FactCondition = "health_condition"
)

type factPattern struct {
	key string
	re  *regexp.Regexp
	// format renders the submatches; nil uses the whole first group.
	format func(m []string) string
}

var factPatterns = []factPattern{
	{key: FactBabyAge, re: regexp.MustCompile(`(?i)\b(\d+)[\s-]?(day|week|month|year)s?[\s-]old\b`), format: ageFormat},
	{key: FactBabyAge, re: regexp.MustCompile(`(?i)\b(?:baby|son|daughter) is (\d+) (day|week|month|year)s?\b`), format: ageFormat},
	{key: FactBabyAge, re: regexp.MustCompile(`(?:בן|בת|גיל) (\d+) (ימים|שבועות|חודשים|שנים)`), format: hebrewAgeFormat},
	{key: FactBabyAge, re: regexp.MustCompile(`(?:בן|בת) (חודשיים|שבועיים)`), format: hebrewDualFormat},
	{key: FactBabyName, re: regexp.MustCompile(`(?i)\b(?:my|our) (?:baby|son|daughter|child)(?:'s)? name is (\p{L}+)`)},
	{key: FactBabyName, re: regexp.MustCompile(`(?i)\b(?:baby|son|daughter|child) (?:named|called) (\p{L}+)`)},
	{key: FactCondition, re: regexp.MustCompile(`(?i)\b(fever|rash|cough|eczema|reflux|colic|ear infection|allergy)\b`)},
}

var hebrewUnits = map[string]string{"ימים": "day", "שבועות": "week", "חודשים": "month", "שנים": "year"}

func ageFormat(m []string) string {
	return pluralize(m[1], strings.ToLower(m[2]))
}

func hebrewAgeFormat(m []string) string {
	return pluralize(m[1], hebrewUnits[m[2]])
}

func hebrewDualFormat(m []string) string {
	if m[1] == "חודשיים" {
		return "2 months"
	}
	return "2 weeks"
}

func pluralize(n, unit string) string {
	if n == "1" {
		return n + " " + unit
	}
	return n + " " + unit + "s"
}

// ExtractFacts pulls facts such as the baby's age out of a user message.
// The first matching pattern per key wins.
func ExtractFacts(message string) map[string]any {
	facts := make(map[string]any)
	for _, p := range factPatterns {
		if _, ok := facts[p.key]; ok {
			continue
		}
		m := p.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if p.format != nil {
			facts[p.key] = p.format(m)
		} else {
			facts[p.key] = strings.ToLower(m[1])
		}
	}
	if name, ok := facts[FactBabyName].(string); ok {
		r, size := utf8.DecodeRuneInString(name)
		facts[FactBabyName] = string(unicode.ToUpper(r)) + name[size:]
	}
	return facts
}

// MergeFacts copies newly extracted facts into metadata, newer values winning.
func MergeFacts(metadata map[string]any, message string) map[string]any {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	maps.Copy(metadata, ExtractFacts(message))
	return metadata
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
