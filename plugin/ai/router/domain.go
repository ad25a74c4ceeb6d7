package router

import (
	"strings"
)

// DomainMatcher scores a message against weighted keyword sets per advice domain.
type DomainMatcher struct {
	keywords map[Domain]map[string]int
	// order breaks ties; earlier domains win.
	order []Domain
}

// NewDomainMatcher creates a matcher with the predefined keyword weights.
func NewDomainMatcher() *DomainMatcher {
	return &DomainMatcher{
		keywords: map[Domain]map[string]int{
			// Core keywords +3, supporting +1
			DomainHealth: {
				"fever": 3, "sick": 3, "temperature": 2, "rash": 3, "vomit": 3, "diarrhea": 3,
				"constipation": 3, "cough": 3, "doctor": 2, "pediatrician": 3, "vaccine": 3,
				"medicine": 3, "teething": 3, "allergy": 3, "infection": 3, "pain": 1, "crying": 1,
				"חום": 3, "חולה": 3, "פריחה": 3, "הקאה": 3, "שלשול": 3, "עצירות": 3, "שיעול": 3,
				"רופא": 2, "חיסון": 3, "תרופה": 3, "שיניים": 2, "אלרגיה": 3, "כאב": 1, "בכי": 1,
			},
			DomainSafety: {
				"safety": 3, "safe": 2, "danger": 3, "dangerous": 3, "choking": 3, "car seat": 3,
				"babyproof": 3, "childproof": 3, "crib": 1, "bath": 1, "stairs": 2, "poison": 3,
				"בטיחות": 3, "בטוח": 2, "סכנה": 3, "מסוכן": 3, "חניקה": 3, "מושב בטיחות": 3, "מדרגות": 2,
			},
			DomainSleep: {
				"sleep": 3, "nap": 3, "bedtime": 3, "asleep": 2, "awake": 2, "wake": 2, "swaddle": 2,
				"sleep training": 3, "night": 1, "tired": 1, "crib": 1, "pacifier": 1,
				"שינה": 3, "לישון": 3, "תנומה": 3, "נרדם": 2, "התעורר": 2, "ער": 1, "לילה": 1, "עייף": 1, "מוצץ": 1,
			},
			DomainFeeding: {
				"feed": 3, "feeding": 3, "formula": 3, "breastfeeding": 3, "bottle": 3, "nursing": 3,
				"milk": 2, "solids": 3, "burp": 2, "hungry": 2, "latch": 2, "pump": 2, "eat": 1,
				"האכלה": 3, "הנקה": 3, "בקבוק": 3, "חלב": 2, "מוצקים": 3, "גרעפס": 2, "רעב": 2, "לאכול": 1,
			},
			DomainDevelopment: {
				"development": 3, "milestone": 3, "milestones": 3, "crawl": 3, "crawling": 3, "walk": 2,
				"walking": 2, "talk": 2, "words": 1, "tummy time": 3, "roll over": 3, "sitting": 2, "growth": 2,
				"התפתחות": 3, "אבני דרך": 3, "זחילה": 3, "זוחל": 3, "הליכה": 2, "מדבר": 2, "זמן בטן": 3, "מתהפך": 3, "גדילה": 2,
			},
		},
		order: []Domain{DomainHealth, DomainSafety, DomainSleep, DomainFeeding, DomainDevelopment},
	}
}

// Match returns the highest scoring domain, or DomainGeneral when nothing scores.
func (d *DomainMatcher) Match(input string) Domain {
	m := newMessage(input)
	best, bestScore := DomainGeneral, 0
	for _, domain := range d.order {
		if score := d.calculateScore(m, d.keywords[domain]); score > bestScore {
			best, bestScore = domain, score
		}
	}
	return best
}

// calculateScore calculates the weighted score for a keyword set.
func (d *DomainMatcher) calculateScore(m *message, keywords map[string]int) int {
	score := 0
	for keyword, weight := range keywords {
		if m.has(strings.ToLower(keyword)) {
			score += weight
		}
	}
	return score
}
