package places

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

// Scoring weights. All bonuses are additive, so the score is deterministic and
// order-independent for identical input.
const (
	baseRatingWeight      = 25.0
	lengthBonusCap        = 50.0
	keywordWeight         = 15.0
	expressionWeight      = 30.0
	intensityWeight       = 8.0
	emojiWeight           = 20.0
	shoutingWeight        = 10.0
	exclamationWeight     = 15.0
	ellipsisWeight        = 5.0
	healthIncidentBonus   = 40.0
	disputeKeywordBonus   = 35.0
)

// Reviews come back in French (provider language parameter), so the curated
// lists are in the review's language register.
var negativeKeywords = []string{
	"horrible", "atroce", "dégueulasse", "sale", "répugnant",
	"pire", "catastrophe", "scandale", "fuyez", "évitez",
	"jamais", "inadmissible", "inacceptable", "honteux",
	"dégoûtant", "immonde", "pourri", "nul", "minable",
	"catastrophique", "lamentable", "pitoyable", "abject",
}

var negativeExpressions = []string{
	"je ne recommande pas",
	"à fuir",
	"passez votre chemin",
	"n'y allez pas",
	"perte de temps",
	"ne vaut pas le coup",
	"plus jamais",
	"pire expérience",
}

var intensityWords = []string{
	"très", "extrêmement", "complètement", "totalement",
	"vraiment", "absolument", "particulièrement",
}

var negativeEmojis = []string{"😠", "😡", "🤮", "💩", "👎", "😤", "🙄"}

var healthIncidentKeywords = []string{
	"malade", "intoxication", "empoisonnement", "hôpital", "urgences", "vomi",
}

var disputeKeywords = []string{
	"remboursement", "remboursé", "rembourser", "plainte",
	"procès", "avocat", "police", "arnaque", "escroquerie",
}

var (
	shoutingPattern    = regexp.MustCompile(`[A-Z]{3,}`)
	exclamationPattern = regexp.MustCompile(`!{2,}`)
	ellipsisPattern    = regexp.MustCompile(`\.{3,}`)
)

// crunchinessScore rates how entertainingly negative a review is. Pure and
// deterministic: identical text and rating always yield the identical score.
func crunchinessScore(text string, stars int) float64 {
	lower := strings.ToLower(text)
	score := 0.0

	// Lower star ratings earn a flat head start.
	if stars < 4 {
		score += float64(4-stars) * baseRatingWeight
	}

	// Longer rants are juicier, up to a cap.
	length := float64(utf8.RuneCountInString(text)) / 10
	if length > lengthBonusCap {
		length = lengthBonusCap
	}
	score += length

	for _, keyword := range negativeKeywords {
		score += float64(strings.Count(lower, keyword)) * keywordWeight
	}

	for _, expression := range negativeExpressions {
		if strings.Contains(lower, expression) {
			score += expressionWeight
		}
	}

	for _, word := range intensityWords {
		score += float64(strings.Count(lower, word)) * intensityWeight
	}

	for _, emoji := range negativeEmojis {
		if strings.Contains(text, emoji) {
			score += emojiWeight
		}
	}

	// Shouting is detected on the original text; lowercasing would erase it.
	score += float64(len(shoutingPattern.FindAllString(text, -1))) * shoutingWeight
	score += float64(len(exclamationPattern.FindAllString(text, -1))) * exclamationWeight
	score += float64(len(ellipsisPattern.FindAllString(text, -1))) * ellipsisWeight

	if containsAny(lower, healthIncidentKeywords) {
		score += healthIncidentBonus
	}
	if containsAny(lower, disputeKeywords) {
		score += disputeKeywordBonus
	}

	return score
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// extractCrunchyReviews keeps reviews at or below the star cutoff, scores them,
// and returns the top N with personal information stripped from the text.
func extractCrunchyReviews(reviews []types.Review, starCutoff, topN int, now time.Time) []types.ScoredReview {
	if len(reviews) == 0 {
		return []types.ScoredReview{}
	}

	// Score once per review; the comparator only reads the precomputed value.
	scored := make([]types.ScoredReview, 0, len(reviews))
	for _, review := range reviews {
		if review.Rating > starCutoff {
			continue
		}
		scored = append(scored, types.ScoredReview{
			Rating:           review.Rating,
			Text:             review.Text,
			TimeAgo:          relativeTimeLabel(review.Time, now),
			Useful:           review.Useful,
			CrunchinessScore: crunchinessScore(review.Text, review.Rating),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CrunchinessScore > scored[j].CrunchinessScore
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}

	// Anonymization is the expensive pass, so it only runs on what is kept.
	for i := range scored {
		scored[i].Text = anonymizeReview(scored[i].Text)
	}
	return scored
}

const (
	nameRedaction  = "[Nom supprimé]"
	phoneRedaction = "[Téléphone supprimé]"
	emailRedaction = "[Email supprimé]"
)

// Name patterns run before phone and email patterns; the order matters because
// the earlier replacements can only shrink what the later ones see.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`), // Firstname Lastname
	regexp.MustCompile(`\bM\.\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bMme\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bMr\.?\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bMrs\.?\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bMonsieur\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bMadame\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bSir\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`\bMadam\s+[A-Z][a-z]+\b`),
}

var phonePattern = regexp.MustCompile(`\b\d{2}[.\s]?\d{2}[.\s]?\d{2}[.\s]?\d{2}[.\s]?\d{2}\b`)
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// anonymizeReview strips names, phone numbers and email addresses from a
// review's free text. The star rating is never touched.
func anonymizeReview(text string) string {
	if text == "" {
		return ""
	}

	anonymized := text
	for _, pattern := range namePatterns {
		anonymized = pattern.ReplaceAllString(anonymized, nameRedaction)
	}
	anonymized = phonePattern.ReplaceAllString(anonymized, phoneRedaction)
	anonymized = emailPattern.ReplaceAllString(anonymized, emailRedaction)
	return anonymized
}

// relativeTimeLabel buckets a review timestamp into a human-readable label.
func relativeTimeLabel(timestamp int64, now time.Time) string {
	if timestamp == 0 {
		return "Date inconnue"
	}

	diff := now.Unix() - timestamp
	switch {
	case diff < 3600:
		return "Il y a moins d'1h"
	case diff < 86400:
		return fmt.Sprintf("Il y a %dh", diff/3600)
	case diff < 604800:
		return fmt.Sprintf("Il y a %d jours", diff/86400)
	case diff < 2592000:
		return fmt.Sprintf("Il y a %d semaines", diff/604800)
	case diff < 31536000:
		return fmt.Sprintf("Il y a %d mois", diff/2592000)
	default:
		return fmt.Sprintf("Il y a %d ans", diff/31536000)
	}
}
