// Package scoring computes compatibility between two users' interest sets.
package scoring

import (
	"fmt"
	"math/rand"

	"animechat-service/internal/models"
)

// Band discretizes a compatibility score for match selection priority.
type Band string

const (
	BandGreat  Band = "great"
	BandGood   Band = "good"
	BandDecent Band = "decent"
	BandLow    Band = "low"
)

const (
	greatThreshold  = 50
	goodThreshold   = 30
	decentThreshold = 15

	animeWeight     = 10
	genreWeight     = 5
	genreOnlyWeight = 20
	themeWeight     = 4
	characterWeight = 2

	maxScore = 100
)

// Score returns a bounded [0,100] similarity between two users. It is pure and
// symmetric: Score(a, b) == Score(b, a).
//
// Shared genres are worth 20 points instead of 5 when genres are the only
// interest category either user filled in. Many users only pick genres in the
// dashboard, and at 5 points each they would almost never clear the decent
// band.
func Score(a, b *models.UserProfile) int {
	score := 0

	score += len(intersect(a.FavoriteAnime, b.FavoriteAnime)) * animeWeight

	sharedGenres := len(intersect(a.FavoriteGenres, b.FavoriteGenres))
	if genresOnly(a) && genresOnly(b) {
		score += sharedGenres * genreOnlyWeight
	} else {
		score += sharedGenres * genreWeight
	}

	score += len(intersect(a.FavoriteThemes, b.FavoriteThemes)) * themeWeight
	score += len(intersect(a.FavoriteCharacters, b.FavoriteCharacters)) * characterWeight

	if score > maxScore {
		return maxScore
	}
	return score
}

// BandFor maps a score onto its selection band.
func BandFor(score int) Band {
	switch {
	case score >= greatThreshold:
		return BandGreat
	case score >= goodThreshold:
		return BandGood
	case score >= decentThreshold:
		return BandDecent
	default:
		return BandLow
	}
}

func genresOnly(u *models.UserProfile) bool {
	return len(u.FavoriteGenres) > 0 &&
		len(u.FavoriteAnime) == 0 &&
		len(u.FavoriteThemes) == 0 &&
		len(u.FavoriteCharacters) == 0
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var shared []string
	seen := make(map[string]struct{})
	for _, v := range b {
		if _, ok := set[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		shared = append(shared, v)
	}
	return shared
}

var genericStarters = []string{
	"What anime are you currently watching?",
	"What got you into anime?",
	"Do you have a favorite anime genre?",
	"Any anime recommendations for me?",
	"What's the first anime you ever watched?",
	"Are you watching anything this season?",
	"What's your all-time favorite anime?",
	"Do you prefer subbed or dubbed anime?",
}

// SharedUniverse builds the overlap payload delivered with a match, including
// conversation starters derived from what both users have in common.
func SharedUniverse(a, b *models.UserProfile) models.SharedUniverse {
	u := models.SharedUniverse{
		SharedAnime:  intersect(a.FavoriteAnime, b.FavoriteAnime),
		SharedGenres: intersect(a.FavoriteGenres, b.FavoriteGenres),
		SharedThemes: intersect(a.FavoriteThemes, b.FavoriteThemes),
	}

	if len(u.SharedAnime) > 0 {
		anime := u.SharedAnime[rand.Intn(len(u.SharedAnime))]
		starters := []string{
			fmt.Sprintf("What did you think of %s?", anime),
			fmt.Sprintf("Which character from %s is your favorite?", anime),
			fmt.Sprintf("What was your favorite arc in %s?", anime),
			fmt.Sprintf("Did you enjoy the ending of %s?", anime),
		}
		u.ConversationStarters = append(u.ConversationStarters, starters[rand.Intn(len(starters))])
	}
	if len(u.SharedGenres) > 0 && len(u.ConversationStarters) < 2 {
		u.ConversationStarters = append(u.ConversationStarters,
			fmt.Sprintf("What's your favorite %s anime?", u.SharedGenres[0]))
	}
	if len(u.SharedThemes) > 0 && len(u.ConversationStarters) < 2 {
		u.ConversationStarters = append(u.ConversationStarters,
			fmt.Sprintf("Do you enjoy %s themed anime?", u.SharedThemes[0]))
	}

	if len(u.ConversationStarters) == 0 {
		perm := rand.Perm(len(genericStarters))
		for _, i := range perm[:3] {
			u.ConversationStarters = append(u.ConversationStarters, genericStarters[i])
		}
	}
	return u
}
