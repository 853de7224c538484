package model

import "strconv"

// Cocktail is a catalog entry. LikeCount is a denormalized copy of the number
// of CocktailLike rows for the cocktail and is only changed by the like ledger.
type Cocktail struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	ABV         float64  `json:"abv"`
	Tags        []string `json:"tags"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Image       string   `json:"image"`
	Comment     string   `json:"comment"`
	LikeCount   int64    `json:"likeCount"`
}

// EffectiveSlug returns the stored slug, or the decimal id when none was set.
func EffectiveSlug(id int64, slug *string) string {
	if slug != nil && *slug != "" {
		return *slug
	}
	return strconv.FormatInt(id, 10)
}

// LikeStatus is what a viewer sees for one cocktail: the authoritative count and,
// for a logged-in viewer, whether they liked it.
type LikeStatus struct {
	CocktailID int64 `json:"cocktailId"`
	LikeCount  int64 `json:"likeCount"`
	Liked      bool  `json:"liked"`
}
