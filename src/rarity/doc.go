// Package rarity derives the collectible card rarity of an artist from their
// festival history.
//
// Classify is a pure function. It computes a weighted score out of the number of
// appearances, years active, main stage performances, special event performances
// and an international recognition bonus, then maps it to one of four tiers.
// Raw appearance and year counts can qualify an artist for a tier on their own.
//
// Tier metadata (colors, animations, nominal drop rates) is a static table and
// does not depend on the score.
package rarity
