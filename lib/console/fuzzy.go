// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult holds the outcome of matching a pattern against one
// piece of text. Score is zero when the pattern does not match;
// Positions are rune indices of the matched characters in the text.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// NewSlab allocates a reusable scratch buffer for the fzf matcher.
// One slab serves many FuzzyMatch calls from the same goroutine;
// passing nil makes the matcher allocate per call.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// FuzzyMatch runs fzf's FuzzyMatchV2 algorithm against text. Matching
// is case-insensitive: the algorithm folds the text's case internally,
// and the pattern is lowercased here because the algorithm expects a
// pre-folded pattern.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 || text == "" {
		return FuzzyResult{}
	}

	folded := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))

	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, folded, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}

	match := FuzzyResult{Score: result.Score}
	if positions != nil {
		match.Positions = *positions
	}
	return match
}
