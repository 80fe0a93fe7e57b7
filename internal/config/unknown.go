package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Account
	"hostname": true, "client_id": true, "client_secret": true, "username": true,
	"password": true, "company": true, "email_domain": true,
	// Logging
	"log_level": true, "log_format": true,
	// Network
	"request_timeout": true, "user_agent": true,
	// State
	"state_dir": true, "journal": true, "token_cache": true,
}

// knownKeysList is the sorted slice form of knownKeys. Sorted for
// deterministic suggestions when two candidates have the same distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		// Report a section once, by its top-level name.
		if len(key) > 1 {
			continue
		}

		errs = append(errs, unknownKeyError(key.String()))
	}

	return errors.Join(errs...)
}

func unknownKeyError(name string) error {
	if suggestion := closestMatch(name, knownKeysList); suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", name, suggestion)
	}

	return fmt.Errorf("unknown config key %q", name)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization avoids allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 0; i < len(a); i++ {
		curr[0] = i + 1

		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
