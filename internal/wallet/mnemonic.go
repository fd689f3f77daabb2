// Package wallet implements the mnemonic engine and the deterministic
// per-chain key derivation that every other component trusts.
package wallet

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultWordCount is the phrase length the wallet creates.
const DefaultWordCount = 12

var (
	// ErrInvalidWordCount indicates the mnemonic must be 12 or 24 words.
	ErrInvalidWordCount = errors.New("word count must be 12 or 24")

	whitespaceRegex   = regexp.MustCompile(`\s+`)
	// List markers count anywhere a word may start, so "1. abandon 2. ability"
	// pasted on one line normalizes like the same list split over lines.
	numberedListRegex = regexp.MustCompile(`(?:^|\s)\d+[.):]`)
	bulletListRegex   = regexp.MustCompile(`(?:^|\s)[-*•]+`)
)

// GenerateMnemonic creates a new BIP39 mnemonic phrase from crypto/rand entropy.
// wordCount must be 12 (128 bits) or 24 (256 bits).
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", fmt.Errorf("generating entropy: %w", err)
	}
	defer zeroBytes(entropy)

	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks word count, wordlist membership and checksum.
// Failures wrap ErrInvalidMnemonic and, for misspelled words, carry a suggestion.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonicInput(mnemonic)
	if normalized == "" {
		return walleterr.ErrInvalidMnemonic
	}

	wordCount := len(strings.Fields(normalized))
	if wordCount != 12 && wordCount != 24 {
		return walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{
			"words": fmt.Sprint(wordCount),
		})
	}

	if typos := DetectTypos(normalized); len(typos) > 0 {
		return walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
	}

	// MnemonicToByteArray verifies the checksum word.
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, "checksum does not match; check the word order")
	}

	return nil
}

// IsValidMnemonic is the boolean form of ValidateMnemonic.
func IsValidMnemonic(mnemonic string) bool {
	return ValidateMnemonic(mnemonic) == nil
}

// NormalizeMnemonicInput cleans pasted phrases: it lowercases, strips list
// numbering and bullets, turns commas into spaces and collapses whitespace.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed converts a valid mnemonic to its 64-byte BIP39 seed.
// The caller must zero the seed after use.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	normalized := NormalizeMnemonicInput(mnemonic)
	if err := ValidateMnemonic(normalized); err != nil {
		return nil, err
	}
	return bip39.NewSeed(normalized, passphrase), nil
}

// IsValidWord checks if a word is in the BIP39 English word list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// MaxTypoDistance is the largest Levenshtein distance offered as a suggestion.
const MaxTypoDistance = 2

// TypoInfo describes a word that is not in the BIP39 list.
type TypoInfo struct {
	Index      int    // 0-based position in the phrase
	Word       string // what was typed
	Suggestion string // closest BIP39 word, empty if none is close enough
	Distance   int
}

// SuggestWord finds the closest BIP39 word to input, or "" if none is within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos returns every word of the phrase that is not in the BIP39 list.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(mnemonic)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line with 1-based positions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		if typo.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("word %d: '%s' - did you mean '%s'?", typo.Index+1, typo.Word, typo.Suggestion))
			continue
		}
		lines = append(lines, fmt.Sprintf("word %d: '%s' is not a valid BIP39 word", typo.Index+1, typo.Word))
	}
	return strings.Join(lines, "\n")
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
