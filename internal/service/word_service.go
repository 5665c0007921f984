package service

import (
	"aliasgame/internal/cache"
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
)

//go:embed words/default.txt
var defaultWordList string

// DefaultWords returns the built-in word pack
func DefaultWords() []string {
	return ParseWords(defaultWordList)
}

// ParseWords splits newline-separated words, skipping blanks and # comments
func ParseWords(text string) []string {
	var words []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	return words
}

// WordService supplies each game with its own shuffled, rotating word list
type WordService struct {
	words   cache.WordCache
	pack    string
	shuffle func(n int, swap func(i, j int))
}

// NewWordService creates a word service drawing from the named pack.
// Games fall back to the built-in pack when the named one is empty.
func NewWordService(words cache.WordCache, pack string) *WordService {
	return &WordService{
		words:   words,
		pack:    pack,
		shuffle: rand.Shuffle,
	}
}

// InitWords copies and shuffles the pack into the game's word list
func (s *WordService) InitWords(ctx context.Context, gameID string) error {
	words, err := s.words.GetPack(ctx, s.pack)
	if err != nil {
		return fmt.Errorf("failed to load word pack %q: %w", s.pack, err)
	}
	if len(words) == 0 {
		words = DefaultWords()
	}
	list := make([]string, len(words))
	copy(list, words)
	s.shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })

	return s.words.SetGameWords(ctx, gameID, list)
}

// CurrentWord returns the word currently shown to the active player
func (s *WordService) CurrentWord(ctx context.Context, gameID string) (string, error) {
	return s.words.CurrentWord(ctx, gameID)
}

// CurrentAndNextWord returns the current word and advances the list,
// returning the word that replaces it
func (s *WordService) CurrentAndNextWord(ctx context.Context, gameID string) (string, string, error) {
	current, err := s.words.CurrentWord(ctx, gameID)
	if err != nil {
		return "", "", err
	}
	next, err := s.words.RotateGameWords(ctx, gameID)
	if err != nil {
		return "", "", err
	}
	return current, next, nil
}

// DropWords removes a finished game's word list
func (s *WordService) DropWords(ctx context.Context, gameID string) error {
	return s.words.DeleteGameWords(ctx, gameID)
}
