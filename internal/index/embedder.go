// Package index provides the in-process vector index over document chunks.
package index

import (
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Embedder converts free text into a fixed-dimension numeric vector.
type Embedder interface {
	Embed(text string) ([]float64, error)
	Dimension() int
}

// HashingEmbedder maps word tokens onto a fixed-size vector via feature
// hashing. It requires no corpus preparation, so documents can be indexed
// incrementally as they are uploaded. Vectors are L2-normalized; cosine
// similarity reduces to a dot product.
type HashingEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

const DefaultDimension = 512

// NewHashingEmbedder creates an embedder producing vectors of the given
// dimension (DefaultDimension when <= 0).
func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashingEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

func (e *HashingEmbedder) Dimension() int { return e.dimension }

// Embed computes the hashed term-frequency embedding for the given text.
// Text with no usable tokens embeds to the zero vector.
func (e *HashingEmbedder) Embed(text string) ([]float64, error) {
	vec := make([]float64, e.dimension)
	total := 0
	for _, tok := range e.tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		slot := int(sum % uint32(e.dimension))
		// Sign from one hash bit keeps colliding terms from always
		// reinforcing each other.
		if sum&0x80000000 != 0 {
			vec[slot] -= 1
		} else {
			vec[slot] += 1
		}
		total++
	}
	if total == 0 {
		return vec, nil
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *HashingEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "again", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "out", "off",
		"own", "same", "too", "very", "can", "will", "just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
