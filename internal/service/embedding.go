package service

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/pantryscout/backend/internal/model"
	pgvector "github.com/pgvector/pgvector-go"
)

// GenerateEmbedding returns a deterministic bag-of-words embedding: every
// word is hashed into one of model.EmbeddingDimensions buckets and the
// resulting vector is L2-normalised. Texts sharing words end up close under
// the Euclidean distance used for recipe search.
func GenerateEmbedding(text string) pgvector.Vector {
	vec := make([]float32, model.EmbeddingDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(len(vec))]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return pgvector.NewVector(vec)
}
