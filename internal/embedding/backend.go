package embedding

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

// ErrEmbeddingUnavailable marks a backend that cannot serve requests.
var ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

// Backend turns text into a fixed-length vector. Implementations must be safe for
// concurrent use.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

const (
	defaultGeminiModel = "text-embedding-004"
	maxEmbedChars      = 40000
)

// GeminiBackend embeds text through the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", ErrEmbeddingUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (g *GeminiBackend) Model() string {
	return "gemini/" + g.model
}

func (g *GeminiBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateUTF8(text, maxEmbedChars)

	result, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, errors.New("embed content: empty embedding result")
	}
	return result.Embeddings[0].Values, nil
}

const defaultHashingDim = 256

// HashingBackend is an offline backend built on signed character-trigram feature
// hashing. Spelling variants land close together; unrelated terms stay near zero.
type HashingBackend struct {
	dim int
}

func NewHashingBackend(dim int) *HashingBackend {
	if dim <= 0 {
		dim = defaultHashingDim
	}
	return &HashingBackend{dim: dim}
}

func (h *HashingBackend) Model() string {
	return fmt.Sprintf("hashing-trigram-%d", h.dim)
}

func (h *HashingBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, h.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		padded := []rune("^" + word + "$")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, string(padded[i:i+3]))
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (h *HashingBackend) add(vec []float32, gram string) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(gram))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		vec[idx]--
		return
	}
	vec[idx]++
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
