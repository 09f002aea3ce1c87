package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragkit/internal/postprocessors/trim"
)

// TokenizerLoader returns the tokenizer for token windows.
// It is only called when a chunker measuring tokens is built.
type TokenizerLoader func() (driven.Tokenizer, error)

// RegisterDefaults registers all built-in processors with the registry.
// tok serves token windows and may be nil when only char windows are used.
func RegisterDefaults(r *Registry, tok driven.Tokenizer) {
	RegisterDefaultsWithLoader(r, func() (driven.Tokenizer, error) { return tok, nil })
}

// RegisterDefaultsWithLoader is RegisterDefaults with a deferred tokenizer.
func RegisterDefaultsWithLoader(r *Registry, load TokenizerLoader) {
	r.Register(chunker.Name, chunkerBuilder(load))
	r.Register(trim.Name, func(map[string]any) (driven.PostProcessor, error) {
		return trim.New(), nil
	})
}

// chunkerBuilder creates chunker processors from generic config.
// Supported config keys:
//   - chunk_size (int): Units per window (default: 1000)
//   - overlap (int): Units shared by consecutive windows (default: 100)
//   - unit (string): "chars" or "tokens" (default: chars)
func chunkerBuilder(load TokenizerLoader) BuilderFunc {
	return func(cfg map[string]any) (driven.PostProcessor, error) {
		var opts []chunker.Option

		if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
		if raw, ok := cfg["unit"]; ok {
			unit, isString := raw.(string)
			if !isString {
				return nil, fmt.Errorf("%w: unit must be a string, got %T", domain.ErrInvalidChunkConfig, raw)
			}
			if unit != "" {
				opts = append(opts, chunker.WithUnit(domain.ChunkUnit(unit)))
			}
			if domain.ChunkUnit(unit) == domain.ChunkUnitTokens && load != nil {
				tok, err := load()
				if err != nil {
					return nil, fmt.Errorf("load tokenizer: %w", err)
				}
				opts = append(opts, chunker.WithTokenizer(tok))
			}
		}

		return chunker.New(opts...)
	}
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
