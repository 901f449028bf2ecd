package domain

import (
	"fmt"
	"regexp"
	"strconv"

	m "signfinder.dev/pkg/signfinder/internal/model"
	"signfinder.dev/pkg/signfinder/pkg/ranges"
)

var referencePattern = regexp.MustCompile(`^([pi])([0-9]+)$`)

// PatchSource answers patch history queries for the resolver.
type PatchSource interface {
	Patches(id m.FileID) (ranges.List, error)
	InversePatches(id m.FileID) (ranges.List, error)
}

// Resolver turns range tokens into range lists. Besides OFFSET+SIZE,
// OFFSET-END and $all it understands p<id> (the patches of file id) and
// i<id> (the inverse patches of file id).
type Resolver struct {
	source PatchSource
}

// NewResolver constructs a Resolver reading references from source.
func NewResolver(source PatchSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve parses one token against a buffer of maxLen bytes.
func (r *Resolver) Resolve(token string, maxLen int64) (ranges.List, error) {
	match := referencePattern.FindStringSubmatch(token)
	if match == nil {
		single, err := ranges.Parse(token, maxLen)
		if err != nil {
			return nil, err
		}

		return ranges.List{single}, nil
	}

	id, err := strconv.ParseUint(match[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ranges.ErrValidation, token)
	}

	var list ranges.List
	if match[1] == "p" {
		list, err = r.source.Patches(m.FileID(id))
	} else {
		list, err = r.source.InversePatches(m.FileID(id))
	}

	if err != nil {
		return nil, err
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s resolves to an empty range list", ranges.ErrValidation, token)
	}

	for _, item := range list {
		if item.End() > maxLen {
			return nil, fmt.Errorf("%w: %s contains %s beyond size %d", ranges.ErrValidation, token, item, maxLen)
		}
	}

	return list, nil
}

// ResolveAll resolves every token and merges the results.
func (r *Resolver) ResolveAll(tokens []string, maxLen int64) (ranges.List, error) {
	var all ranges.List

	for _, token := range tokens {
		list, err := r.Resolve(token, maxLen)
		if err != nil {
			return nil, fmt.Errorf("invalid arg %q: %w", token, err)
		}

		all = append(all, list...)
	}

	return ranges.Merge(all), nil
}
