package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/V4T54L/tabletop/internal/domain"
)

// codeFloor is the value a tenant without numbered items starts counting from.
const codeFloor = 1000

// NextCode returns the code following the largest trailing number found in
// codes. Codes without a trailing number are ignored.
func NextCode(codes []string) string {
	return strconv.FormatInt(maxCode(codes)+1, 10)
}

func maxCode(codes []string) int64 {
	max := int64(codeFloor)
	for _, c := range codes {
		if n, ok := trailingNumber(c); ok && n > max {
			max = n
		}
	}
	return max
}

// trailingNumber parses the run of digits at the end of code.
func trailingNumber(code string) (int64, bool) {
	i := len(code)
	for i > 0 && code[i-1] >= '0' && code[i-1] <= '9' {
		i--
	}
	if i == len(code) {
		return 0, false
	}
	n, err := strconv.ParseInt(code[i:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CodeGenerator hands out sequential item codes from a per-tenant counter.
type CodeGenerator struct {
	counters domain.CounterRepository
	menu     domain.MenuRepository
}

// NewCodeGenerator creates a new CodeGenerator.
func NewCodeGenerator(counters domain.CounterRepository, menu domain.MenuRepository) *CodeGenerator {
	return &CodeGenerator{counters: counters, menu: menu}
}

// Next reserves the next item code of the tenant. An unseeded counter is
// seeded from the codes already stored.
func (g *CodeGenerator) Next(ctx context.Context, apiKey string) (string, error) {
	n, err := g.counters.Increment(ctx, apiKey, domain.ItemCodeCounter)
	if errors.Is(err, domain.ErrNotFound) {
		codes, lerr := g.menu.ListCodes(ctx, apiKey)
		if lerr != nil && !errors.Is(lerr, domain.ErrNotFound) {
			return "", fmt.Errorf("list item codes: %w", lerr)
		}
		if err = g.counters.Raise(ctx, apiKey, domain.ItemCodeCounter, maxCode(codes)); err != nil {
			return "", fmt.Errorf("seed code counter: %w", err)
		}
		n, err = g.counters.Increment(ctx, apiKey, domain.ItemCodeCounter)
	}
	if err != nil {
		return "", fmt.Errorf("increment code counter: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}

// Observe lifts the counter past a code that was assigned by the caller.
func (g *CodeGenerator) Observe(ctx context.Context, apiKey, code string) error {
	if _, ok := trailingNumber(code); !ok {
		return nil
	}
	codes, err := g.menu.ListCodes(ctx, apiKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("list item codes: %w", err)
	}
	return g.counters.Raise(ctx, apiKey, domain.ItemCodeCounter, maxCode(append(codes, code)))
}
