package proc

import (
	"context"
	"fmt"
	"slices"
)

// Tree returns root followed by every live descendant, in breadth-first
// order. The process table is read once, so a child that exits mid-walk is
// simply absent. A non-nil error with a non-empty result means some
// entries of the table could not be read and the tree may be incomplete.
func Tree(ctx context.Context, root int) ([]int, error) {
	if !Exists(root) {
		return nil, notFound(root)
	}
	kids, err := children(ctx)
	if kids == nil {
		return nil, fmt.Errorf("proc: process table: %w", err)
	}
	if err != nil {
		err = fmt.Errorf("proc: process table incomplete: %w", err)
	}
	return walk(root, kids), err
}

// Trees unions Tree over several roots from a single read of the process
// table. Roots that are gone are skipped; the result is sorted. It fails
// with ErrProcessNotFound when no root is alive, and reports unreadable
// table entries alongside the partial result.
func Trees(ctx context.Context, roots []int) ([]int, error) {
	kids, err := children(ctx)
	if kids == nil {
		return nil, fmt.Errorf("proc: process table: %w", err)
	}
	if err != nil {
		err = fmt.Errorf("proc: process table incomplete: %w", err)
	}

	set := make(map[int]struct{})
	for _, r := range roots {
		if !Exists(r) {
			continue
		}
		for _, p := range walk(r, kids) {
			set[p] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: none of %v", ErrProcessNotFound, roots)
	}
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, err
}

// walk does a breadth-first descent from root over a parent -> children map.
func walk(root int, kids map[int][]int) []int {
	out := []int{root}
	seen := map[int]struct{}{root: {}}
	for i := 0; i < len(out); i++ {
		for _, k := range kids[out[i]] {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
