package domain

import (
	"crypto/sha1"
	"fmt"
	"math/big"
	"sort"
)

// HashKey maps a string into the identifier space by truncating its
// SHA-1 digest to the low m bits, as specified by §4.A:
//
//	hash_key(s, m) = int(SHA1(utf8(s)), 16) mod 2^m
func HashKey(s string, m int) ID {
	sum := sha1.Sum([]byte(s))
	n := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Lsh(big.NewInt(1), uint(m))
	n.Mod(n, mod)
	return ID(n.Uint64())
}

// GenerateNodeIDs deterministically produces count distinct node ids in
// the m-bit space, derived from the given seed.
//
// Candidates are drawn as hash_key("node-"+seed+"-"+i, m) for
// i = 0, 1, 2, ... until count distinct values have been collected; the
// result is sorted ascending. Being a pure function of (count, m, seed),
// repeated calls always return the identical sequence (§8, S6).
func GenerateNodeIDs(count, m, seed int) []ID {
	return generateIDs("node", count, m, seed)
}

// GenerateKeys deterministically produces count distinct test keys in the
// m-bit space, using the "key-" prefix in place of "node-" (§4.A).
func GenerateKeys(count, m, seed int) []ID {
	return generateIDs("key", count, m, seed)
}

func generateIDs(prefix string, count, m, seed int) []ID {
	seen := make(map[ID]struct{}, count)
	out := make([]ID, 0, count)
	for i := 0; len(out) < count; i++ {
		id := HashKey(fmt.Sprintf("%s-%d-%d", prefix, seed, i), m)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
