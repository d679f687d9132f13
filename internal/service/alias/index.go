package alias

import (
	"strings"
	"sync/atomic"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/util"
)

type indexRow struct {
	id   domain.CharacterID
	keys []string // folded
}

type snapshot struct {
	rows []indexRow
}

// Index maps free-form names to canonical character ids. Lookups run against
// an immutable snapshot that Rebuild replaces in one atomic store.
type Index struct {
	current atomic.Pointer[snapshot]
}

func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(&snapshot{})
	return idx
}

// Rebuild builds one row per canonical id from every locale name plus the
// registered aliases. Aliases that point at ids missing from the reference
// data are skipped and returned.
func (i *Index) Rebuild(reference *domain.ReferenceData, aliases []domain.AliasEntry) []domain.AliasEntry {
	snap, orphaned := buildSnapshot(reference, aliases)
	i.current.Store(snap)
	return orphaned
}

// Resolve returns the id of the first row holding a name that contains query.
func (i *Index) Resolve(query string) (domain.CharacterID, bool) {
	return i.current.Load().resolve(util.FoldKey(query))
}

func buildSnapshot(reference *domain.ReferenceData, aliases []domain.AliasEntry) (*snapshot, []domain.AliasEntry) {
	characters := reference.Characters()
	rows := make([]indexRow, 0, len(characters))
	position := make(map[domain.CharacterID]int, len(characters))

	for _, c := range characters {
		position[c.ID] = len(rows)
		rows = append(rows, indexRow{id: c.ID, keys: foldKeys(c.AllNames())})
	}

	var orphaned []domain.AliasEntry
	for _, a := range aliases {
		pos, ok := position[a.CharacterID]
		if !ok {
			orphaned = append(orphaned, a)
			continue
		}
		if key := util.FoldKey(a.Alias); key != "" && !util.Contains(rows[pos].keys, key) {
			rows[pos].keys = append(rows[pos].keys, key)
		}
	}
	return &snapshot{rows: rows}, orphaned
}

func (s *snapshot) resolve(needle string) (domain.CharacterID, bool) {
	if needle == "" {
		return "", false
	}
	for _, row := range s.rows {
		for _, key := range row.keys {
			if strings.Contains(key, needle) {
				return row.id, true
			}
		}
	}
	return "", false
}

// Shadowed reports the first name that adding candidate would break: the
// candidate itself when it resolves elsewhere, or any reference name or alias
// that resolves to its own id today but would resolve to another id after.
func Shadowed(reference *domain.ReferenceData, aliases []domain.AliasEntry, candidate domain.AliasEntry) (string, bool) {
	before, _ := buildSnapshot(reference, aliases)
	after, _ := buildSnapshot(reference, append(append([]domain.AliasEntry(nil), aliases...), candidate))

	if id, ok := after.resolve(util.FoldKey(candidate.Alias)); !ok || id != candidate.CharacterID {
		return candidate.Alias, true
	}
	for _, row := range before.rows {
		for _, key := range row.keys {
			if id, ok := before.resolve(key); !ok || id != row.id {
				continue
			}
			if id, _ := after.resolve(key); id != row.id {
				return key, true
			}
		}
	}
	return "", false
}

// Size returns the number of indexed characters.
func (i *Index) Size() int {
	return len(i.current.Load().rows)
}

func foldKeys(names []string) []string {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if key := util.FoldKey(name); key != "" && !util.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}
