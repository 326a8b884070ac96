package extract

import (
	"sort"

	"github.com/leapstack-labs/stepcat/pkg/core"
)

// Summary counts extracted references.
type Summary struct {
	Sources   int      `json:"sources"`
	Targets   int      `json:"targets"`
	Databases []string `json:"databases"`
}

// Total returns the number of references summarized.
func (s Summary) Total() int {
	return s.Sources + s.Targets
}

// Summarize counts refs by kind and collects the distinct databases, sorted.
func Summarize(refs []core.TableRef) Summary {
	var s Summary
	dbs := make(map[string]struct{})
	for _, ref := range refs {
		switch ref.Kind {
		case core.KindSource:
			s.Sources++
		case core.KindTarget:
			s.Targets++
		}
		dbs[ref.Database] = struct{}{}
	}
	s.Databases = make([]string, 0, len(dbs))
	for db := range dbs {
		s.Databases = append(s.Databases, db)
	}
	sort.Strings(s.Databases)
	return s
}

// Filter returns the refs of the given kind, keeping their order.
func Filter(refs []core.TableRef, kind core.TableKind) []core.TableRef {
	out := make([]core.TableRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind == kind {
			out = append(out, ref)
		}
	}
	return out
}
