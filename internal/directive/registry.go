package directive

import (
	"sort"
	"sync"

	"github.com/koory1st/funlog/internal/source"
)

// Status is the outcome for one annotated function.
type Status uint8

const (
	Instrumented Status = iota
	// PassedThrough functions were copied unchanged in release mode.
	PassedThrough
	Failed
)

func (s Status) String() string {
	switch s {
	case Instrumented:
		return "instrumented"
	case PassedThrough:
		return "passed through"
	default:
		return "failed"
	}
}

// Entry records what happened to one annotated function.
type Entry struct {
	File   string
	Func   string
	Config string
	Status Status
	Span   source.Span
}

// Registry collects entries from files processed in parallel.
type Registry struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// All returns the entries ordered by file and position.
func (r *Registry) All() []Entry {
	r.mu.Lock()
	out := append([]Entry(nil), r.entries...)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Span.Start < out[j].Span.Start
	})
	return out
}

// Filter returns the entries with one of the given statuses; none means all.
func (r *Registry) Filter(statuses ...Status) []Entry {
	all := r.All()
	if len(statuses) == 0 {
		return all
	}
	allowed := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []Entry
	for _, e := range all {
		if allowed[e.Status] {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
