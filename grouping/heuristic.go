package grouping

// Heuristic is a single transform over a distribution of labeled items
// that preserves the item type T (DropSuccess, ToApply, Splitting,
// SkipFor). FirstFitBinpacking is deliberately not a Heuristic[T]: its
// output type is []T, one level up, so it runs as an explicit final step.
type Heuristic[T any] interface {
	Run(Outcome[T]) Outcome[T]
}

// Stack chains same-typed heuristics left-to-right.
type Stack[T any] struct {
	heuristics []Heuristic[T]
}

// NewStack builds a Stack from an ordered list of heuristics.
func NewStack[T any](heuristics ...Heuristic[T]) *Stack[T] {
	return &Stack[T]{heuristics: heuristics}
}

// Run applies every heuristic in the stack in order.
func (s *Stack[T]) Run(o Outcome[T]) Outcome[T] {
	for _, h := range s.heuristics {
		o = h.Run(o)
	}
	return o
}

// GroupCallback is invoked once per top-level group produced by the final
// binpacking step. It typically attempts the real side effect (e.g.
// submitting a blob group to the DA store) against the group's flattened
// values, and reports the result as a flat Outcome[T] over those same
// values: LabelSuccess markers on success, or the values re-wrapped as
// Apply (to retry, usually after a future Splitting pass) on failure.
//
// flag is the sticky short-circuit flag from spec.md §4.2: once a group
// invocation sets it, every later group in the same pass is treated as
// failed without calling cb, so a batch is never reordered mid-submission.
type GroupCallback[T any] func(index int, group []T, flag bool) (Outcome[T], bool, error)

// RunSequentialWithMetadata runs preStack then binpack once to produce
// top-level groups, invokes cb once per group in order (clearing flag
// before the very first group, matching the reference implementation:
// splitting only ever kicks in on retries, never on a batch's first
// attempt), and returns one flattened Outcome[T] per group; the caller
// is responsible for concatenating these into the next pass's starting
// distribution.
func RunSequentialWithMetadata[T Weighted](
	start Outcome[T],
	preStack *Stack[T],
	binpack FirstFitBinpacking[T],
	cb GroupCallback[T],
) ([]Outcome[T], error) {
	pre := preStack.Run(start)
	groups := binpack.RunGroups(pre)

	flag := false
	results := make([]Outcome[T], 0, len(groups.Items))
	for i, item := range groups.Items {
		if i == 0 {
			flag = false
		}

		if item.Label != LabelApply {
			// Success/Failure groups from binpacking (an already-terminal
			// item, or a single item too large to ever fit) pass straight
			// through without invoking cb.
			var out Outcome[T]
			if item.Label == LabelSuccess {
				out = NewAllSuccess[T](1)
			} else {
				out = Outcome[T]{Items: []Item[T]{{Label: LabelFailure, Value: item.Value[0]}}}
			}
			results = append(results, out)
			continue
		}

		if flag {
			results = append(results, Outcome[T]{Items: toFailureItems(item.Value)})
			continue
		}

		out, newFlag, err := cb(i, item.Value, flag)
		if err != nil {
			return nil, err
		}
		flag = newFlag
		results = append(results, out)
	}

	return results, nil
}

func toFailureItems[T any](values []T) []Item[T] {
	items := make([]Item[T], len(values))
	for i, v := range values {
		items[i] = Item[T]{Label: LabelFailure, Value: v}
	}
	return items
}

// Flatten concatenates a list of per-group outcomes into a single
// distribution, in order, the shape the next pass's Stack expects as its
// starting Outcome[T].
func Flatten[T any](outcomes []Outcome[T]) Outcome[T] {
	var items []Item[T]
	for _, o := range outcomes {
		items = append(items, o.Items...)
	}
	return Outcome[T]{Items: items}
}
