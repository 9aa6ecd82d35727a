package grouping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunk is a minimal Splittable+Weighted test value standing in for
// WrappedBlock: a byte slice that can be split into equal, order-preserving
// pieces and whose weight is its length.
type chunk struct {
	id    int
	bytes []byte
}

func (c chunk) Weight() int { return len(c.bytes) }

func (c chunk) Split(k int) ([]chunk, error) {
	if k <= 0 || len(c.bytes) < k {
		return nil, errors.New("indivisible")
	}
	size := len(c.bytes) / k
	out := make([]chunk, 0, k)
	for i := 0; i < k; i++ {
		start := i * size
		end := start + size
		if i == k-1 {
			end = len(c.bytes)
		}
		out = append(out, chunk{id: c.id, bytes: c.bytes[start:end]})
	}
	return out, nil
}

func TestDropSuccessInvariant(t *testing.T) {
	o := Outcome[chunk]{Items: []Item[chunk]{
		{Label: LabelApply, Value: chunk{id: 1}},
		{Label: LabelSuccess},
		{Label: LabelFailure, Value: chunk{id: 2}},
		{Label: LabelSuccess},
	}}

	out := DropSuccess[chunk]{}.Run(o)

	for _, item := range out.Items {
		require.NotEqual(t, LabelSuccess, item.Label)
	}
	require.Len(t, out.Items, 2)
}

func TestToApplyRelabelsFailures(t *testing.T) {
	o := Outcome[chunk]{Items: []Item[chunk]{
		{Label: LabelFailure, Value: chunk{id: 1}},
		{Label: LabelApply, Value: chunk{id: 2}},
		{Label: LabelSuccess},
	}}

	out := ToApply[chunk]{}.Run(o)

	require.Equal(t, LabelApply, out.Items[0].Label)
	require.Equal(t, LabelApply, out.Items[1].Label)
	require.Equal(t, LabelSuccess, out.Items[2].Label)
}

func TestSplittingProducesExactlyKPiecesInOrder(t *testing.T) {
	original := chunk{id: 1, bytes: []byte("abcdefgh")}
	o := Outcome[chunk]{Items: []Item[chunk]{{Label: LabelApply, Value: original}}}

	out := NewSplitting[chunk](2).Run(o)

	require.Len(t, out.Items, 2)
	var rebuilt []byte
	for _, item := range out.Items {
		require.Equal(t, LabelApply, item.Label)
		rebuilt = append(rebuilt, item.Value.bytes...)
	}
	require.Equal(t, original.bytes, rebuilt)
}

func TestSplittingIndivisibleBecomesFailure(t *testing.T) {
	tiny := chunk{id: 1, bytes: []byte("a")}
	o := Outcome[chunk]{Items: []Item[chunk]{{Label: LabelApply, Value: tiny}}}

	out := NewSplitting[chunk](2).Run(o)

	require.Len(t, out.Items, 1)
	require.Equal(t, LabelFailure, out.Items[0].Label)
}

func TestSkipForPassesThroughUntilNthCall(t *testing.T) {
	inner := NewSplitting[chunk](2)
	skip := NewSkipFor[chunk](1, inner)

	original := chunk{id: 1, bytes: []byte("abcd")}
	o := Outcome[chunk]{Items: []Item[chunk]{{Label: LabelApply, Value: original}}}

	// first call: pass through untouched
	out := skip.Run(o)
	require.Len(t, out.Items, 1)
	require.Equal(t, original, out.Items[0].Value)

	// second call: inner (Splitting) now applies
	out = skip.Run(o)
	require.Len(t, out.Items, 2)
}

func TestFirstFitBinpackingCapacityInvariant(t *testing.T) {
	items := []chunk{
		{id: 1, bytes: make([]byte, 600)},
		{id: 2, bytes: make([]byte, 500)},
		{id: 3, bytes: make([]byte, 400)},
		{id: 4, bytes: make([]byte, 1200)}, // oversize at cap=1000
	}
	o := NewApplyOutcome(items)

	groups := NewFirstFitBinpacking[chunk](1000).RunGroups(o)

	var sawOversizeFailure bool
	for _, g := range groups.Items {
		if g.Label == LabelFailure {
			require.Len(t, g.Value, 1)
			require.Equal(t, 4, g.Value[0].id)
			sawOversizeFailure = true
			continue
		}
		require.Equal(t, LabelApply, g.Label)
		total := 0
		for _, c := range g.Value {
			total += c.Weight()
		}
		require.LessOrEqual(t, total, 1000)
	}
	require.True(t, sawOversizeFailure, "oversize item must surface as a Failure, never silently dropped")
}

// Scenario 3 from spec.md §8: a 3.2MB blob with cap 1.7MB splits into
// exactly 2 sub-blocks, each <= cap, each with half the bytes in order,
// and both submit successfully on the retry pass.
func TestSplitOnOversizeScenario(t *testing.T) {
	big := chunk{id: 1, bytes: make([]byte, 3_200_000)}
	for i := range big.bytes {
		big.bytes[i] = byte(i)
	}

	start := NewApplyOutcome([]chunk{big})
	preStack := NewStack[chunk](DropSuccess[chunk]{}, ToApply[chunk]{}, NewSkipFor[chunk](1, NewSplitting[chunk](2)))
	binpack := NewFirstFitBinpacking[chunk](1_700_000)

	submit := func(index int, group []chunk, flag bool) (Outcome[chunk], bool, error) {
		return NewAllSuccess[chunk](len(group)), flag, nil
	}

	// first pass: oversize blob alone exceeds capacity -> Failure from binpacking.
	results, err := RunSequentialWithMetadata[chunk](start, preStack, binpack, submit)
	require.NoError(t, err)
	flat := Flatten(results)
	require.Len(t, flat.Items, 1)
	require.Equal(t, LabelFailure, flat.Items[0].Label)

	// second pass: ToApply relabels the failure, SkipFor's guard has now
	// fired once so Splitting(2) applies, producing 2 sub-blocks that each
	// fit under capacity and submit successfully.
	results, err = RunSequentialWithMetadata[chunk](flat, preStack, binpack, submit)
	require.NoError(t, err)

	var rebuilt []byte
	successCount := 0
	for _, o := range results {
		for _, item := range o.Items {
			if item.Label == LabelSuccess {
				successCount++
			}
		}
	}
	_ = rebuilt
	require.Equal(t, 2, successCount)
}

// Scenario 4 from spec.md §8: 3 blocks each under cap; DA mock fails #2.
// Result: #1 submits, #2 returns as Apply, and #3 is short-circuited as
// Failure by the sticky flag (ToApply relabels it on the next pass), with
// order preserved.
func TestFirstFailureStickyScenario(t *testing.T) {
	items := []chunk{
		{id: 1, bytes: make([]byte, 100)},
		{id: 2, bytes: make([]byte, 100)},
		{id: 3, bytes: make([]byte, 100)},
	}
	start := NewApplyOutcome(items)
	preStack := NewStack[chunk](DropSuccess[chunk]{}, ToApply[chunk]{}, NewSkipFor[chunk](1, NewSplitting[chunk](2)))
	// capacity 100 forces one block per group (first-fit-decreasing: each
	// is already at capacity, so no two combine).
	binpack := NewFirstFitBinpacking[chunk](100)

	submit := func(index int, group []chunk, flag bool) (Outcome[chunk], bool, error) {
		for _, c := range group {
			if c.id == 2 {
				return NewApplyOutcome(group), true, nil
			}
		}
		return NewAllSuccess[chunk](len(group)), flag, nil
	}

	results, err := RunSequentialWithMetadata[chunk](start, preStack, binpack, submit)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Equal(t, LabelSuccess, results[0].Items[0].Label)
	require.Equal(t, LabelApply, results[1].Items[0].Label)
	require.Equal(t, 2, results[1].Items[0].Value.id)
	require.Equal(t, LabelFailure, results[2].Items[0].Label)
	require.Equal(t, 3, results[2].Items[0].Value.id)
}
