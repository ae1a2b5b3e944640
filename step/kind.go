package step

import "fmt"

// Kind is the variant of a step.
type Kind int

const (
	KindBatchSupplier Kind = iota + 1
	KindStreamSupplier
	KindMap
	KindFilterMap
	KindSplit
	KindCollect
)

var kindNames = map[Kind]string{
	KindBatchSupplier:  "batch-supplier",
	KindStreamSupplier: "stream-supplier",
	KindMap:            "map",
	KindFilterMap:      "filter-map",
	KindSplit:          "split",
	KindCollect:        "collect",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsRoot reports whether the kind originates resources with no upstream input.
func (k Kind) IsRoot() bool {
	return k == KindBatchSupplier || k == KindStreamSupplier
}

// IsIntermediate reports whether the kind opens a new cascade segment.
func (k Kind) IsIntermediate() bool {
	return k == KindSplit || k == KindCollect
}

// IsMap reports whether the kind transforms resources one at a time.
func (k Kind) IsMap() bool {
	return k == KindMap || k == KindFilterMap
}

// ProcessingType is fixed by the kind: stream suppliers are STREAM, every
// other kind is BATCH.
func (k Kind) ProcessingType() ProcessingType {
	if k == KindStreamSupplier {
		return Stream
	}
	return Batch
}

// ProcessingType classifies how a step produces data.
type ProcessingType string

const (
	Batch  ProcessingType = "BATCH"
	Stream ProcessingType = "STREAM"
)
