package block

import "errors"

var errIndivisible = errors.New("block: cannot split fewer transactions than the split factor")
