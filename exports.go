package rentledger

import (
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// Re-export common types for convenience so users don't have to import the
// types and usage packages for simple calls.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Readings is re-exported from usage package.
type Readings = usage.Readings

// Period is re-exported from usage package.
type Period = usage.Period

// Re-export Money constructors
var (
	VND  = types.VND
	Zero = types.Zero
	Sum  = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
