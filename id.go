package rentledger

import "github.com/nhatro/rentledger/id"

// ID is the primary identifier type for all rentledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// ParseID parses any rentledger ID regardless of prefix.
var ParseID = id.Parse
