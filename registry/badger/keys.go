package badger

import "fmt"

// Key prefixes for different record types
const (
	mappingPrefix = "fldmap"
	modelPrefix   = "infmod"
)

// makeMappingKey generates a key for an index's field→model mapping.
func makeMappingKey(index string) []byte {
	return []byte(fmt.Sprintf("%s:%s", mappingPrefix, index))
}

// makeModelKey generates a key for a model configuration by ID.
func makeModelKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", modelPrefix, id))
}
