package metadata

import "encoding/json"

// LoadMemStore parses a JSON schema document — {"tables": [...], "fields":
// [...]} — into a MemStore. This is the ambient loading path cmd/mbqlc and
// mcpserver use to back a compilation with a concrete catalog; it has no
// bearing on compilation semantics.
func LoadMemStore(data []byte) (*MemStore, error) {
	var doc struct {
		Tables []Table `json:"tables"`
		Fields []Field `json:"fields"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	store := NewMemStore()
	for _, t := range doc.Tables {
		store.AddTable(t)
	}
	for _, f := range doc.Fields {
		store.AddField(f)
	}
	return store, nil
}
