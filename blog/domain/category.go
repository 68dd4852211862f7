package domain

import (
	"encoding/json"
	"fmt"
)

// UncategorizedCategory is assigned to posts whose category was deleted without a replacement.
var UncategorizedCategory = CategoryRef{ID: NewID("uncategorized"), Name: "Sem categoria"}

// Category is an entry of the categories index. Fields other than id and name
// are kept in Extra and written back untouched.
type Category struct {
	ID    ID
	Name  string
	Extra map[string]json.RawMessage
}

func (c *Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name}
}

func (c Category) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(c.Extra)+2)
	for k, v := range c.Extra {
		fields[k] = v
	}
	fields["id"] = c.ID
	fields["name"] = c.Name
	return json.Marshal(fields)
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Category
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("category id: %w", err)
		}
		delete(fields, "id")
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("category name: %w", err)
		}
		delete(fields, "name")
	}
	if len(fields) > 0 {
		out.Extra = fields
	}

	*c = out
	return nil
}
