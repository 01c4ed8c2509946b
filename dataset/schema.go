package dataset

import (
	"fmt"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
	"github.com/theimaginaryfoundation/frame-atlas/dataset/provider"
)

// WriteTimelineSchema publishes the JSON Schema of the parsed timeline record.
func WriteTimelineSchema(path string) error {
	schema, err := provider.GenerateSchema[Timeline]()
	if err != nil {
		return fmt.Errorf("timeline schema: %w", err)
	}
	if err := fileutils.WriteJSONFileAtomic(path, schema, true); err != nil {
		return fmt.Errorf("timeline schema: %w", err)
	}
	return nil
}
