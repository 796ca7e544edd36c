package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zipdata-cli/internal/model"
)

// WriteJSON writes the record set as a JSON array of objects. A record with
// no population omits the key entirely; field order follows the struct, so
// output is byte-stable for a given input set.
func WriteJSON(w io.Writer, records []model.ZipRecord) error {
	if records == nil {
		records = []model.ZipRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return eris.Wrap(err, "json: encode records")
	}
	return nil
}
