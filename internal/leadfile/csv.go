package leadfile

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/leadscore/internal/model"
)

// ReadCSV reads leads from a CSV file. A leading UTF-8 or UTF-16 byte
// order mark, as written by spreadsheet exports, is honored and stripped.
func ReadCSV(path string) ([]model.LeadProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leadfile: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(f, dec))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "leadfile: read csv")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return MapRows(records[0], records[1:])
}
