package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zipdata-cli/internal/model"
)

const sqlCreateTable = `CREATE TABLE IF NOT EXISTS zip_codes (
	id         INTEGER PRIMARY KEY,
	zip        TEXT NOT NULL UNIQUE,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	population INTEGER
);`

// WriteSQL writes a self-contained SQLite script: table creation plus one
// INSERT per record inside a single transaction. Null population becomes SQL
// NULL, and single quotes in string values are doubled.
func WriteSQL(w io.Writer, records []model.ZipRecord) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "BEGIN TRANSACTION;")
	fmt.Fprintln(bw, sqlCreateTable)

	for _, r := range records {
		pop := "NULL"
		if r.HasPopulation() {
			pop = strconv.FormatInt(*r.Population, 10)
		}
		fmt.Fprintf(bw, "INSERT INTO zip_codes (id, zip, lat, lng, population) VALUES (%d, %s, %s, %s, %s);\n",
			r.ID, quoteSQL(r.Zip), model.FormatCoord(r.Lat), model.FormatCoord(r.Lng), pop)
	}

	fmt.Fprintln(bw, "COMMIT;")
	return eris.Wrap(bw.Flush(), "sql: flush")
}

// quoteSQL wraps a string value in single quotes, doubling embedded quotes.
func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
