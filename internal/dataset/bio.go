package dataset

import (
	"bufio"
	"io"
	"strings"

	"github.com/FocuswithJustin/nerprep/core/errors"
)

// docStart marks CoNLL document boundaries; such lines carry no token.
const docStart = "-DOCSTART-"

// ReadBIO reads column-format records: the first field of a line is the
// token and the last field its tag, and a blank line ends the record.
// name is used in errors.
func ReadBIO(r io.Reader, name string) ([]Record, error) {
	var (
		records []Record
		cur     Record
	)
	flush := func() {
		if len(cur.Tokens) > 0 {
			records = append(records, cur)
		}
		cur = Record{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			flush()
			continue
		}
		if fields[0] == docStart {
			flush()
			continue
		}
		if len(fields) < 2 {
			return nil, &errors.ParseError{
				Format:  "BIO",
				Path:    name,
				Line:    line,
				Message: "want \"token tag\", got a single field",
			}
		}
		cur.Tokens = append(cur.Tokens, fields[0])
		cur.Tags = append(cur.Tags, fields[len(fields)-1])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", name, err)
	}
	flush()
	return records, nil
}
