// Package mailbox turns mbox files into email header records.
package mailbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"

	"github.com/emersion/go-mbox"

	"lifeingest/internal/ingesterr"
	"lifeingest/internal/record"
)

const stageName = "mailbox"

// Normalize splits one mbox file into messages and returns one header record
// per message in file order. Header values are kept verbatim; an absent header
// yields nil. A message with an empty or malformed header block keeps the
// fields read before the bad line. Only a file that cannot be split into
// messages is rejected with ErrUnparseableMailboxFile.
func Normalize(data []byte, sourceFile string) ([]record.EmailHeader, error) {
	headers := make([]record.EmailHeader, 0)
	if len(bytes.TrimSpace(data)) == 0 {
		return headers, nil
	}

	reader := mbox.NewReader(bytes.NewReader(data))
	for index := 0; ; index++ {
		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ingesterr.Wrap(ingesterr.ErrUnparseableMailboxFile, stageName, "split", fmt.Sprintf("message %d", index+1), err)
		}
		fields := readHeaders(msgReader)
		headers = append(headers, record.NewEmailHeader(
			header(fields, "Date"),
			header(fields, "From"),
			header(fields, "To"),
			header(fields, "Subject"),
			sourceFile,
		))
	}
	return headers, nil
}

// readHeaders parses the header block of one message. ReadMIMEHeader returns
// the fields it managed to read alongside any error, so an empty message or a
// malformed line truncates the block instead of failing it.
func readHeaders(r io.Reader) textproto.MIMEHeader {
	fields, _ := textproto.NewReader(bufio.NewReader(r)).ReadMIMEHeader()
	return fields
}

// header returns the first value of name, or nil when the header is absent.
// A present but empty header is kept as an empty string.
func header(h textproto.MIMEHeader, name string) *string {
	values, ok := h[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return record.StringPtr(values[0])
}
