package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Formatter defines how a log Message is rendered before it is written to the
// transport.
type Formatter interface {
	Format(message Message) ([]byte, error)
}

// StringFormatter is the default Formatter. It renders entries as a single
// line of text suitable for stdout/stderr or a log file.
type StringFormatter struct {
	params *StringFormatterParams
}

// StringFormatterParams are parameters for StringFormatter.
type StringFormatterParams struct {
	// DateLayout is the time.Time layout used for the entry timestamp.
	DateLayout string

	// DisableContextKeySorting will not sort context keys before printing.
	DisableContextKeySorting bool
}

var _ Formatter = &StringFormatter{}

// NewStringFormatter creates a new instance of StringFormatter.
func NewStringFormatter(params StringFormatterParams) *StringFormatter {
	if params.DateLayout == "" {
		params.DateLayout = "2006-01-02T15:04:05.000000Z07:00"
	}

	return &StringFormatter{
		params: &params,
	}
}

// Format implements Formatter.
func (f *StringFormatter) Format(message Message) ([]byte, error) {
	ctx := message.Ctx

	keys := make([]string, 0, len(ctx))

	for k := range ctx {
		keys = append(keys, k)
	}

	if !f.params.DisableContextKeySorting {
		sort.Strings(keys)
	}

	var b strings.Builder

	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%+v", ctx[k]))
	}

	ret := fmt.Sprintf("%s %5s [%20s] %s%s\n",
		message.Timestamp.Format(f.params.DateLayout),
		message.Level,
		message.Namespace,
		message.Body,
		b.String(),
	)

	return []byte(ret), nil
}
