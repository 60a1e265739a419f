package logformatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tutorlab/signaling/server/logger"
)

// LogFormatter renders log entries for console output. When the context
// contains room_id or user_id, they are pulled out of the key=value list and
// shown in a bracketed prefix so related entries line up visually.
type LogFormatter struct{}

func New() *LogFormatter {
	return &LogFormatter{}
}

var _ logger.Formatter = &LogFormatter{}

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func (f *LogFormatter) Format(message logger.Message) ([]byte, error) {
	ctx := message.Ctx

	var keys []string

	if l := len(ctx); l > 0 {
		keys = make([]string, 0, l)

		for k := range ctx {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	var (
		b      strings.Builder
		roomID string
		userID string
	)

	for _, k := range keys {
		v := ctx[k]

		switch k {
		case "room_id":
			roomID = fmt.Sprintf("%s", v)
			continue
		case "user_id":
			userID = fmt.Sprintf("%s", v)
			continue
		}

		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%+v", v))
	}

	namespace := message.Namespace

	if l := 20; len(namespace) > l {
		namespace = namespace[len(namespace)-l:]
	}

	prefix := ""

	switch {
	case roomID != "" && userID != "":
		prefix = fmt.Sprintf("[%s %s] ", roomID, userID)
	case roomID != "":
		prefix = fmt.Sprintf("[%s] ", roomID)
	case userID != "":
		prefix = fmt.Sprintf("[%s] ", userID)
	}

	ret := fmt.Sprintf("%s %5s [%20s] %s%s%s\n",
		message.Timestamp.Format(timeLayout),
		message.Level,
		namespace,
		prefix,
		strings.TrimRight(message.Body, "\n"),
		b.String(),
	)

	return []byte(ret), nil
}
