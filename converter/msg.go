package converter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/unicode"

	"github.com/miitarou/notebooklm-loader/classify"
)

// MAPI property streams carry their property id and type in the entry
// name: __substg1.0_<prop><type>. Type 001F is UTF-16LE, 001E is 8-bit.
const msgStreamPrefix = "__substg1.0_"

var msgHeaderProps = map[string]string{
	"0C1A": "From",
	"0E04": "To",
	"0037": "Subject",
}

const msgBodyProp = "1000"

// msgText extracts headers and body from an Outlook .msg file, which is
// an OLE compound document of MAPI property streams, not RFC 5322 text.
func (c *Converter) msgText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return "", fmt.Errorf("parse msg container: %w", err)
	}

	headers := map[string]string{}
	body := ""
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		// Attachment and recipient storages nest their own property
		// streams; only root-level ones describe the message itself.
		if len(entry.Path) > 0 || !strings.HasPrefix(entry.Name, msgStreamPrefix) {
			continue
		}
		prop, typ, ok := msgPropType(entry.Name)
		if !ok {
			continue
		}
		if _, want := msgHeaderProps[prop]; !want && prop != msgBodyProp {
			continue
		}
		raw, err := io.ReadAll(entry)
		if err != nil {
			c.logger.Debug("unreadable msg property stream", "stream", entry.Name, "error", err)
			continue
		}
		text, err := msgDecodeString(raw, typ)
		if err != nil {
			continue
		}
		if prop == msgBodyProp {
			body = text
		} else {
			headers[msgHeaderProps[prop]] = text
		}
	}

	var sb strings.Builder
	for _, h := range []string{"From", "To", "Subject"} {
		if v := strings.TrimSpace(headers[h]); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", h, v)
		}
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteByte('\n')
	return sb.String(), nil
}

// msgPropType splits a property stream name into its id and type codes.
func msgPropType(name string) (prop, typ string, ok bool) {
	suffix := strings.TrimPrefix(name, msgStreamPrefix)
	if len(suffix) != 8 {
		return "", "", false
	}
	return strings.ToUpper(suffix[:4]), strings.ToUpper(suffix[4:]), true
}

func msgDecodeString(raw []byte, typ string) (string, error) {
	switch typ {
	case "001F":
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(decoded), "\x00"), nil
	case "001E":
		return classify.DecodeText(raw)
	}
	return "", fmt.Errorf("unsupported property type %s", typ)
}
