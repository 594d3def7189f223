package converter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
)

// emlText extracts headers and body from a single RFC 5322 message.
func (c *Converter) emlText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	env, err := enmime.ReadEnvelope(f)
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}
	return c.envelopeText(env)
}

// mboxText renders every message of an mbox file, separated by rules.
func (c *Converter) mboxText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	mr := mbox.NewReader(f)
	var sb strings.Builder
	n := 0
	for {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read mbox message %d: %w", n+1, err)
		}
		env, err := enmime.ReadEnvelope(msg)
		if err != nil {
			c.logger.Debug("skipping unparseable mbox message", "index", n+1, "error", err)
			continue
		}
		text, err := c.envelopeText(env)
		if err != nil {
			continue
		}
		if n > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString(text)
		n++
	}
	if n == 0 {
		return "", fmt.Errorf("no readable messages in mbox")
	}
	return sb.String(), nil
}

func (c *Converter) envelopeText(env *enmime.Envelope) (string, error) {
	var sb strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := env.GetHeader(h); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", h, v)
		}
	}
	sb.WriteByte('\n')

	body := strings.TrimSpace(env.Text)
	if body == "" && env.HTML != "" {
		md, err := c.htmlToMarkdown(env.HTML)
		if err != nil {
			return "", err
		}
		body = strings.TrimSpace(md)
	}
	sb.WriteString(body)
	sb.WriteByte('\n')
	return sb.String(), nil
}
