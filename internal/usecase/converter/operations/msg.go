package operations

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/k3a/html2text"
	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	substgPrefix    = "__substg1.0_"
	attachPrefix    = "__attach_version1.0_"
	propertiesEntry = "__properties_version1.0"

	typeUnicode = "001F"
	typeString8 = "001E"
	typeBinary  = "0102"

	ptSysTime = 0x0040

	propSubject          = "0037"
	propTransportHeaders = "007D"
	propDisplayCc        = "0E03"
	propDisplayTo        = "0E04"
	propSenderName       = "0C1A"
	propSenderEmail      = "0C1F"
	propSenderSMTP       = "5D01"
	propBody             = "1000"
	propBodyHTML         = "1013"
	propAttachLongName   = "3707"
	propAttachShortName  = "3704"
	propDisplayName      = "3001"

	idClientSubmitTime  = 0x0039
	idMessageDelivery   = 0x0E06
	topLevelPropsHeader = 32
	propEntrySize       = 16

	// 100ns intervals between 1601-01-01 and the Unix epoch.
	filetimeEpochDelta = 116444736000000000
)

var ErrNotMSG = errors.New("not an outlook message")

// Message holds the fields of an Outlook MSG file used by the report.
type Message struct {
	SenderName  string
	SenderEmail string
	To          string
	Cc          string
	Subject     string
	Date        time.Time
	Body        string
	Attachments []string
}

// From formats the sender as `Name <address>`, or whichever part is known.
func (m Message) From() string {
	switch {
	case m.SenderName != "" && m.SenderEmail != "" && m.SenderName != m.SenderEmail:
		return fmt.Sprintf("%s <%s>", m.SenderName, m.SenderEmail)
	case m.SenderName != "":
		return m.SenderName
	default:
		return m.SenderEmail
	}
}

type propBag map[string][]byte

func (b propBag) text(id string) string {
	if v, ok := b[id+typeUnicode]; ok {
		return decodeUTF16(v)
	}
	if v, ok := b[id+typeString8]; ok {
		return decodeANSI(v)
	}
	return ""
}

func ParseMSGFile(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message: %w", err)
	}
	defer f.Close()

	return ParseMSG(f)
}

func ParseMSG(r io.ReaderAt) (*Message, error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMSG, err)
	}

	root := propBag{}
	attachments := map[string]propBag{}
	var rootProps []byte

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch len(entry.Path) {
		case 0:
			switch {
			case entry.Name == propertiesEntry:
				data, err := io.ReadAll(entry)
				if err != nil {
					return nil, fmt.Errorf("failed to read properties: %w", err)
				}
				rootProps = data
			case strings.HasPrefix(entry.Name, substgPrefix):
				data, err := io.ReadAll(entry)
				if err != nil {
					return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
				}
				root[strings.TrimPrefix(entry.Name, substgPrefix)] = data
			case strings.HasPrefix(entry.Name, attachPrefix):
				if _, ok := attachments[entry.Name]; !ok {
					attachments[entry.Name] = propBag{}
				}
			}
		case 1:
			parent := entry.Path[0]
			if !strings.HasPrefix(parent, attachPrefix) || !strings.HasPrefix(entry.Name, substgPrefix) {
				continue
			}
			data, err := io.ReadAll(entry)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
			}
			if attachments[parent] == nil {
				attachments[parent] = propBag{}
			}
			attachments[parent][strings.TrimPrefix(entry.Name, substgPrefix)] = data
		}
	}

	if len(root) == 0 && rootProps == nil {
		return nil, ErrNotMSG
	}

	msg := &Message{
		SenderName:  root.text(propSenderName),
		SenderEmail: root.text(propSenderSMTP),
		To:          root.text(propDisplayTo),
		Cc:          root.text(propDisplayCc),
		Subject:     root.text(propSubject),
		Body:        strings.TrimSpace(root.text(propBody)),
	}
	if msg.SenderEmail == "" {
		msg.SenderEmail = root.text(propSenderEmail)
	}

	if msg.Body == "" {
		if html := htmlBody(root); html != "" {
			msg.Body = strings.TrimSpace(html2text.HTML2Text(html))
		}
	}

	msg.Date = messageDate(rootProps, root.text(propTransportHeaders))

	names := make([]string, 0, len(attachments))
	for name := range attachments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bag := attachments[name]
		fileName := bag.text(propAttachLongName)
		if fileName == "" {
			fileName = bag.text(propAttachShortName)
		}
		if fileName == "" {
			fileName = bag.text(propDisplayName)
		}
		if fileName != "" {
			msg.Attachments = append(msg.Attachments, fileName)
		}
	}

	return msg, nil
}

func htmlBody(root propBag) string {
	if v, ok := root[propBodyHTML+typeBinary]; ok {
		return strings.TrimRight(string(v), "\x00")
	}
	return root.text(propBodyHTML)
}

// messageDate prefers the submit time, then the delivery time, then the
// Date header from the transport headers.
func messageDate(props []byte, headers string) time.Time {
	times := SysTimeProps(props, topLevelPropsHeader)
	if t, ok := times[idClientSubmitTime]; ok {
		return t
	}
	if t, ok := times[idMessageDelivery]; ok {
		return t
	}
	if headers == "" {
		return time.Time{}
	}

	th, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(strings.TrimRight(headers, "\r\n") + "\r\n\r\n")))
	if err != nil {
		return time.Time{}
	}
	h := mail.Header{Header: message.Header{Header: th}}
	t, err := h.Date()
	if err != nil {
		return time.Time{}
	}
	return t
}

// SysTimeProps decodes the fixed-size PT_SYSTIME entries of a property stream
// keyed by property id.
func SysTimeProps(props []byte, headerSize int) map[uint16]time.Time {
	out := map[uint16]time.Time{}
	if len(props) <= headerSize {
		return out
	}
	for off := headerSize; off+propEntrySize <= len(props); off += propEntrySize {
		tag := binary.LittleEndian.Uint32(props[off:])
		if tag&0xFFFF != ptSysTime {
			continue
		}
		ft := binary.LittleEndian.Uint64(props[off+8:])
		if ft == 0 {
			continue
		}
		out[uint16(tag>>16)] = FiletimeToTime(ft)
	}
	return out
}

func FiletimeToTime(ft uint64) time.Time {
	return time.Unix(0, (int64(ft)-filetimeEpochDelta)*100).UTC()
}

func decodeUTF16(b []byte) string {
	s, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(s), "\x00")
}

func decodeANSI(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return strings.TrimRight(string(b), "\x00")
	}
	return strings.TrimRight(string(s), "\x00")
}
